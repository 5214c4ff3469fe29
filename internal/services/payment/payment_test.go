package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/database/dbtest"
	"github.com/JonasLeetTheWay/eventreg-go/internal/logger"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
	"github.com/JonasLeetTheWay/eventreg-go/internal/notify"
	pay "github.com/JonasLeetTheWay/eventreg-go/internal/payment"
)

type stubProcessor struct {
	mu      sync.Mutex
	succeed bool
	delay   time.Duration
	err     error
	charged []pay.ChargeRequest
}

func (p *stubProcessor) Charge(_ context.Context, req *pay.ChargeRequest) (*pay.ChargeResponse, error) {
	time.Sleep(p.delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.charged = append(p.charged, *req)
	resp := &pay.ChargeResponse{Reference: fmt.Sprintf("pay_test_%d", len(p.charged)), Amount: req.Amount, Success: p.succeed}
	if !p.succeed {
		resp.Status = pay.StatusFailed
		resp.Error = "declined"
	}
	return resp, nil
}

func (p *stubProcessor) charges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.charged)
}

type capturePublisher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (p *capturePublisher) Publish(_ context.Context, msg notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

type fixture struct {
	db        *gorm.DB
	processor *stubProcessor
	publisher *capturePublisher
	svc       *Service
	owner     models.User
	reg       models.Registration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	organizer := dbtest.CreateUser(t, db, "organizer", models.RoleOrganizer)
	owner := dbtest.CreateUser(t, db, "owner", models.RoleUser)
	event := dbtest.CreateEvent(t, db, organizer, dbtest.CreateCategory(t, db, "Music"), 10, 15)

	reg := models.Registration{
		UserID:          owner.ID,
		EventID:         event.ID,
		Status:          models.RegistrationRegistered,
		PaymentStatus:   models.PaymentPending,
		Amount:          30,
		Seats:           2,
		AttendeeDetails: models.AttendeeDetails{Name: owner.Name, Email: owner.Email},
		RegisteredAt:    time.Now(),
	}
	require.NoError(t, db.Create(&reg).Error)

	f := &fixture{
		db:        db,
		processor: &stubProcessor{succeed: true},
		publisher: &capturePublisher{},
		owner:     owner,
		reg:       reg,
	}
	f.svc = NewService(db, f.processor, f.publisher, logger.Nop())
	return f
}

func (f *fixture) paymentStatus(t *testing.T) string {
	t.Helper()
	var reg models.Registration
	require.NoError(t, f.db.First(&reg, f.reg.ID).Error)
	return reg.PaymentStatus
}

func ptr[T any](v T) *T { return &v }

func TestCompletedPaymentMarksRegistrationPaid(t *testing.T) {
	f := newFixture(t)

	payment, err := f.svc.Create(context.Background(), dbtest.Principal(f.owner), CreateInput{
		RegistrationID: f.reg.ID,
		PaymentMethod:  " Card ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, payment.PaymentStatus)
	assert.Equal(t, 30.0, payment.Amount, "amount defaults to the registration amount")
	assert.Equal(t, "Card", payment.PaymentMethod)
	assert.Equal(t, "pay_test_1", payment.Reference)
	assert.Equal(t, models.PaymentPaid, f.paymentStatus(t))

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, notify.KindRegistrationPaid, f.publisher.messages[0].Kind)
	assert.Equal(t, 2, f.publisher.messages[0].Seats)

	_, err = f.svc.Create(context.Background(), dbtest.Principal(f.owner), CreateInput{RegistrationID: f.reg.ID, PaymentMethod: "Card"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 1, f.processor.charges(), "a paid registration is never charged again")
}

func TestFailedPaymentKeepsRegistrationPending(t *testing.T) {
	f := newFixture(t)
	f.processor.succeed = false

	payment, err := f.svc.Create(context.Background(), dbtest.Principal(f.owner), CreateInput{
		RegistrationID: f.reg.ID,
		Amount:         ptr(30.0),
		PaymentMethod:  "Card",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.PaymentStatus)
	assert.Equal(t, models.PaymentPending, f.paymentStatus(t))
	assert.Empty(t, f.publisher.messages)

	var stored int64
	f.db.Model(&models.Payment{}).Count(&stored)
	assert.EqualValues(t, 1, stored)
}

func TestAmountMustMatchRegistration(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), dbtest.Principal(f.owner), CreateInput{
		RegistrationID: f.reg.ID,
		Amount:         ptr(10.0),
		PaymentMethod:  "Card",
	})
	assert.EqualError(t, err, "Payment amount must equal the registration amount of 30.00")
	assert.Zero(t, f.processor.charges())
}

func TestConcurrentPaymentsChargeOnce(t *testing.T) {
	f := newFixture(t)
	f.processor.delay = 50 * time.Millisecond

	const attempts = 2
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   []error
		starts = make(chan struct{})
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-starts
			_, err := f.svc.Create(context.Background(), dbtest.Principal(f.owner), CreateInput{
				RegistrationID: f.reg.ID,
				PaymentMethod:  "Card",
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	close(starts)
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			assert.EqualError(t, err, "Registration is already paid")
			failed++
		}
	}
	assert.Equal(t, attempts-1, failed)
	assert.Equal(t, 1, f.processor.charges())

	var completed int64
	f.db.Model(&models.Payment{}).Where("payment_status = ?", models.PaymentCompleted).Count(&completed)
	assert.EqualValues(t, 1, completed)
	assert.Equal(t, models.PaymentPaid, f.paymentStatus(t))
}

func TestFailedRegistrationIsTerminal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&f.reg).Update("payment_status", models.PaymentFailed).Error)

	_, err := f.svc.Create(context.Background(), dbtest.Principal(f.owner), CreateInput{RegistrationID: f.reg.ID, PaymentMethod: "Card"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.EqualError(t, err, "Payment for this registration has failed and cannot be completed")
	assert.Zero(t, f.processor.charges())
	assert.Equal(t, models.PaymentFailed, f.paymentStatus(t))
}

func TestPaymentAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateInput{RegistrationID: f.reg.ID, PaymentMethod: "Card"}

	stranger := dbtest.CreateUser(t, f.db, "stranger", models.RoleUser)
	_, err := f.svc.Create(ctx, dbtest.Principal(stranger), in)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Create(ctx, dbtest.Principal(f.owner), CreateInput{RegistrationID: 777, PaymentMethod: "Card"})
	assert.EqualError(t, err, "Registration not found")

	admin := dbtest.CreateUser(t, f.db, "admin", models.RoleAdmin)
	_, err = f.svc.Create(ctx, dbtest.Principal(admin), in)
	require.NoError(t, err)
}

func TestProcessorErrorRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.processor.err = errors.New("gateway down")

	_, err := f.svc.Create(context.Background(), dbtest.Principal(f.owner), CreateInput{RegistrationID: f.reg.ID, PaymentMethod: "Card"})
	assert.True(t, apperr.Is(err, apperr.KindUnknown))

	var stored int64
	f.db.Model(&models.Payment{}).Count(&stored)
	assert.Zero(t, stored)
}

func TestPaymentRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	cfg := &config.Config{JWTSecret: "payments", JWTExpiry: time.Hour}

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger.Nop()))
	f.svc.SetupRoutes(r.Group("/api"), middleware.NewAuthenticator(f.db, cfg).Protect())

	token, err := auth.GenerateToken(cfg, f.owner.ID, f.owner.Role)
	require.NoError(t, err)
	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(fmt.Sprintf(`{"registrationId":%d}`, f.reg.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Field is required: paymentMethod","code":"validation_error"}`, w.Body.String())

	w = send(fmt.Sprintf(`{"registrationId":%d,"paymentMethod":"PayPal"}`, f.reg.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment models.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
	assert.Equal(t, "completed", payment.PaymentStatus)
	assert.Equal(t, f.reg.ID, payment.RegistrationID)
}
