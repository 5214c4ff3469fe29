package payment

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/httpx"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
	"github.com/JonasLeetTheWay/eventreg-go/internal/notify"
	pay "github.com/JonasLeetTheWay/eventreg-go/internal/payment"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/registration"
)

const currency = "usd"

type Service struct {
	db        *gorm.DB
	processor pay.Processor
	publisher notify.Publisher
	log       *zerolog.Logger
}

func NewService(db *gorm.DB, processor pay.Processor, publisher notify.Publisher, log *zerolog.Logger) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Service{
		db:        db,
		processor: processor,
		publisher: publisher,
		log:       log,
	}
}

func (s *Service) SetupRoutes(r *gin.RouterGroup, protect gin.HandlerFunc) {
	r.POST("/payments", protect, s.CreatePayment)
}

type CreateInput struct {
	RegistrationID uint     `json:"registrationId" validate:"required"`
	Amount         *float64 `json:"amount" validate:"omitnil,gte=0"`
	PaymentMethod  string   `json:"paymentMethod" validate:"notblank"`
}

// Create charges a registration through the processor and records the
// outcome. The registration row stays locked from the status check until
// the payment is stored, so concurrent requests cannot charge it twice. A
// completed charge marks the registration paid in the same transaction.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*models.Payment, error) {
	var (
		reg     models.Registration
		event   models.Event
		payment models.Payment
		charge  *pay.ChargeResponse
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, in.RegistrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Registration not found")
			}
			return apperr.Unknown("Failed to fetch registration", err)
		}
		if err := auth.CanRecordPayment(p, reg.UserID).Err(); err != nil {
			return err
		}
		switch reg.PaymentStatus {
		case models.PaymentPaid:
			return apperr.Validation("Registration is already paid")
		case models.PaymentFailed:
			return apperr.Validation("Payment for this registration has failed and cannot be completed")
		}

		// cents are the smallest unit a client can send
		if in.Amount != nil && math.Abs(*in.Amount-reg.Amount) >= 0.005 {
			return apperr.Validationf("Payment amount must equal the registration amount of %.2f", reg.Amount)
		}

		if err := tx.First(&event, reg.EventID).Error; err != nil {
			return apperr.Unknown("Failed to fetch event", err)
		}

		method := strings.TrimSpace(in.PaymentMethod)
		var err error
		charge, err = s.processor.Charge(ctx, &pay.ChargeRequest{
			Amount:         reg.Amount,
			Currency:       currency,
			Method:         method,
			UserID:         reg.UserID,
			RegistrationID: reg.ID,
		})
		if err != nil {
			return apperr.Unknown("Payment processing failed", err)
		}

		payment = models.Payment{
			RegistrationID: reg.ID,
			Amount:         reg.Amount,
			PaymentMethod:  method,
			PaymentStatus:  models.PaymentFailed,
			Reference:      charge.Reference,
		}
		if charge.Success {
			payment.PaymentStatus = models.PaymentCompleted
		}
		if err := tx.Create(&payment).Error; err != nil {
			return apperr.Unknown("Failed to record payment", err)
		}
		if !charge.Success {
			return nil
		}

		res := tx.Model(&models.Registration{}).
			Where("id = ? AND payment_status = ?", reg.ID, models.PaymentPending).
			Update("payment_status", models.PaymentPaid)
		if res.Error != nil {
			return apperr.Unknown("Failed to update registration", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Validation("Registration is already paid")
		}
		reg.PaymentStatus = models.PaymentPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	level := zerolog.InfoLevel
	if !charge.Success {
		level = zerolog.WarnLevel
	}
	s.log.WithLevel(level).
		Uint("payment_id", payment.ID).
		Str("reason", charge.Error).
		Uint("registration_id", reg.ID).
		Str("status", payment.PaymentStatus).
		Msg("payment recorded")

	if charge.Success {
		msg := registration.Notification(notify.KindRegistrationPaid, reg, event)
		if err := s.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
			s.log.Error().Err(err).Uint("registration_id", reg.ID).Msg("failed to publish notification")
		}
	}
	return &payment, nil
}

func (s *Service) CreatePayment(c *gin.Context) {
	var in CreateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		httpx.Fail(c, err)
		return
	}

	payment, err := s.Create(c.Request.Context(), middleware.MustPrincipal(c), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}
