package registration

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
	"github.com/JonasLeetTheWay/eventreg-go/internal/notify"
)

// AdmissionLocker serializes admissions of one user for one event.
type AdmissionLocker interface {
	LockAdmission(ctx context.Context, userID, eventID uint) (bool, error)
	UnlockAdmission(ctx context.Context, userID, eventID uint) error
}

type Service struct {
	db        *gorm.DB
	locker    AdmissionLocker
	publisher notify.Publisher
	log       *zerolog.Logger
}

// NewService wires the registration service. locker may be nil, in which
// case the database alone guards admissions.
func NewService(db *gorm.DB, locker AdmissionLocker, publisher notify.Publisher, log *zerolog.Logger) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Service{
		db:        db,
		locker:    locker,
		publisher: publisher,
		log:       log,
	}
}

type RegisterInput struct {
	EventID  uint
	Seats    *int
	Attendee models.AttendeeDetails
}

// Register admits the caller to an event. The duplicate check, the
// conditional seat increment and the insert share one transaction.
func (s *Service) Register(ctx context.Context, p auth.Principal, in RegisterInput) (*models.Registration, error) {
	if err := auth.CanRegister(p).Err(); err != nil {
		return nil, err
	}
	seats, err := RequestedSeats(in.Seats)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		locked, err := s.locker.LockAdmission(ctx, p.UserID, in.EventID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Uint("event_id", in.EventID).Msg("admission lock unavailable, relying on database")
		case !locked:
			return nil, apperr.DuplicateRegistration("A registration for this event is already being processed")
		default:
			defer func() {
				if err := s.locker.UnlockAdmission(context.WithoutCancel(ctx), p.UserID, in.EventID); err != nil {
					s.log.Warn().Err(err).Uint("event_id", in.EventID).Msg("failed to release admission lock")
				}
			}()
		}
	}

	var (
		event models.Event
		reg   models.Registration
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&event, in.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Event not found")
			}
			return apperr.Unknown("Failed to fetch event", err)
		}

		var existing int64
		if err := tx.Model(&models.Registration{}).
			Where("user_id = ? AND event_id = ?", p.UserID, event.ID).
			Count(&existing).Error; err != nil {
			return apperr.Unknown("Failed to check existing registration", err)
		}
		if existing > 0 {
			return apperr.DuplicateRegistration("You are already registered for this event")
		}

		booked := tx.Model(&models.Event{}).
			Where("id = ? AND seats_booked + ? <= capacity", event.ID, seats).
			UpdateColumn("seats_booked", gorm.Expr("seats_booked + ?", seats))
		if booked.Error != nil {
			return apperr.Unknown("Failed to book seats", booked.Error)
		}
		if booked.RowsAffected == 0 {
			var taken int
			if err := tx.Model(&models.Event{}).Where("id = ?", event.ID).
				Select("seats_booked").Scan(&taken).Error; err != nil {
				return apperr.Unknown("Failed to read booked seats", err)
			}
			if err := Admit(event.Capacity, taken, seats); err != nil {
				return err
			}
			return apperr.CapacityExceeded(Remaining(event.Capacity, taken))
		}

		amount := Amount(event.Price, seats)
		reg = models.Registration{
			UserID:          p.UserID,
			EventID:         event.ID,
			Status:          models.RegistrationRegistered,
			PaymentStatus:   InitialPaymentStatus(amount),
			Amount:          amount,
			Seats:           seats,
			AttendeeDetails: Snapshot(p, in.Attendee),
			RegisteredAt:    time.Now(),
		}
		if err := tx.Create(&reg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.DuplicateRegistration("You are already registered for this event")
			}
			return apperr.Unknown("Failed to create registration", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("registration_id", reg.ID).
		Uint("event_id", event.ID).
		Uint("user_id", p.UserID).
		Int("seats", seats).
		Msg("registration admitted")
	s.notify(ctx, Notification(notify.KindRegistrationCreated, reg, event))
	return &reg, nil
}

// RegistrationCount is the seat total of an event across all registrations.
func (s *Service) RegistrationCount(ctx context.Context, eventID uint) (int, error) {
	counts, err := s.RegistrationCounts(ctx, []uint{eventID})
	if err != nil {
		return 0, err
	}
	return counts[eventID], nil
}

// RegistrationCounts computes seat totals for many events in one query.
// Events without registrations are absent from the map.
func (s *Service) RegistrationCounts(ctx context.Context, eventIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID uint
		Seats   int
	}
	err := s.db.WithContext(ctx).Model(&models.Registration{}).
		Select("event_id, SUM(CASE WHEN seats > 0 THEN seats ELSE 1 END) AS seats").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Unknown("Failed to count registrations", err)
	}
	for _, row := range rows {
		counts[row.EventID] = row.Seats
	}
	return counts, nil
}

// Participants lists an event's registrations for its organizer or an admin.
func (s *Service) Participants(ctx context.Context, p auth.Principal, eventID uint, search string) ([]models.Registration, error) {
	if err := auth.RequireRole(p, models.RoleOrganizer, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Event not found")
		}
		return nil, apperr.Unknown("Failed to fetch event", err)
	}
	if err := auth.CanManageEvent(p, event.OrganizerID, "view participants for this event").Err(); err != nil {
		return nil, err
	}

	var regs []models.Registration
	if err := s.db.WithContext(ctx).Preload("User").
		Where("event_id = ?", eventID).
		Order("id").
		Find(&regs).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch participants", err)
	}
	return Filter(regs, search, false), nil
}

// ForOrganizer lists registrations across the caller's own events, newest first.
func (s *Service) ForOrganizer(ctx context.Context, p auth.Principal, search string) ([]models.Registration, error) {
	if err := auth.RequireRole(p, models.RoleOrganizer, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	owned := db.Model(&models.Event{}).Select("id").Where("organizer_id = ?", p.UserID)

	var regs []models.Registration
	if err := db.Preload("Event").Preload("User").
		Where("event_id IN (?)", owned).
		Order("registered_at DESC, id DESC").
		Find(&regs).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch registrations", err)
	}
	return Filter(regs, search, true), nil
}

// Mine lists the caller's registrations with event and organizer attached.
func (s *Service) Mine(ctx context.Context, p auth.Principal) ([]models.Registration, error) {
	var regs []models.Registration
	if err := s.db.WithContext(ctx).Preload("Event").Preload("Event.Organizer").
		Where("user_id = ?", p.UserID).
		Order("registered_at DESC, id DESC").
		Find(&regs).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch registrations", err)
	}
	return regs, nil
}

// All lists every registration. Admin only.
func (s *Service) All(ctx context.Context, p auth.Principal) ([]models.Registration, error) {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	var regs []models.Registration
	if err := s.db.WithContext(ctx).Preload("Event").Preload("User").
		Order("id").
		Find(&regs).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch registrations", err)
	}
	return regs, nil
}

// ConfirmPayment moves a registration from pending to paid. Paying twice
// is a no-op; failed is terminal.
func (s *Service) ConfirmPayment(ctx context.Context, p auth.Principal, id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := s.db.WithContext(ctx).Preload("Event").First(&reg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Registration not found")
		}
		return nil, apperr.Unknown("Failed to fetch registration", err)
	}
	if err := auth.CanPayRegistration(p, reg.UserID).Err(); err != nil {
		return nil, err
	}

	switch reg.PaymentStatus {
	case models.PaymentPaid:
		return &reg, nil
	case models.PaymentFailed:
		return nil, apperr.Validation("Payment for this registration has failed and cannot be confirmed")
	}

	res := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND payment_status = ?", reg.ID, models.PaymentPending).
		Update("payment_status", models.PaymentPaid)
	if res.Error != nil {
		return nil, apperr.Unknown("Failed to update registration", res.Error)
	}
	reg.PaymentStatus = models.PaymentPaid

	// a concurrent confirmation already flipped it and sent the notice
	if res.RowsAffected > 0 && reg.Event != nil {
		s.notify(ctx, Notification(notify.KindRegistrationPaid, reg, *reg.Event))
	}
	return &reg, nil
}

func (s *Service) notify(ctx context.Context, msg notify.Message) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		s.log.Error().Err(err).
			Str("kind", string(msg.Kind)).
			Uint("registration_id", msg.RegistrationID).
			Msg("failed to publish notification")
	}
}

// Notification describes a registration event for the notifier.
func Notification(kind notify.Kind, reg models.Registration, event models.Event) notify.Message {
	return notify.Message{
		Kind:           kind,
		RegistrationID: reg.ID,
		EventID:        event.ID,
		EventTitle:     event.Title,
		AttendeeName:   reg.AttendeeDetails.Name,
		AttendeeEmail:  reg.AttendeeDetails.Email,
		Seats:          reg.SeatCount(),
		Amount:         reg.Amount,
		PaymentStatus:  reg.PaymentStatus,
		OccurredAt:     time.Now(),
	}
}
