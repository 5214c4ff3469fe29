package event

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

// SeatCounter reports seats taken per event.
type SeatCounter interface {
	RegistrationCounts(ctx context.Context, eventIDs []uint) (map[uint]int, error)
}

type Service struct {
	db      *gorm.DB
	counter SeatCounter
	log     *zerolog.Logger
}

func NewService(db *gorm.DB, counter SeatCounter, log *zerolog.Logger) *Service {
	return &Service{db: db, counter: counter, log: log}
}

// WithCount is an event annotated with the seats taken so far.
type WithCount struct {
	models.Event
	RegistrationCount int `json:"registrationCount"`
}

// List returns upcoming events (soonest first) followed by past events
// (most recent first).
func (s *Service) List(ctx context.Context) ([]WithCount, error) {
	now := time.Now()
	db := s.db.WithContext(ctx)

	var upcoming, past []models.Event
	if err := withRelations(db).Where("date >= ?", now).Order("date ASC").Find(&upcoming).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch events", err)
	}
	if err := withRelations(db).Where("date < ?", now).Order("date DESC").Find(&past).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch events", err)
	}

	return s.annotate(ctx, append(upcoming, past...))
}

func (s *Service) Get(ctx context.Context, id uint) (*WithCount, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.annotate(ctx, []models.Event{*event})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Mine lists the caller's own events, soonest first.
func (s *Service) Mine(ctx context.Context, p auth.Principal) ([]WithCount, error) {
	if err := auth.RequireRole(p, models.RoleOrganizer, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	var events []models.Event
	if err := withRelations(s.db.WithContext(ctx)).
		Where("organizer_id = ?", p.UserID).
		Order("date ASC").
		Find(&events).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch events", err)
	}
	return s.annotate(ctx, events)
}

type CreateInput struct {
	Title       string   `json:"title" validate:"notblank,max=200"`
	Description string   `json:"description" validate:"notblank"`
	Date        string   `json:"date" validate:"notblank"`
	Time        string   `json:"time" validate:"notblank"`
	Location    string   `json:"location" validate:"notblank"`
	Capacity    int      `json:"capacity" validate:"positive"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
	Category    uint     `json:"category" validate:"required"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*models.Event, error) {
	if err := auth.RequireRole(p, models.RoleAdmin, models.RoleOrganizer).Err(); err != nil {
		return nil, err
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	event := models.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Date:        date,
		Time:        in.Time,
		Location:    in.Location,
		Capacity:    in.Capacity,
		CategoryID:  in.Category,
		OrganizerID: p.UserID,
	}
	if in.Price != nil {
		event.Price = *in.Price
	}

	db := s.db.WithContext(ctx)
	if err := ensureCategory(db, in.Category); err != nil {
		return nil, err
	}
	if err := db.Create(&event).Error; err != nil {
		return nil, apperr.Unknown("Failed to create event", err)
	}

	s.log.Info().Uint("event_id", event.ID).Uint("organizer_id", p.UserID).Msg("event created")
	return &event, nil
}

// UpdateInput carries only the fields present in the request.
type UpdateInput struct {
	Title       *string  `json:"title" validate:"omitnil,notblank,max=200"`
	Description *string  `json:"description" validate:"omitnil,notblank"`
	Date        *string  `json:"date" validate:"omitnil,notblank"`
	Time        *string  `json:"time" validate:"omitnil,notblank"`
	Location    *string  `json:"location" validate:"omitnil,notblank"`
	Capacity    *int     `json:"capacity"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
	Category    *uint    `json:"category" validate:"omitnil,required"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uint, in UpdateInput) (*models.Event, error) {
	if err := auth.RequireRole(p, models.RoleOrganizer, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Event not found")
			}
			return apperr.Unknown("Failed to fetch event", err)
		}
		if err := auth.CanManageEvent(p, event.OrganizerID, "update this event").Err(); err != nil {
			return err
		}
		if in.Capacity != nil && *in.Capacity <= 0 {
			return apperr.Validation("Capacity must be a positive number")
		}

		changes := map[string]any{}
		if in.Title != nil {
			changes["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			changes["description"] = *in.Description
		}
		if in.Date != nil {
			date, err := ParseDate(*in.Date)
			if err != nil {
				return err
			}
			changes["date"] = date
		}
		if in.Time != nil {
			changes["time"] = *in.Time
		}
		if in.Location != nil {
			changes["location"] = *in.Location
		}
		if in.Price != nil {
			changes["price"] = *in.Price
		}
		if in.Category != nil {
			if err := ensureCategory(tx, *in.Category); err != nil {
				return err
			}
			changes["category_id"] = *in.Category
		}

		q := tx.Model(&models.Event{}).Where("id = ?", event.ID)
		if in.Capacity != nil {
			changes["capacity"] = *in.Capacity
			// admissions hold the row; never shrink below what is booked
			q = q.Where("seats_booked <= ?", *in.Capacity)
		}
		if len(changes) == 0 {
			return nil
		}

		res := q.Updates(changes)
		if res.Error != nil {
			return apperr.Unknown("Failed to update event", res.Error)
		}
		if res.RowsAffected == 0 && in.Capacity != nil {
			var booked int
			if err := tx.Model(&models.Event{}).Where("id = ?", event.ID).Select("seats_booked").Scan(&booked).Error; err != nil {
				return apperr.Unknown("Failed to read booked seats", err)
			}
			return apperr.Validationf("Capacity cannot be lower than the %d seats already booked", booked)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.find(ctx, id)
}

// Delete removes the event together with its registrations and their payments.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uint) error {
	if err := auth.RequireRole(p, models.RoleOrganizer, models.RoleAdmin).Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Event not found")
			}
			return apperr.Unknown("Failed to fetch event", err)
		}
		if err := auth.CanManageEvent(p, event.OrganizerID, "delete this event").Err(); err != nil {
			return err
		}

		regs := tx.Model(&models.Registration{}).Select("id").Where("event_id = ?", event.ID)
		if err := tx.Where("registration_id IN (?)", regs).Delete(&models.Payment{}).Error; err != nil {
			return apperr.Unknown("Failed to delete payments", err)
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Registration{}).Error; err != nil {
			return apperr.Unknown("Failed to delete registrations", err)
		}
		if err := tx.Delete(&event).Error; err != nil {
			return apperr.Unknown("Failed to delete event", err)
		}

		s.log.Info().Uint("event_id", event.ID).Uint("by", p.UserID).Msg("event deleted")
		return nil
	})
}

func (s *Service) find(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := withRelations(s.db.WithContext(ctx)).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Event not found")
		}
		return nil, apperr.Unknown("Failed to fetch event", err)
	}
	return &event, nil
}

func (s *Service) annotate(ctx context.Context, events []models.Event) ([]WithCount, error) {
	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	counts, err := s.counter.RegistrationCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]WithCount, len(events))
	for i, e := range events {
		out[i] = WithCount{Event: e, RegistrationCount: counts[e.ID]}
	}
	return out, nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Organizer")
}

func ensureCategory(db *gorm.DB, id uint) error {
	var n int64
	if err := db.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperr.Unknown("Failed to fetch category", err)
	}
	if n == 0 {
		return apperr.Validation("Category not found")
	}
	return nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and plain calendar dates.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("Invalid format: date")
}
