package reconcile

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/httpx"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

type Report struct {
	Checked  int64 `json:"checked"`
	Repaired int64 `json:"repaired"`
}

// Service keeps events.seats_booked equal to the seats of its registrations.
type Service struct {
	db  *gorm.DB
	log *zerolog.Logger
}

func NewService(db *gorm.DB, log *zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) SetupRoutes(r *gin.RouterGroup, protect gin.HandlerFunc) {
	admin := r.Group("/admin", protect)
	{
		admin.POST("/reconcile", s.Reconcile)
		admin.POST("/reconcile/:id", s.ReconcileOne)
	}
}

// ReconcileAll repairs every event one at a time, each under its own
// row lock.
func (s *Service) ReconcileAll(ctx context.Context) (Report, error) {
	var report Report

	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Event{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return report, apperr.Unknown("Failed to list events", err)
	}

	for _, id := range ids {
		repaired, err := s.repair(ctx, id)
		if apperr.Is(err, apperr.KindNotFound) {
			// deleted since listing
			continue
		}
		if err != nil {
			return report, err
		}
		report.Checked++
		if repaired {
			report.Repaired++
		}
	}

	if report.Repaired > 0 {
		s.log.Warn().Int64("repaired", report.Repaired).Int64("checked", report.Checked).Msg("seat counters repaired")
	}
	return report, nil
}

// ReconcileEvent repairs one event and reports whether it had drifted.
func (s *Service) ReconcileEvent(ctx context.Context, eventID uint) (bool, error) {
	repaired, err := s.repair(ctx, eventID)
	if err != nil {
		return false, err
	}
	if repaired {
		s.log.Warn().Uint("event_id", eventID).Msg("seat counter repaired")
	}
	return repaired, nil
}

// repair locks the event row before summing its registrations. Admissions
// increment the counter under the same row lock and insert in the same
// transaction, so the sum read afterwards always includes them.
func (s *Service) repair(ctx context.Context, eventID uint) (bool, error) {
	repaired := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "seats_booked").
			First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Event not found")
			}
			return apperr.Unknown("Failed to fetch event", err)
		}

		var seats int
		if err := tx.Model(&models.Registration{}).
			Select("COALESCE(SUM(CASE WHEN seats > 0 THEN seats ELSE 1 END), 0)").
			Where("event_id = ?", eventID).
			Scan(&seats).Error; err != nil {
			return apperr.Unknown("Failed to sum registrations", err)
		}
		if seats == event.SeatsBooked {
			return nil
		}

		if err := tx.Model(&models.Event{}).Where("id = ?", eventID).
			UpdateColumn("seats_booked", seats).Error; err != nil {
			return apperr.Unknown("Failed to reconcile seat counter", err)
		}
		repaired = true
		return nil
	})
	return repaired, err
}

// StartWorker reconciles on every tick until ctx is done. A non-positive
// interval disables it.
func (s *Service) StartWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Info().Msg("reconcile worker disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("reconcile worker started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconcile worker stopped")
			return
		case <-ticker.C:
			if _, err := s.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("reconcile failed")
			}
		}
	}
}

func (s *Service) Reconcile(c *gin.Context) {
	if err := auth.RequireRole(middleware.MustPrincipal(c), models.RoleAdmin).Err(); err != nil {
		httpx.Fail(c, err)
		return
	}

	report, err := s.ReconcileAll(c.Request.Context())
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Service) ReconcileOne(c *gin.Context) {
	if err := auth.RequireRole(middleware.MustPrincipal(c), models.RoleAdmin).Err(); err != nil {
		httpx.Fail(c, err)
		return
	}
	id, err := httpx.ParamID(c, "id", "event")
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	repaired, err := s.ReconcileEvent(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventId": id, "repaired": repaired})
}
