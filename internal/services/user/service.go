package user

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	log    *zerolog.Logger
}

func NewService(db *gorm.DB, cfg *config.Config, log *zerolog.Logger) *Service {
	return &Service{db: db, config: cfg, log: log}
}

// AuthResponse is the user plus a fresh token.
type AuthResponse struct {
	models.User
	Token string `json:"token"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates a regular user. Elevated roles are granted by admins only.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	email := normalizeEmail(in.Email)
	db := s.db.WithContext(ctx)

	taken, err := emailTaken(db, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Validation("User already exists")
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Unknown("Failed to hash password", err)
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("User already exists")
		}
		return nil, apperr.Unknown("Failed to create user", err)
	}

	s.log.Info().Uint("user_id", user.ID).Msg("user registered")
	return s.withToken(user)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(in.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotAuthorized("Invalid email or password")
		}
		return nil, apperr.Unknown("Failed to fetch user", err)
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return nil, apperr.NotAuthorized("Invalid email or password")
	}
	return s.withToken(user)
}

func (s *Service) List(ctx context.Context, p auth.Principal) ([]models.User, error) {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch users", err)
	}
	return users, nil
}

// UpdateInput holds the fields present in the request. Role is only
// honoured on the admin route.
type UpdateInput struct {
	Name     *string      `json:"name" validate:"omitnil,notblank,max=100"`
	Email    *string      `json:"email" validate:"omitnil,email"`
	Password *string      `json:"password" validate:"omitempty,min=6"`
	Role     *models.Role `json:"role" validate:"omitnil,oneof=admin organizer user"`
}

// Update lets an admin edit any user, including the role.
func (s *Service) Update(ctx context.Context, p auth.Principal, id uint, in UpdateInput) (*models.User, error) {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return nil, err
	}
	return s.update(ctx, id, in)
}

// UpdateProfile edits the caller's own account. The role never changes here.
func (s *Service) UpdateProfile(ctx context.Context, p auth.Principal, in UpdateInput) (*models.User, error) {
	in.Role = nil
	return s.update(ctx, p.UserID, in)
}

func (s *Service) update(ctx context.Context, id uint, in UpdateInput) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Unknown("Failed to fetch user", err)
	}

	changes := map[string]any{}
	if in.Name != nil {
		changes["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != user.Email {
			taken, err := emailTaken(db, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperr.Validation("Email already in use")
			}
			changes["email"] = email
		}
	}
	// a blank password keeps the current one
	if in.Password != nil && strings.TrimSpace(*in.Password) != "" {
		hashed, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Unknown("Failed to hash password", err)
		}
		changes["password"] = hashed
	}
	if in.Role != nil {
		changes["role"] = *in.Role
	}

	if len(changes) > 0 {
		if err := db.Model(&user).Updates(changes).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperr.Validation("Email already in use")
			}
			return nil, apperr.Unknown("Failed to update user", err)
		}
	}

	if err := db.First(&user, id).Error; err != nil {
		return nil, apperr.Unknown("Failed to fetch user", err)
	}
	return &user, nil
}

// Delete removes a user with their registrations and payments, releasing
// the seats they held. Organizers must hand over their events first.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uint) error {
	if err := auth.RequireRole(p, models.RoleAdmin).Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("User not found")
			}
			return apperr.Unknown("Failed to fetch user", err)
		}

		var organized int64
		if err := tx.Model(&models.Event{}).Where("organizer_id = ?", user.ID).Count(&organized).Error; err != nil {
			return apperr.Unknown("Failed to check organized events", err)
		}
		if organized > 0 {
			return apperr.Validationf("User organizes %d events and cannot be deleted", organized)
		}

		var regs []models.Registration
		if err := tx.Where("user_id = ?", user.ID).Find(&regs).Error; err != nil {
			return apperr.Unknown("Failed to fetch registrations", err)
		}
		for _, r := range regs {
			if err := tx.Where("registration_id = ?", r.ID).Delete(&models.Payment{}).Error; err != nil {
				return apperr.Unknown("Failed to delete payments", err)
			}
			if err := tx.Delete(&r).Error; err != nil {
				return apperr.Unknown("Failed to delete registration", err)
			}
			if err := tx.Model(&models.Event{}).Where("id = ?", r.EventID).
				UpdateColumn("seats_booked", gorm.Expr("seats_booked - ?", r.SeatCount())).Error; err != nil {
				return apperr.Unknown("Failed to release seats", err)
			}
		}

		if err := tx.Delete(&user).Error; err != nil {
			return apperr.Unknown("Failed to delete user", err)
		}
		s.log.Info().Uint("user_id", user.ID).Int("registrations", len(regs)).Msg("user deleted")
		return nil
	})
}

func (s *Service) withToken(user models.User) (*AuthResponse, error) {
	token, err := auth.GenerateToken(s.config, user.ID, user.Role)
	if err != nil {
		return nil, apperr.Unknown("Failed to generate token", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

func emailTaken(db *gorm.DB, email string, except uint) (bool, error) {
	var n int64
	if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, except).Count(&n).Error; err != nil {
		return false, apperr.Unknown("Failed to check email", err)
	}
	return n > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
