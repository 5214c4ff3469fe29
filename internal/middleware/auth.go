package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

const principalKey = "principal"

// Authenticator verifies bearer tokens and resolves the caller. It does
// not authorize; services run their own policy checks.
type Authenticator struct {
	db     *gorm.DB
	config *config.Config
}

func NewAuthenticator(db *gorm.DB, cfg *config.Config) *Authenticator {
	return &Authenticator{db: db, config: cfg}
}

func (a *Authenticator) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, apperr.NotAuthorized("Not authorized, no token"))
			return
		}

		claims, err := auth.ValidateToken(a.config, tokenString)
		if err != nil {
			abort(c, apperr.NotAuthorized("Not authorized, token failed"))
			return
		}

		// the role in the token may be stale, the stored user wins
		var user models.User
		if err := a.db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, apperr.NotAuthorized("Not authorized, token failed"))
				return
			}
			abort(c, apperr.Unknown("Failed to load user", err))
			return
		}

		c.Set(principalKey, auth.Principal{
			UserID: user.ID,
			Role:   user.Role,
			Name:   user.Name,
			Email:  user.Email,
		})
		c.Next()
	}
}

// PrincipalFrom returns the caller stored by Protect.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// MustPrincipal is PrincipalFrom for routes mounted behind Protect.
func MustPrincipal(c *gin.Context) auth.Principal {
	p, ok := PrincipalFrom(c)
	if !ok {
		panic("middleware: no principal on a protected route")
	}
	return p
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
