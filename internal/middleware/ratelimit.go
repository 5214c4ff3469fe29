package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
)

// Limiter counts hits per key inside a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit throttles a route per caller: the principal when Protect ran
// first, the client IP otherwise. Limiter failures let the request through.
func RateLimit(limiter Limiter, limit int, window time.Duration, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := "ip:" + c.ClientIP()
		if p, ok := PrincipalFrom(c); ok {
			caller = fmt.Sprintf("user:%d", p.UserID)
		}
		key := c.Request.Method + ":" + c.FullPath() + ":" + caller

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			abort(c, apperr.RateLimited("Too many requests, please try again later"))
			return
		}
		c.Next()
	}
}
