package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
)

// ErrorHandler renders the last error a handler attached to the context
// as {"error": message, "code": kind}.
func ErrorHandler(log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := apperr.From(c.Errors.Last().Err)
		message := err.Message
		if err.Kind == apperr.KindUnknown {
			log.Error().
				Err(err.Err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("request_id", c.GetString(requestIDKey)).
				Msg(err.Message)
			if message == "" {
				message = "Internal server error"
			}
		}

		c.JSON(err.Status(), gin.H{
			"error": message,
			"code":  err.Kind,
		})
	}
}

// NotFound handles unmatched routes.
func NotFound(c *gin.Context) {
	_ = c.Error(apperr.NotFound("Not Found - " + c.Request.URL.Path))
}
