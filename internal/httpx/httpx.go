// Package httpx holds the request parsing shared by the gin handlers.
package httpx

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/pkg/validator"
)

// ParamID reads a numeric path parameter. what names the resource in the
// error message, e.g. "event".
func ParamID(c *gin.Context, name, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("Invalid %s ID", what)
	}
	return uint(id), nil
}

// BindJSON decodes the body into dst and runs its validate tags.
func BindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("Invalid request data")
	}
	if err := validator.Validate(c.Request.Context(), dst); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

// Fail hands err to the error middleware.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
}
