package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateToken(cfg, 42, models.RoleOrganizer)
	require.NoError(t, err)

	claims, err := ValidateToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleOrganizer, claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(testConfig(), 1, models.RoleUser)
	require.NoError(t, err)

	other := testConfig()
	other.JWTSecret = "different"
	_, err = ValidateToken(other, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testConfig()
	cfg.JWTExpiry = -time.Minute

	token, err := GenerateToken(cfg, 1, models.RoleUser)
	require.NoError(t, err)

	_, err = ValidateToken(cfg, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc.def.ghi"} {
		_, err := ExtractTokenFromHeader(header)
		assert.ErrorIs(t, err, ErrMissingToken, header)
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("123456")
	require.NoError(t, err)

	assert.NotEqual(t, "123456", hashed)
	assert.True(t, CheckPassword(hashed, "123456"))
	assert.False(t, CheckPassword(hashed, "654321"))
}

func TestPolicies(t *testing.T) {
	admin := Principal{UserID: 1, Role: models.RoleAdmin}
	owner := Principal{UserID: 2, Role: models.RoleOrganizer}
	other := Principal{UserID: 3, Role: models.RoleOrganizer}
	user := Principal{UserID: 4, Role: models.RoleUser}

	t.Run("require role", func(t *testing.T) {
		assert.True(t, RequireRole(owner, models.RoleOrganizer, models.RoleAdmin).Allowed)
		d := RequireRole(user, models.RoleOrganizer, models.RoleAdmin)
		assert.False(t, d.Allowed)
		assert.Equal(t, "User role user is not authorized to access this route", d.Reason)
	})

	t.Run("register is for users only", func(t *testing.T) {
		assert.True(t, CanRegister(user).Allowed)
		assert.False(t, CanRegister(owner).Allowed)
		assert.False(t, CanRegister(admin).Allowed)
	})

	t.Run("manage event", func(t *testing.T) {
		assert.True(t, CanManageEvent(admin, 2, "update this event").Allowed)
		assert.True(t, CanManageEvent(owner, 2, "update this event").Allowed)

		d := CanManageEvent(other, 2, "update this event")
		assert.False(t, d.Allowed)
		assert.True(t, apperr.Is(d.Err(), apperr.KindForbidden))
		assert.Equal(t, "Not authorized to update this event", d.Reason)
	})

	t.Run("pay registration", func(t *testing.T) {
		assert.True(t, CanPayRegistration(user, 4).Allowed)
		assert.False(t, CanPayRegistration(admin, 4).Allowed)
		assert.True(t, CanRecordPayment(admin, 4).Allowed)
		assert.False(t, CanRecordPayment(other, 4).Allowed)
	})

	assert.NoError(t, CanRegister(user).Err())
}
