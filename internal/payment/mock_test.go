package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
)

func TestChargeFollowsSuccessRate(t *testing.T) {
	ctx := context.Background()
	req := &ChargeRequest{Amount: 40, Currency: "usd", Method: "Credit Card", UserID: 1, RegistrationID: 2}

	always := NewMockProcessor(&config.Config{MockPaymentSuccessRate: 1})
	resp, err := always.Charge(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, StatusSucceeded, resp.Status)
	assert.Equal(t, 40.0, resp.Amount)
	assert.True(t, strings.HasPrefix(resp.Reference, "pay_mock_"))

	never := NewMockProcessor(&config.Config{MockPaymentSuccessRate: 0})
	resp, err = never.Charge(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, StatusFailed, resp.Status)
	assert.NotEmpty(t, resp.Error)
}

func TestChargeUsesRoll(t *testing.T) {
	p := &MockProcessor{successRate: 0.5, roll: func() float64 { return 0.7 }}

	resp, err := p.Charge(context.Background(), &ChargeRequest{Amount: 10})
	require.NoError(t, err)
	assert.False(t, resp.Success)

	p.roll = func() float64 { return 0.2 }
	resp, err = p.Charge(context.Background(), &ChargeRequest{Amount: 10})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestChargeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockProcessor(&config.Config{MockPaymentSuccessRate: 1}).Charge(ctx, &ChargeRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
