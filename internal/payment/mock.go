package payment

import (
	"context"
	"math/rand"

	"github.com/google/uuid"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Processor decides the outcome of a charge.
type Processor interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)
}

type ChargeRequest struct {
	Amount         float64
	Currency       string
	Method         string
	UserID         uint
	RegistrationID uint
}

type ChargeResponse struct {
	Reference string
	Amount    float64
	Status    string
	Success   bool
	Error     string
}

// MockProcessor settles charges locally; no money moves.
type MockProcessor struct {
	successRate float64
	roll        func() float64
}

func NewMockProcessor(cfg *config.Config) *MockProcessor {
	return &MockProcessor{
		successRate: cfg.MockPaymentSuccessRate,
		roll:        rand.Float64,
	}
}

func (p *MockProcessor) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &ChargeResponse{
		Reference: "pay_mock_" + uuid.NewString(),
		Amount:    req.Amount,
		Status:    StatusSucceeded,
		Success:   true,
	}

	// Determine success based on configured success rate
	if p.roll() >= p.successRate {
		resp.Status = StatusFailed
		resp.Success = false
		resp.Error = "Mock payment failure - insufficient funds"
	}

	return resp, nil
}
