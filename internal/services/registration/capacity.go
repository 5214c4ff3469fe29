package registration

import (
	"strings"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

// RequestedSeats defaults an absent seat count to one.
func RequestedSeats(seats *int) (int, error) {
	if seats == nil {
		return 1, nil
	}
	if *seats <= 0 {
		return 0, apperr.Validation("Number of seats must be at least 1")
	}
	return *seats, nil
}

// Remaining is the number of seats still free, never below zero.
func Remaining(capacity, taken int) int {
	if taken >= capacity {
		return 0
	}
	return capacity - taken
}

// Admit checks a request against the seats already taken.
func Admit(capacity, taken, requested int) error {
	if taken+requested > capacity {
		return apperr.CapacityExceeded(Remaining(capacity, taken))
	}
	return nil
}

func Amount(price float64, seats int) float64 {
	return price * float64(seats)
}

// InitialPaymentStatus: free registrations start out paid.
func InitialPaymentStatus(amount float64) string {
	if amount == 0 {
		return models.PaymentPaid
	}
	return models.PaymentPending
}

// Snapshot fills the attendee details, falling back to the caller's
// profile for name and email.
func Snapshot(p auth.Principal, given models.AttendeeDetails) models.AttendeeDetails {
	out := models.AttendeeDetails{
		Name:  strings.TrimSpace(given.Name),
		Email: strings.TrimSpace(given.Email),
		Phone: strings.TrimSpace(given.Phone),
	}
	if out.Name == "" {
		out.Name = p.Name
	}
	if out.Email == "" {
		out.Email = p.Email
	}
	return out
}

// SeatsTaken sums the seats of every registration, whatever its status.
func SeatsTaken(regs []models.Registration) int {
	total := 0
	for _, r := range regs {
		total += r.SeatCount()
	}
	return total
}
