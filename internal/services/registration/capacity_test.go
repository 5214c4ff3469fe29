package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

func intPtr(v int) *int { return &v }

func TestRequestedSeats(t *testing.T) {
	seats, err := RequestedSeats(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, seats)

	seats, err = RequestedSeats(intPtr(4))
	require.NoError(t, err)
	assert.Equal(t, 4, seats)

	for _, bad := range []int{0, -1, -50} {
		_, err := RequestedSeats(intPtr(bad))
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.EqualError(t, err, "Number of seats must be at least 1")
	}
}

func TestAdmit(t *testing.T) {
	assert.NoError(t, Admit(2, 0, 2))
	assert.NoError(t, Admit(10, 7, 3))

	err := Admit(2, 2, 1)
	assert.True(t, apperr.Is(err, apperr.KindCapacityExceeded))
	assert.EqualError(t, err, "Only 0 seats remaining for this event")

	err = Admit(10, 7, 4)
	assert.EqualError(t, err, "Only 3 seats remaining for this event")

	// oversubscribed events report zero, not a negative number
	err = Admit(5, 8, 1)
	assert.EqualError(t, err, "Only 0 seats remaining for this event")
}

func TestPricing(t *testing.T) {
	assert.Equal(t, 90.0, Amount(45, 2))
	assert.Equal(t, 0.0, Amount(0, 3))

	assert.Equal(t, models.PaymentPaid, InitialPaymentStatus(0))
	assert.Equal(t, models.PaymentPending, InitialPaymentStatus(12.5))
}

func TestSnapshot(t *testing.T) {
	p := auth.Principal{UserID: 1, Role: models.RoleUser, Name: "Regular User", Email: "user@example.com"}

	got := Snapshot(p, models.AttendeeDetails{})
	assert.Equal(t, models.AttendeeDetails{Name: "Regular User", Email: "user@example.com"}, got)

	got = Snapshot(p, models.AttendeeDetails{Name: "Jane Doe", Phone: "555-1234"})
	assert.Equal(t, models.AttendeeDetails{Name: "Jane Doe", Email: "user@example.com", Phone: "555-1234"}, got)
}

func TestSeatsTakenCountsMissingSeatsAsOne(t *testing.T) {
	regs := []models.Registration{
		{Seats: 3},
		{Seats: 0},
		{Seats: 1, Status: models.RegistrationCancelled},
	}
	assert.Equal(t, 5, SeatsTaken(regs))
}

func TestFilter(t *testing.T) {
	regs := []models.Registration{
		{ID: 1, AttendeeDetails: models.AttendeeDetails{Name: "Jane Doe"}},
		{ID: 2, AttendeeDetails: models.AttendeeDetails{Name: "Bob", Phone: "555-1234"}},
		{ID: 3, AttendeeDetails: models.AttendeeDetails{Name: ""}, User: &models.User{Name: "JANET"}},
		{ID: 4, AttendeeDetails: models.AttendeeDetails{Name: "Carl", Phone: "ext-ABC"}, Event: &models.Event{Title: "Jazz Night"}},
	}

	ids := func(rs []models.Registration) []uint {
		out := []uint{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []uint{1, 2, 3, 4}, ids(Filter(regs, "", false)))
	assert.Equal(t, []uint{1, 3}, ids(Filter(regs, "jane", false)))
	assert.Equal(t, []uint{2}, ids(Filter(regs, "555", false)))

	// phone matching is case-sensitive, names are not
	assert.Equal(t, []uint{4}, ids(Filter(regs, "ABC", false)))
	assert.Empty(t, ids(Filter(regs, "abc", false)))

	assert.Empty(t, ids(Filter(regs, "jazz", false)))
	assert.Equal(t, []uint{4}, ids(Filter(regs, "jazz", true)))
}
