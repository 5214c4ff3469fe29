package registration

import (
	"strings"

	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

// Matches reports whether search hits the attendee or user name
// (case-insensitive) or the attendee phone (case-sensitive). With
// withEvent the event title is matched too.
func Matches(r models.Registration, search string, withEvent bool) bool {
	lower := strings.ToLower(search)

	if strings.Contains(strings.ToLower(r.AttendeeDetails.Name), lower) {
		return true
	}
	if r.User != nil && strings.Contains(strings.ToLower(r.User.Name), lower) {
		return true
	}
	if r.AttendeeDetails.Phone != "" && strings.Contains(r.AttendeeDetails.Phone, search) {
		return true
	}
	return withEvent && r.Event != nil && strings.Contains(strings.ToLower(r.Event.Title), lower)
}

// Filter keeps the registrations matching search; an empty search keeps all.
func Filter(regs []models.Registration, search string, withEvent bool) []models.Registration {
	if search == "" {
		return regs
	}
	out := make([]models.Registration, 0, len(regs))
	for _, r := range regs {
		if Matches(r, search, withEvent) {
			out = append(out, r)
		}
	}
	return out
}
