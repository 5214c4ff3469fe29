// Package notify carries registration notifications from the API to the
// notifier over RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindRegistrationCreated Kind = "registration.created"
	KindRegistrationPaid    Kind = "registration.paid"
)

type Message struct {
	Kind           Kind      `json:"kind"`
	RegistrationID uint      `json:"registrationId"`
	EventID        uint      `json:"eventId"`
	EventTitle     string    `json:"eventTitle"`
	AttendeeName   string    `json:"attendeeName"`
	AttendeeEmail  string    `json:"attendeeEmail"`
	Seats          int       `json:"seats"`
	Amount         float64   `json:"amount"`
	PaymentStatus  string    `json:"paymentStatus"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Publisher hands a message to the broker. Callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Nop drops every message; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Message) error { return nil }

func Decode(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("decode notification: %w", err)
	}
	return msg, nil
}

// Render builds the subject and body sent to the attendee.
func Render(msg Message) (subject, body string, err error) {
	switch msg.Kind {
	case KindRegistrationCreated:
		subject = fmt.Sprintf("You are registered for %s", msg.EventTitle)
		body = fmt.Sprintf("Hello %s,\n\nYour registration for \"%s\" is confirmed for %d seat(s).", msg.AttendeeName, msg.EventTitle, msg.Seats)
		if msg.PaymentStatus == "pending" {
			body += fmt.Sprintf("\nPlease complete the payment of %.2f to secure your place.", msg.Amount)
		}
	case KindRegistrationPaid:
		subject = fmt.Sprintf("Payment received for %s", msg.EventTitle)
		body = fmt.Sprintf("Hello %s,\n\nWe received your payment of %.2f for \"%s\". See you there!", msg.AttendeeName, msg.Amount, msg.EventTitle)
	default:
		return "", "", fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	return subject, body, nil
}

// LogDispatcher renders each message and logs the dispatch instead of
// sending mail.
func LogDispatcher(log *zerolog.Logger) func(Message) error {
	return func(msg Message) error {
		subject, body, err := Render(msg)
		if err != nil {
			return err
		}
		log.Info().
			Str("kind", string(msg.Kind)).
			Uint("registration_id", msg.RegistrationID).
			Str("to", msg.AttendeeEmail).
			Str("subject", subject).
			Str("body", body).
			Msg("notification dispatched")
		return nil
	}
}
