package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// RabbitClient publishes to a direct exchange and consumes from one
// queue bound to every notification kind.
type RabbitClient struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	log      *zerolog.Logger
}

func NewRabbitClient(url, exchange, queue string, log *zerolog.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	client := &RabbitClient{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
		log:      log,
	}

	if err := client.declare(); err != nil {
		client.Close()
		return nil, err
	}

	log.Info().Str("exchange", exchange).Str("queue", queue).Msg("RabbitMQ initialized")
	return client, nil
}

func (c *RabbitClient) declare() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	for _, kind := range []Kind{KindRegistrationCreated, KindRegistrationPaid} {
		if err := c.channel.QueueBind(c.queue, string(kind), c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", kind, err)
		}
	}
	return nil
}

func (c *RabbitClient) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	err = c.channel.PublishWithContext(ctx, c.exchange, string(msg.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Kind, err)
	}
	c.log.Debug().Str("kind", string(msg.Kind)).Uint("registration_id", msg.RegistrationID).Msg("notification published")
	return nil
}

// Consume feeds deliveries to handler until ctx is cancelled or the
// channel closes. Undecodable messages are dropped, handler failures
// are requeued once.
func (c *RabbitClient) Consume(ctx context.Context, handler func(Message) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.log.Info().Str("queue", c.queue).Msg("consuming notifications")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			msg, err := Decode(d.Body)
			if err != nil {
				c.log.Error().Err(err).Str("body", string(d.Body)).Msg("dropping malformed notification")
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(msg); err != nil {
				c.log.Warn().Err(err).Uint("registration_id", msg.RegistrationID).Msg("failed to process notification")
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *RabbitClient) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info().Msg("RabbitMQ connection closed")
}
