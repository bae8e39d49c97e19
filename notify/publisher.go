package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys published on the events exchange.
const (
	TopicAttendeeRegistered = "attendee.registered"
)

// AttendeeRegisteredMessage is published once per applied registration.
type AttendeeRegisteredMessage struct {
	EventID       string `json:"event_id"`
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id,omitempty"`
	AttendeeCount int    `json:"attendee_count"`
	RegisteredAt  int64  `json:"registered_at"` // Unix timestamp
}

type Publisher interface {
	Publish(ctx context.Context, message any, key string) error
	Close() error
}

// Noop drops every message. Used when no broker URL is configured.
type Noop struct{}

func (Noop) Publish(context.Context, any, string) error { return nil }
func (Noop) Close() error                               { return nil }

// Broker publishes JSON messages to a topic exchange and redials when the
// connection has dropped.
type Broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	url      string
}

func NewBroker(url, exchange string) (*Broker, error) {
	b := &Broker{url: url, exchange: exchange}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

// connect must be called with mu held (or before the broker is shared).
func (b *Broker) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
	}
	b.conn, b.channel = conn, ch
	return nil
}

func (b *Broker) Publish(ctx context.Context, message any, key string) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() || b.channel == nil || b.channel.IsClosed() {
		if err := b.connect(); err != nil {
			return err
		}
	}
	err = b.channel.PublishWithContext(ctx, b.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	log.Printf("notify: published %s %s", key, body)
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil && !b.channel.IsClosed() {
		if err := b.channel.Close(); err != nil {
			return err
		}
	}
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn.Close()
	}
	return nil
}
