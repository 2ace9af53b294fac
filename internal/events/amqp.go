package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher keeps one connection and publishes each event as a persistent
// message on the default exchange, routed to a durable queue named after the event type.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	for _, key := range RoutingKeys {
		if _, err := ch.QueueDeclare(key, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("rabbitmq queue declare %s: %w", key, err)
		}
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event BookingEvent) error {
	msg, err := buildPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		log.Printf("level=warn msg=rabbitmq reconnecting")
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	if err := p.ch.PublishWithContext(ctx, "", event.Type, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func buildPublishing(event BookingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		MessageId:    fmt.Sprintf("%s:%d:%d", event.Type, event.BookingID, event.OccurredAt.UnixNano()),
		Type:         event.Type,
		Body:         body,
	}, nil
}

// NewPublisher dials RabbitMQ when url is set and degrades to a no-op otherwise.
func NewPublisher(url string) Publisher {
	if url == "" {
		return NoopPublisher{}
	}
	p, err := NewAMQPPublisher(url)
	if err != nil {
		log.Printf("level=warn msg=rabbitmq unavailable, events disabled err=%v", err)
		return NoopPublisher{}
	}
	return p
}
