// Package events publishes complaint lifecycle events to RabbitMQ. Publishing
// is best-effort: callers log failures and carry on, the database remains the
// source of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event types
const (
	ComplaintCreated = "complaint.created"
	ComplaintUpdated = "complaint.updated"
)

// ComplaintEvent is the message body published for every committed complaint change
type ComplaintEvent struct {
	Type            string    `json:"type"`
	ComplaintID     int64     `json:"complaint_id"`
	ComplaintNumber string    `json:"complaint_number"`
	Status          string    `json:"status"`
	PreviousStatus  string    `json:"previous_status,omitempty"`
	DepartmentID    *int64    `json:"department_id,omitempty"`
	OfficerID       *int64    `json:"officer_id,omitempty"`
	ActorID         int64     `json:"actor_id"`
	Changes         []string  `json:"changes,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher keeps one AMQP connection and channel open and publishes
// persistent JSON messages to a durable queue.
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the queue
func NewPublisher(url, queue string) (*Publisher, error) {
	p := &Publisher{url: url, queue: queue}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Publish sends the event. A closed connection is redialled once.
func (p *Publisher) Publish(ctx context.Context, event ComplaintEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		log.Printf("[events] publish failed, reconnecting: %v", err)
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
		if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
			return fmt.Errorf("rabbitmq publish failed: %w", err)
		}
	}
	return nil
}

// Close releases the channel and connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
