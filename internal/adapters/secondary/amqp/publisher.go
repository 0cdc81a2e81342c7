// Package amqp publishes lifecycle events to a RabbitMQ queue.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// DefaultQueue is the queue lifecycle events are routed to.
const DefaultQueue = "ticket.lifecycle"

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// connector opens a channel and returns a func closing everything it opened.
type connector func(url string) (channel, func(), error)

func dialChannel(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

// Publisher is a ports.EventRecorder that sends every event to a durable
// queue as persistent JSON. The connection is opened on first use and
// reopened after a failed publish.
type Publisher struct {
	url     string
	queue   string
	connect connector
	logger  *slog.Logger

	mu      sync.Mutex
	ch      channel
	release func()
}

var _ ports.EventRecorder = (*Publisher)(nil)

// NewPublisher creates a publisher for url. An empty queue uses DefaultQueue.
func NewPublisher(url, queue string, logger *slog.Logger) *Publisher {
	return newPublisher(url, queue, dialChannel, logger)
}

func newPublisher(url, queue string, connect connector, logger *slog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:     url,
		queue:   queue,
		connect: connect,
		logger:  logger.With("component", "amqp_publisher"),
	}
}

// Record publishes the event. A broken channel is dropped so the next
// call reconnects.
func (p *Publisher) Record(ctx context.Context, event domain.Event) error {
	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return err
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.Warn("publish failed, resetting channel", "type", event.Type, "error", err)
		p.reset()
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// ensureChannel must be called with mu held.
func (p *Publisher) ensureChannel() error {
	if p.ch != nil {
		return nil
	}

	ch, release, err := p.connect(p.url)
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		release()
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	p.ch, p.release = ch, release
	p.logger.Info("connected to broker", "queue", p.queue)
	return nil
}

func (p *Publisher) reset() {
	if p.release != nil {
		p.release()
	}
	p.ch, p.release = nil, nil
}

func newPublishing(event domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts.UTC(),
		Type:         string(event.Type),
		Headers: amqp.Table{
			"scope_id":    event.ScopeID,
			"resource_id": event.ResourceID,
		},
		Body: body,
	}, nil
}
