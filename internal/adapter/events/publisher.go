// Package events publishes identity decisions for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/polkiloo/facecheck/internal/domain/model"
)

// Publisher delivers identity events.
type Publisher interface {
	Publish(ctx context.Context, event model.IdentityEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.IdentityEvent) error { return nil }

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type closer interface {
	Close() error
}

// RabbitPublisher sends events as persistent JSON messages to a durable queue.
type RabbitPublisher struct {
	mu     sync.Mutex
	conn   closer
	ch     amqpChannel
	queue  string
	logger *slog.Logger
}

// NewRabbitPublisher dials the broker and declares the queue.
func NewRabbitPublisher(url, queue string, logger *slog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	logger.Info("rabbitmq publisher ready", slog.String("queue", queue))
	return newRabbitPublisher(conn, ch, queue, logger), nil
}

func newRabbitPublisher(conn closer, ch amqpChannel, queue string, logger *slog.Logger) *RabbitPublisher {
	return &RabbitPublisher{conn: conn, ch: ch, queue: queue, logger: logger}
}

// Publish encodes event as JSON and routes it to the queue through the default exchange.
func (p *RabbitPublisher) Publish(ctx context.Context, event model.IdentityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         string(event.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close shuts down the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			p.logger.Warn("close rabbitmq channel", slog.String("error", err.Error()))
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
