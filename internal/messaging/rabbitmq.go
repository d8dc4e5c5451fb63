package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"carpool/internal/service"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Ensure interfaces are satisfied.
var (
	_ Channel           = (*amqp.Channel)(nil)
	_ service.Publisher = (*RabbitPublisher)(nil)
)

// RabbitPublisher publishes notifications to a topic exchange. The routing
// key is the notification type, so consumers can bind per event.
type RabbitPublisher struct {
	exchange string
	logger   logrus.FieldLogger

	mu sync.Mutex
	ch Channel
}

// NewRabbitPublisher declares the exchange on ch and returns a publisher.
func NewRabbitPublisher(ch Channel, exchange string, logger logrus.FieldLogger) (*RabbitPublisher, error) {
	if exchange == "" {
		return nil, errors.New("rabbitmq: exchange is required")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	return &RabbitPublisher{exchange: exchange, logger: logger, ch: ch}, nil
}

// Publish sends the notification as a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, n service.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    n.ID,
		Type:         string(n.Type),
		Timestamp:    createdAt,
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, string(n.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", n.Type, err)
	}

	p.logger.WithFields(logrus.Fields{
		"event":     n.Type,
		"recipient": n.RecipientID,
		"exchange":  p.exchange,
	}).Debug("notification published")

	return nil
}

// Close closes the underlying channel.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
