package app

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"carpool/internal/config"
	"carpool/internal/messaging"
)

// NewRabbitPublisher dials the broker and returns a notification publisher
// together with the connection to close on shutdown.
func NewRabbitPublisher(cfg config.RabbitMQConfig, logger logrus.FieldLogger) (*messaging.RabbitPublisher, *amqp.Connection, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	publisher, err := messaging.NewRabbitPublisher(ch, cfg.Exchange, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	go func() {
		if err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1)); ok && err != nil {
			logger.WithError(err).Error("rabbitmq connection closed")
		}
	}()

	return publisher, conn, nil
}
