package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sorso/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeyReservationCreated is the topic routing key of new reservations
const RoutingKeyReservationCreated = "reservation.created"

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes alerts to a durable topic exchange
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	log      *logger.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher dials the broker and declares the exchange
func NewRabbitMQPublisher(url, exchange string, log *logger.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	p := newRabbitMQPublisherWithChannel(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisherWithChannel(ch amqpChannel, exchange string, log *logger.Logger) *RabbitMQPublisher {
	if log == nil {
		log = logger.Discard()
	}
	return &RabbitMQPublisher{channel: ch, exchange: exchange, log: log.WithComponent("rabbitmq-publisher")}
}

func (p *RabbitMQPublisher) PublishReservationAlert(ctx context.Context, alert *ReservationAlert) error {
	alert.Status = NotificationStatusQueued
	alert.UpdatedAt = time.Now()

	body, err := alert.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    alert.ID.String(),
		Timestamp:    alert.CreatedAt.UTC(),
		Type:         string(alert.Type),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyReservationCreated, false, false, pub); err != nil {
		alert.MarkFailed(err)
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
