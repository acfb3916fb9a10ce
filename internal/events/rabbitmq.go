package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes events to a durable topic exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	mu       sync.Mutex
	logger   zerolog.Logger
}

// NewRabbitMQPublisher dials url and declares the exchange.
func NewRabbitMQPublisher(url, exchange string, logger zerolog.Logger) (*RabbitMQPublisher, error) {
	logger = logger.With().Str("component", "event-publisher").Logger()

	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to rabbitmq")
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		logger.Error().Err(err).Str("exchange", exchange).Msg("failed to declare exchange")
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	logger.Info().Str("exchange", exchange).Msg("event publisher connected")

	return &RabbitMQPublisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish sends event with routing key order.<status>.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.OrderID.String() + ":" + string(event.Status),
		Timestamp:    event.OccurredAt,
		Type:         event.Event,
		Body:         body,
	})
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("order_id", event.OrderID.String()).
			Str("routing_key", event.RoutingKey()).
			Msg("failed to publish event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().
		Str("order_id", event.OrderID.String()).
		Str("routing_key", event.RoutingKey()).
		Msg("event published")

	return nil
}

// Close closes the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to close channel")
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
