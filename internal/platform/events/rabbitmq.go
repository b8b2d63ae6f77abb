package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/lunysse/lunysse/internal/platform/breaker"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes JSON events to a durable queue through the
// default exchange.
type RabbitMQPublisher struct {
	conn      *amqp.Connection
	ch        channel
	queueName string
	cb        *gobreaker.CircuitBreaker
}

func NewRabbitMQPublisher(amqpURL, queueName string, logger zerolog.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return &RabbitMQPublisher{
		conn:      conn,
		ch:        ch,
		queueName: queueName,
		cb:        breaker.New(breaker.Publisher, logger),
	}, nil
}

func (p *RabbitMQPublisher) PublishRequestResolved(ctx context.Context, evt RequestResolved) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.Type, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.ID,
			Type:         evt.Type,
			Timestamp:    evt.OccurredAt,
			Body:         body,
		})
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
