// Package adapters connects the tracker service to outbound transports.
package adapters

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
)

// EventSender is the part of the AMQP client the publisher needs.
type EventSender interface {
	PublishEvent(ctx context.Context, event *amqp.LedgerEvent) error
	Close() error
}

// AMQPPublisher adapts the AMQP client to services.Publisher.
type AMQPPublisher struct {
	client EventSender
}

var _ services.Publisher = (*AMQPPublisher)(nil)

func NewAMQPPublisher(client EventSender) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

// Publish implements services.Publisher
func (p *AMQPPublisher) Publish(ctx context.Context, event services.Event) error {
	return p.client.PublishEvent(ctx, &amqp.LedgerEvent{
		Type:          string(event.Type),
		TransactionID: event.TransactionID,
		Timestamp:     event.Timestamp,
	})
}

// Close implements services.Publisher
func (p *AMQPPublisher) Close() error {
	return p.client.Close()
}
