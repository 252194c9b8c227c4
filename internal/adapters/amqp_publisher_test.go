package adapters

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
)

type recordingSender struct {
	events []*amqp.LedgerEvent
	closed bool
}

func (s *recordingSender) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSender) Close() error {
	s.closed = true
	return nil
}

func TestAMQPPublisherMapsEvents(t *testing.T) {
	sender := &recordingSender{}
	pub := NewAMQPPublisher(sender)
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), services.Event{
		Type:          services.EventTransactionUpdated,
		TransactionID: "tx-42",
		Timestamp:     at,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sender.events) != 1 {
		t.Fatalf("sent %d events", len(sender.events))
	}
	got := sender.events[0]
	if got.Type != "transaction.updated" || got.TransactionID != "tx-42" || !got.Timestamp.Equal(at) {
		t.Errorf("event = %+v", got)
	}

	if err := pub.Close(); err != nil || !sender.closed {
		t.Errorf("Close: err=%v closed=%v", err, sender.closed)
	}
}
