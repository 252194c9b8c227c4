package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerEvent is a lightweight notification of a committed ledger change.
// It carries only the transaction id; consumers read the row from the store.
type LedgerEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(eventType, transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Type:          eventType,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event. The type is required.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("ledger event without type")
	}
	return &msg, nil
}
