package amqp

import (
	"encoding/json"
	"time"

	"financaspro/internal/core"
)

// Event kinds carried on the ledger events queue.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
	EventInvoicePaid        = "invoice.paid"
	EventBillPaid           = "bill.paid"
	EventSnapshotChanged    = "snapshot.changed"
)

// LedgerEvent is the lightweight notification published after a ledger
// mutation lands in storage. It carries only identifiers; consumers load
// the current snapshot themselves, so a stale or replayed event is harmless.
type LedgerEvent struct {
	Kind      string        `json:"kind"`
	EntityID  core.ID       `json:"entityId,omitempty"`
	Month     core.MonthKey `json:"month,omitempty"`
	Version   int64         `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(kind string, entityID core.ID, month core.MonthKey, version int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		EntityID:  entityID,
		Month:     month,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
