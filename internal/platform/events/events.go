package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing keys published on the shop exchange.
const (
	StockReserved  = "inventory.stock.reserved"
	StockReleased  = "inventory.stock.released"
	StockLow       = "inventory.stock.low"
	OrderPlaced    = "order.placed"
	OrderCancelled = "order.cancelled"
)

// Event is the envelope for every domain event.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// New wraps payload in an envelope with a fresh id.
func New(eventType string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
