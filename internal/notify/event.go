// Package notify carries the marketplace's outbound event contract. Services
// collect events while a transaction runs and emit them only after it commits;
// delivery is asynchronous and never affects the state change that produced them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	BidSubmitted   EventType = "bid_submitted"
	BidUpdated     EventType = "bid_updated"
	BidRejected    EventType = "bid_rejected"
	OrderAssigned  EventType = "order_assigned"
	OrderCancelled EventType = "order_cancelled"
	OrderCompleted EventType = "order_completed"
	PayoutApproved EventType = "payout_approved"
	PayoutRejected EventType = "payout_rejected"
)

type Event struct {
	ID          uuid.UUID      `json:"id"`
	Type        EventType      `json:"event_type"`
	OrderID     int64          `json:"order_id"`
	RecipientID int64          `json:"recipient_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewEvent(typ EventType, orderID, recipientID int64, payload map[string]any) Event {
	return Event{
		ID:          uuid.New(),
		Type:        typ,
		OrderID:     orderID,
		RecipientID: recipientID,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
}

// Emitter accepts committed events. Implementations must not block on delivery
// and report failures through logging only.
type Emitter interface {
	Emit(ctx context.Context, events ...Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, ...Event) {}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns recorded events of the given type.
func (r *Recorder) OfType(typ EventType) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
