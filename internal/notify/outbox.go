package notify

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"
)

var outboxPrefix = []byte("evt/")

// Outbox is a durable local queue of events waiting to be published.
// Keys are outboxPrefix followed by a big-endian sequence number so
// iteration order is emission order.
type Outbox struct {
	db  *pebble.DB
	mu  sync.Mutex
	seq uint64
}

// PendingEvent is an outbox entry together with its sequence number.
type PendingEvent struct {
	Seq   uint64
	Event Event
}

func OpenOutbox(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}

	o := &Outbox{db: db}
	if err := o.loadSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Emit appends events to the outbox. Failures are logged and swallowed.
func (o *Outbox) Emit(_ context.Context, events ...Event) {
	for _, ev := range events {
		if err := o.Append(ev); err != nil {
			slog.Error("failed to append event to outbox",
				"event_type", ev.Type, "order_id", ev.OrderID, "error", err)
		}
	}
}

func (o *Outbox) Append(ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	seq := o.seq + 1
	if err := o.db.Set(outboxKey(seq), value, pebble.Sync); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	o.seq = seq
	return nil
}

// Pending returns up to limit events in emission order.
func (o *Outbox) Pending(limit int) ([]PendingEvent, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: outboxPrefix,
		UpperBound: outboxUpperBound(),
	})
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	defer iter.Close()

	var pending []PendingEvent
	for iter.First(); iter.Valid() && len(pending) < limit; iter.Next() {
		seq, err := parseOutboxKey(iter.Key())
		if err != nil {
			return nil, err
		}
		var ev Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", seq, err)
		}
		pending = append(pending, PendingEvent{Seq: seq, Event: ev})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return pending, nil
}

// Ack removes a published event.
func (o *Outbox) Ack(seq uint64) error {
	if err := o.db.Delete(outboxKey(seq), pebble.Sync); err != nil {
		return fmt.Errorf("delete event %d: %w", seq, err)
	}
	return nil
}

func (o *Outbox) loadSeq() error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: outboxPrefix,
		UpperBound: outboxUpperBound(),
	})
	if err != nil {
		return fmt.Errorf("open iterator: %w", err)
	}
	defer iter.Close()

	if iter.Last() {
		seq, err := parseOutboxKey(iter.Key())
		if err != nil {
			return err
		}
		o.seq = seq
	}
	return iter.Error()
}

func outboxKey(seq uint64) []byte {
	key := make([]byte, len(outboxPrefix)+8)
	copy(key, outboxPrefix)
	binary.BigEndian.PutUint64(key[len(outboxPrefix):], seq)
	return key
}

func outboxUpperBound() []byte {
	upper := append([]byte(nil), outboxPrefix...)
	upper[len(upper)-1]++
	return upper
}

func parseOutboxKey(key []byte) (uint64, error) {
	if len(key) != len(outboxPrefix)+8 {
		return 0, errors.New("invalid outbox key")
	}
	return binary.BigEndian.Uint64(key[len(outboxPrefix):]), nil
}
