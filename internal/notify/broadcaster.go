package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Broadcaster drains the outbox into a sink on a fixed interval.
type Broadcaster struct {
	outbox    *Outbox
	sink      Sink
	interval  time.Duration
	batchSize int
}

func NewBroadcaster(outbox *Outbox, sink Sink, interval time.Duration, batchSize int) *Broadcaster {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Broadcaster{
		outbox:    outbox,
		sink:      sink,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (b *Broadcaster) Start(ctx context.Context) {
	slog.Info("starting event broadcaster")
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("event broadcaster stopped")
			return
		case <-ticker.C:
			if _, err := b.Flush(ctx); err != nil {
				slog.Warn("event delivery interrupted", "error", err)
			}
		}
	}
}

// Flush publishes pending events in order and stops at the first delivery
// failure so later events are not published ahead of it.
func (b *Broadcaster) Flush(ctx context.Context) (int, error) {
	pending, err := b.outbox.Pending(b.batchSize)
	if err != nil {
		return 0, fmt.Errorf("read outbox: %w", err)
	}

	sent := 0
	for _, p := range pending {
		value, err := json.Marshal(p.Event)
		if err != nil {
			return sent, fmt.Errorf("encode event %d: %w", p.Seq, err)
		}
		key := []byte(strconv.FormatInt(p.Event.OrderID, 10))
		if err := b.sink.Send(ctx, key, value); err != nil {
			return sent, fmt.Errorf("send event %d: %w", p.Seq, err)
		}
		if err := b.outbox.Ack(p.Seq); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
