package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"masterhub/internal/model"
)

type PayoutSource interface {
	AwaitingPayout(ctx context.Context, limit int) ([]model.Order, error)
	CreatePayout(ctx context.Context, orderID int64) (model.Payout, error)
}

// PayoutWorker creates payouts for done orders whose payout was not created
// when they were completed.
type PayoutWorker struct {
	payouts   PayoutSource
	interval  time.Duration
	batchSize int
}

func NewPayoutWorker(payouts PayoutSource, interval time.Duration, batchSize int) *PayoutWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &PayoutWorker{
		payouts:   payouts,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *PayoutWorker) Start(ctx context.Context) {
	slog.Info("starting payout worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("payout worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				slog.Error("batch processing failed", "error", err)
			}
		}
	}
}

// ProcessBatch creates payouts for one batch of orders and returns how many
// it created. Orders paid out concurrently by someone else are skipped.
func (w *PayoutWorker) ProcessBatch(ctx context.Context) (int, error) {
	orders, err := w.payouts.AwaitingPayout(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get orders awaiting payout: %w", err)
	}

	created := 0
	for _, order := range orders {
		payout, err := w.payouts.CreatePayout(ctx, order.ID)
		if err != nil {
			if errors.Is(err, model.ErrConflict) || errors.Is(err, model.ErrInvalidTransition) {
				continue
			}
			slog.Error("failed to create payout", "order_id", order.ID, "error", err)
			continue
		}
		created++
		slog.Info("payout created", "order_id", order.ID, "payout_id", payout.ID,
			"amount_master", payout.AmountMaster)
	}

	return created, nil
}
