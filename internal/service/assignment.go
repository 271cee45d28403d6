package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"masterhub/internal/model"
	"masterhub/internal/notify"
)

// PayoutCreator is notified after an order is completed.
type PayoutCreator interface {
	CreatePayout(ctx context.Context, orderID int64) (model.Payout, error)
}

// AssignmentService is the only path from a new order to an assigned one.
type AssignmentService struct {
	repo    AssignmentRepository
	events  notify.Emitter
	payouts PayoutCreator
}

// NewAssignmentService builds the coordinator. payouts may be nil, in which
// case payouts are left to the background worker.
func NewAssignmentService(repo AssignmentRepository, events notify.Emitter, payouts PayoutCreator) *AssignmentService {
	return &AssignmentService{repo: repo, events: events, payouts: payouts}
}

// SelectBid binds the bid's master to the order and rejects every other bid.
//
// Preconditions are checked on an unlocked snapshot first, so a request made
// against an order that is already assigned fails with ErrInvalidTransition.
// The write itself holds the order row lock; a caller that passed the snapshot
// check but finds the order taken once it holds the lock lost a race and gets
// ErrConflict.
func (s *AssignmentService) SelectBid(ctx context.Context, orderID, bidID int64, actor model.Actor) (model.Order, error) {
	bid, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return model.Order{}, fmt.Errorf("select bid: %w", err)
	}
	if bid.OrderID != orderID {
		return model.Order{}, fmt.Errorf("select bid: %w: bid %d is not on order %d", model.ErrNotFound, bidID, orderID)
	}

	order, err := s.repo.GetOrder(ctx, bid.OrderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("select bid: %w", err)
	}
	if order.ClientID != actor.ID {
		return model.Order{}, fmt.Errorf("select bid: %w: only the client of order %d can select a bid", model.ErrForbidden, orderID)
	}
	if err := checkOrderTransition(order, model.OrderAssigned); err != nil {
		return model.Order{}, fmt.Errorf("select bid: %w", err)
	}
	if bid.Status != model.BidActive {
		return model.Order{}, fmt.Errorf("select bid: %w: bid %d is %s", model.ErrInvalidTransition, bidID, bid.Status)
	}

	var (
		assigned model.Order
		selected model.Bid
		rejected []model.Bid
	)
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		locked, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if locked.Status != model.OrderNew {
			return fmt.Errorf("%w: order %d already %s", model.ErrConflict, orderID, locked.Status)
		}

		current, err := s.repo.GetBid(txCtx, bidID)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%w: bid %d was withdrawn", model.ErrConflict, bidID)
		}
		if err != nil {
			return err
		}
		if current.Status != model.BidActive {
			return fmt.Errorf("%w: bid %d became %s", model.ErrConflict, bidID, current.Status)
		}

		if err := s.repo.AssignOrder(txCtx, orderID, current.MasterID, current.Price); err != nil {
			return err
		}
		if err := s.repo.UpdateBidStatus(txCtx, bidID, model.BidSelected); err != nil {
			return err
		}
		rejected, err = s.repo.RejectBids(txCtx, orderID, bidID)
		if err != nil {
			return err
		}

		masterID, price := current.MasterID, current.Price
		locked.MasterID = &masterID
		locked.Price = &price
		locked.Status = model.OrderAssigned
		assigned = locked
		current.Status = model.BidSelected
		selected = current
		return nil
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("select bid: %w", err)
	}

	events := make([]notify.Event, 0, len(rejected)+1)
	events = append(events, notify.NewEvent(notify.OrderAssigned, orderID, selected.MasterID, map[string]any{
		"bid_id": selected.ID,
		"price":  selected.Price,
	}))
	for _, b := range rejected {
		events = append(events, notify.NewEvent(notify.BidRejected, orderID, b.MasterID, map[string]any{
			"bid_id": b.ID,
			"reason": "another bid was selected",
		}))
	}
	s.events.Emit(ctx, events...)

	return assigned, nil
}

// CompleteOrder marks an assigned order done. Only the assigned master or an
// administrator may complete it. The payout is requested after the commit, so
// a payout failure never undoes the completion.
func (s *AssignmentService) CompleteOrder(ctx context.Context, orderID int64, actor model.Actor) (model.Order, error) {
	var order model.Order
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		locked, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if !locked.AssignedTo(actor.ID) && !actor.IsAdmin() {
			return fmt.Errorf("%w: only the assigned master can complete order %d", model.ErrForbidden, orderID)
		}
		if _, err := transitionOrder(txCtx, s.repo, locked, model.OrderDone); err != nil {
			return err
		}
		locked.Status = model.OrderDone
		order = locked
		return nil
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("complete order: %w", err)
	}

	s.events.Emit(ctx, notify.NewEvent(notify.OrderCompleted, orderID, order.ClientID, map[string]any{
		"master_id": *order.MasterID,
		"price":     *order.Price,
	}))

	if s.payouts != nil {
		if _, err := s.payouts.CreatePayout(ctx, orderID); err != nil && !errors.Is(err, model.ErrConflict) {
			slog.Warn("payout creation deferred to worker", "order_id", orderID, "error", err)
		}
	}
	return order, nil
}

// RejectBid lets the client decline a single active bid while the order is
// still open. The order itself is not changed.
func (s *AssignmentService) RejectBid(ctx context.Context, bidID int64, actor model.Actor) (model.Bid, error) {
	snapshot, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("reject bid: %w", err)
	}

	var bid model.Bid
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, snapshot.OrderID)
		if err != nil {
			return err
		}
		if order.ClientID != actor.ID && !actor.IsAdmin() {
			return fmt.Errorf("%w: only the client of order %d can reject its bids", model.ErrForbidden, order.ID)
		}
		if order.Status != model.OrderNew {
			return fmt.Errorf("%w: order %d is %s", model.ErrInvalidTransition, order.ID, order.Status)
		}

		current, err := s.repo.GetBid(txCtx, bidID)
		if err != nil {
			return err
		}
		if current.Status != model.BidActive {
			return fmt.Errorf("%w: bid %d is %s", model.ErrInvalidTransition, bidID, current.Status)
		}
		if err := s.repo.UpdateBidStatus(txCtx, bidID, model.BidRejected); err != nil {
			return err
		}
		current.Status = model.BidRejected
		bid = current
		return nil
	})
	if err != nil {
		return model.Bid{}, fmt.Errorf("reject bid: %w", err)
	}

	s.events.Emit(ctx, notify.NewEvent(notify.BidRejected, bid.OrderID, bid.MasterID, map[string]any{
		"bid_id": bid.ID,
		"reason": "declined by client",
	}))
	return bid, nil
}
