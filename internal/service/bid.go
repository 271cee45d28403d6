package service

import (
	"context"
	"fmt"
	"strings"

	"masterhub/internal/model"
	"masterhub/internal/notify"
)

// BidService decides who may bid on an order, when, and how bids change.
type BidService struct {
	repo   BidRepository
	events notify.Emitter
}

func NewBidService(repo BidRepository, events notify.Emitter) *BidService {
	return &BidService{repo: repo, events: events}
}

// Submit places the master's bid on an order. A master has at most one active
// bid per order: submitting again updates that bid instead of adding a row.
func (s *BidService) Submit(ctx context.Context, orderID int64, actor model.Actor, price int64, note string) (model.Bid, bool, error) {
	if price <= 0 {
		return model.Bid{}, false, fmt.Errorf("%w: price must be positive", model.ErrValidation)
	}
	if !actor.IsMaster() {
		return model.Bid{}, false, fmt.Errorf("%w: only masters can bid", model.ErrForbidden)
	}

	var (
		bid      model.Bid
		created  bool
		clientID int64
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForShare(txCtx, orderID)
		if err != nil {
			return err
		}
		if order.ClientID == actor.ID {
			return fmt.Errorf("%w: order %d", model.ErrSelfBid, orderID)
		}
		if order.Status != model.OrderNew {
			return fmt.Errorf("%w: order %d is %s and no longer accepts bids",
				model.ErrInvalidTransition, orderID, order.Status)
		}
		clientID = order.ClientID

		bid, created, err = s.repo.UpsertActiveBid(txCtx, model.Bid{
			OrderID:  orderID,
			MasterID: actor.ID,
			Price:    price,
			Note:     strings.TrimSpace(note),
			Status:   model.BidActive,
		})
		return err
	})
	if err != nil {
		return model.Bid{}, false, fmt.Errorf("submit bid: %w", err)
	}

	typ := notify.BidUpdated
	if created {
		typ = notify.BidSubmitted
	}
	s.events.Emit(ctx, notify.NewEvent(typ, orderID, clientID, bidPayload(bid)))
	return bid, created, nil
}

// Edit changes the price of the actor's own active bid.
func (s *BidService) Edit(ctx context.Context, bidID int64, actor model.Actor, price int64) (model.Bid, error) {
	if price <= 0 {
		return model.Bid{}, fmt.Errorf("%w: price must be positive", model.ErrValidation)
	}

	var (
		bid      model.Bid
		clientID int64
	)
	err := s.withOwnActiveBid(ctx, bidID, actor, func(txCtx context.Context, order model.Order, _ model.Bid) error {
		if order.Status != model.OrderNew {
			return fmt.Errorf("%w: order %d is %s", model.ErrInvalidTransition, order.ID, order.Status)
		}
		clientID = order.ClientID

		var err error
		bid, err = s.repo.UpdateBidPrice(txCtx, bidID, price)
		return err
	})
	if err != nil {
		return model.Bid{}, fmt.Errorf("edit bid: %w", err)
	}

	s.events.Emit(ctx, notify.NewEvent(notify.BidUpdated, bid.OrderID, clientID, bidPayload(bid)))
	return bid, nil
}

// Cancel withdraws the actor's own active bid by deleting it.
func (s *BidService) Cancel(ctx context.Context, bidID int64, actor model.Actor) error {
	err := s.withOwnActiveBid(ctx, bidID, actor, func(txCtx context.Context, _ model.Order, _ model.Bid) error {
		return s.repo.DeleteActiveBid(txCtx, bidID)
	})
	if err != nil {
		return fmt.Errorf("cancel bid: %w", err)
	}
	return nil
}

// ListByOrder returns every bid to the order's client or an administrator,
// and only the caller's own bids to a master.
func (s *BidService) ListByOrder(ctx context.Context, orderID int64, actor model.Actor) ([]model.Bid, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}

	ownerView := order.ClientID == actor.ID || actor.IsAdmin()
	if !ownerView && !actor.IsMaster() {
		return nil, fmt.Errorf("list bids: %w: order %d", model.ErrForbidden, orderID)
	}

	bids, err := s.repo.ListBidsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	if ownerView {
		return bids, nil
	}

	own := bids[:0]
	for _, b := range bids {
		if b.MasterID == actor.ID {
			own = append(own, b)
		}
	}
	return own, nil
}

// withOwnActiveBid runs fn in a transaction holding a share lock on the bid's
// order, after re-reading the bid and checking it is the actor's and active.
// The lock keeps a concurrent selection from changing the bid underneath fn.
func (s *BidService) withOwnActiveBid(ctx context.Context, bidID int64, actor model.Actor,
	fn func(txCtx context.Context, order model.Order, bid model.Bid) error) error {
	snapshot, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return err
	}
	if snapshot.MasterID != actor.ID {
		return fmt.Errorf("%w: bid %d belongs to another master", model.ErrForbidden, bidID)
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForShare(txCtx, snapshot.OrderID)
		if err != nil {
			return err
		}
		bid, err := s.repo.GetBid(txCtx, bidID)
		if err != nil {
			return err
		}
		if bid.Status != model.BidActive {
			return fmt.Errorf("%w: bid %d is %s", model.ErrInvalidTransition, bidID, bid.Status)
		}
		return fn(txCtx, order, bid)
	})
}

func bidPayload(bid model.Bid) map[string]any {
	payload := map[string]any{
		"bid_id":    bid.ID,
		"master_id": bid.MasterID,
		"price":     bid.Price,
	}
	if bid.Note != "" {
		payload["note"] = bid.Note
	}
	return payload
}
