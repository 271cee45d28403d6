package service

import (
	"context"
	"fmt"
	"strings"

	"masterhub/internal/model"
	"masterhub/internal/notify"
)

const (
	defaultOpenOrdersLimit = 50
	maxOpenOrdersLimit     = 200
)

// OrderService is the single authority for order status transitions.
type OrderService struct {
	repo   OrderRepository
	events notify.Emitter
}

func NewOrderService(repo OrderRepository, events notify.Emitter) *OrderService {
	return &OrderService{repo: repo, events: events}
}

func (s *OrderService) Create(ctx context.Context, actor model.Actor, category, address string) (model.Order, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return model.Order{}, fmt.Errorf("%w: category is required", model.ErrValidation)
	}

	order, err := s.repo.CreateOrder(ctx, model.Order{
		ClientID: actor.ID,
		Category: category,
		Address:  strings.TrimSpace(address),
		Status:   model.OrderNew,
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// Transition moves an order to target under a row lock. Assignment is not
// reachable here: it needs a selected bid and goes through AssignmentService.
func (s *OrderService) Transition(ctx context.Context, orderID int64, target model.OrderStatus) (model.Order, error) {
	if target == model.OrderAssigned {
		return model.Order{}, fmt.Errorf("%w: assignment requires selecting a bid", model.ErrInvalidTransition)
	}

	var (
		order    model.Order
		rejected []model.Bid
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		locked, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		rejected, err = transitionOrder(txCtx, s.repo, locked, target)
		if err != nil {
			return err
		}
		locked.Status = target
		order = locked
		return nil
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("transition order: %w", err)
	}

	s.events.Emit(ctx, cancellationEvents(order, rejected)...)
	return order, nil
}

// Cancel is allowed for the owning client or an administrator. Every open bid
// on the order is rejected in the same transaction.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, actor model.Actor) (model.Order, error) {
	var (
		order    model.Order
		rejected []model.Bid
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		locked, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if locked.ClientID != actor.ID && !actor.IsAdmin() {
			return fmt.Errorf("%w: only the client or an administrator can cancel order %d", model.ErrForbidden, orderID)
		}
		rejected, err = transitionOrder(txCtx, s.repo, locked, model.OrderCancelled)
		if err != nil {
			return err
		}
		locked.Status = model.OrderCancelled
		order = locked
		return nil
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	s.events.Emit(ctx, cancellationEvents(order, rejected)...)
	return order, nil
}

// Get returns an order visible to actor: its client, its master, an
// administrator, or any master while the order is still open for bids.
func (s *OrderService) Get(ctx context.Context, orderID int64, actor model.Actor) (model.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}

	switch {
	case actor.IsAdmin(), order.ClientID == actor.ID, order.AssignedTo(actor.ID):
	case actor.IsMaster() && order.Status == model.OrderNew:
	default:
		return model.Order{}, fmt.Errorf("%w: order %d", model.ErrForbidden, orderID)
	}
	return order, nil
}

// ListMine returns the orders a master works on, or the orders a client placed.
func (s *OrderService) ListMine(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	var (
		orders []model.Order
		err    error
	)
	if actor.IsMaster() {
		orders, err = s.repo.ListOrdersByMaster(ctx, actor.ID)
	} else {
		orders, err = s.repo.ListOrdersByClient(ctx, actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListOpen returns orders still accepting bids, newest first.
func (s *OrderService) ListOpen(ctx context.Context, category string, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = defaultOpenOrdersLimit
	}
	if limit > maxOpenOrdersLimit {
		limit = maxOpenOrdersLimit
	}

	orders, err := s.repo.ListOpenOrders(ctx, strings.TrimSpace(category), limit)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	return orders, nil
}

// transitionOrder validates and writes a status change on an order already
// locked by the caller's transaction. Cancelling rejects the order's open bids.
func transitionOrder(ctx context.Context, repo orderWriter, order model.Order, target model.OrderStatus) ([]model.Bid, error) {
	if err := checkOrderTransition(order, target); err != nil {
		return nil, err
	}
	if err := repo.UpdateOrderStatus(ctx, order.ID, target); err != nil {
		return nil, err
	}
	if target != model.OrderCancelled {
		return nil, nil
	}
	return repo.RejectBids(ctx, order.ID, 0)
}

func checkOrderTransition(order model.Order, target model.OrderStatus) error {
	if !order.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: order %d is %s and cannot become %s",
			model.ErrInvalidTransition, order.ID, order.Status, target)
	}
	return nil
}

func cancellationEvents(order model.Order, rejected []model.Bid) []notify.Event {
	if order.Status != model.OrderCancelled {
		return nil
	}
	events := make([]notify.Event, 0, len(rejected))
	for _, bid := range rejected {
		events = append(events, notify.NewEvent(notify.OrderCancelled, order.ID, bid.MasterID, map[string]any{
			"bid_id": bid.ID,
		}))
	}
	return events
}
