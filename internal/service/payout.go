package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"masterhub/internal/model"
	"masterhub/internal/notify"
)

// PayoutConfig holds the commission settings used when splitting a payout.
type PayoutConfig struct {
	// ServicePercent is the platform commission taken from every order.
	ServicePercent decimal.Decimal
	// DefaultPartnerPercent applies to partners without their own payout_percent.
	DefaultPartnerPercent decimal.Decimal
}

type PayoutService struct {
	repo   PayoutRepository
	events notify.Emitter
	cfg    PayoutConfig
}

func NewPayoutService(repo PayoutRepository, events notify.Emitter, cfg PayoutConfig) *PayoutService {
	return &PayoutService{repo: repo, events: events, cfg: cfg}
}

// CreatePayout computes and stores the split for a done order. A second call
// for the same order fails with ErrInvalidTransition; losing a concurrent
// insert fails with ErrConflict.
func (s *PayoutService) CreatePayout(ctx context.Context, orderID int64) (model.Payout, error) {
	var payout model.Payout
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderDone {
			return fmt.Errorf("%w: order %d is %s, payouts need a done order",
				model.ErrInvalidTransition, orderID, order.Status)
		}
		if order.MasterID == nil || order.Price == nil {
			return fmt.Errorf("order %d is done without master or price", orderID)
		}

		existing, err := s.repo.GetPayoutByOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: order %d already has payout %d", model.ErrInvalidTransition, orderID, existing.ID)
		}

		partnerPercent, err := s.partnerPercent(txCtx, order.ClientID)
		if err != nil {
			return err
		}
		split, err := SplitPayout(*order.Price, partnerPercent, s.cfg.ServicePercent)
		if err != nil {
			return err
		}

		payout, err = s.repo.CreatePayout(txCtx, model.Payout{
			OrderID:       orderID,
			MasterID:      *order.MasterID,
			AmountMaster:  split.Master,
			AmountService: split.Service,
			AmountPartner: split.Partner,
			Status:        model.PayoutPending,
		})
		return err
	})
	if err != nil {
		return model.Payout{}, fmt.Errorf("create payout: %w", err)
	}
	return payout, nil
}

func (s *PayoutService) Approve(ctx context.Context, payoutID int64, admin model.Actor) (model.Payout, error) {
	return s.process(ctx, payoutID, admin, model.PayoutPaid)
}

// Reject marks a pending payout failed. Failed payouts are settled out of band.
func (s *PayoutService) Reject(ctx context.Context, payoutID int64, admin model.Actor) (model.Payout, error) {
	return s.process(ctx, payoutID, admin, model.PayoutFailed)
}

func (s *PayoutService) process(ctx context.Context, payoutID int64, admin model.Actor, target model.PayoutStatus) (model.Payout, error) {
	if !admin.IsAdmin() {
		return model.Payout{}, fmt.Errorf("%w: payouts are processed by administrators", model.ErrForbidden)
	}

	var payout model.Payout
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetPayoutForUpdate(txCtx, payoutID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: payout %d is %s and cannot become %s",
				model.ErrInvalidTransition, payoutID, current.Status, target)
		}
		payout, err = s.repo.ProcessPayout(txCtx, payoutID, target, admin.ID)
		return err
	})
	if err != nil {
		return model.Payout{}, fmt.Errorf("process payout: %w", err)
	}

	typ := notify.PayoutApproved
	if target == model.PayoutFailed {
		typ = notify.PayoutRejected
	}
	s.events.Emit(ctx, notify.NewEvent(typ, payout.OrderID, payout.MasterID, map[string]any{
		"payout_id":     payout.ID,
		"amount_master": payout.AmountMaster,
	}))
	return payout, nil
}

// Get returns a payout to an administrator or to the master it pays.
func (s *PayoutService) Get(ctx context.Context, payoutID int64, actor model.Actor) (model.Payout, error) {
	payout, err := s.repo.GetPayout(ctx, payoutID)
	if err != nil {
		return model.Payout{}, fmt.Errorf("get payout: %w", err)
	}
	if !actor.IsAdmin() && payout.MasterID != actor.ID {
		return model.Payout{}, fmt.Errorf("get payout: %w: payout %d", model.ErrForbidden, payoutID)
	}
	return payout, nil
}

// List returns payouts for the back office; an empty status lists all of them.
func (s *PayoutService) List(ctx context.Context, admin model.Actor, status model.PayoutStatus) ([]model.Payout, error) {
	if !admin.IsAdmin() {
		return nil, fmt.Errorf("list payouts: %w", model.ErrForbidden)
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("list payouts: %w: unknown status %q", model.ErrValidation, status)
	}

	payouts, err := s.repo.ListPayouts(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, nil
}

// AwaitingPayout returns done orders that have no payout yet.
func (s *PayoutService) AwaitingPayout(ctx context.Context, limit int) ([]model.Order, error) {
	orders, err := s.repo.ListOrdersAwaitingPayout(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders awaiting payout: %w", err)
	}
	return orders, nil
}

func (s *PayoutService) partnerPercent(ctx context.Context, clientID int64) (decimal.Decimal, error) {
	partner, err := s.repo.GetClientPartner(ctx, clientID)
	if err != nil {
		return decimal.Zero, err
	}
	if partner == nil {
		return decimal.Zero, nil
	}
	if partner.PayoutPercent != nil {
		return *partner.PayoutPercent, nil
	}
	return s.cfg.DefaultPartnerPercent, nil
}
