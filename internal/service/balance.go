package service

import (
	"context"
	"fmt"

	"masterhub/internal/model"
)

type BalanceService struct {
	repo PayoutRepository
}

func NewBalanceService(repo PayoutRepository) *BalanceService {
	return &BalanceService{repo: repo}
}

// Get sums the master's pending and paid payouts.
func (s *BalanceService) Get(ctx context.Context, actor model.Actor) (model.Balance, error) {
	if !actor.IsMaster() {
		return model.Balance{}, fmt.Errorf("get balance: %w: only masters receive payouts", model.ErrForbidden)
	}
	b, err := s.repo.MasterBalance(ctx, actor.ID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}
