package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"masterhub/internal/model"
	"masterhub/internal/notify"
	"masterhub/internal/storage/memory"
)

type harness struct {
	store   *memory.Store
	events  *notify.Recorder
	auth    *AuthService
	orders  *OrderService
	bids    *BidService
	assign  *AssignmentService
	payouts *PayoutService
	balance *BalanceService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.New()
	events := &notify.Recorder{}
	payouts := NewPayoutService(store, events, PayoutConfig{
		ServicePercent:        decimal.NewFromInt(10),
		DefaultPartnerPercent: decimal.NewFromInt(5),
	})
	return &harness{
		store:   store,
		events:  events,
		auth:    NewAuthService(store),
		orders:  NewOrderService(store, events),
		bids:    NewBidService(store, events),
		assign:  NewAssignmentService(store, events, payouts),
		payouts: payouts,
		balance: NewBalanceService(store),
	}
}

func (h *harness) user(t *testing.T, login string, role model.Role) model.Actor {
	t.Helper()
	return h.referredUser(t, login, role, nil)
}

func (h *harness) referredUser(t *testing.T, login string, role model.Role, partnerID *int64) model.Actor {
	t.Helper()
	u, err := h.store.CreateUser(context.Background(), model.User{Login: login, Role: role, PartnerID: partnerID})
	require.NoError(t, err)
	return model.Actor{ID: u.ID, Role: u.Role}
}

func (h *harness) order(t *testing.T, client model.Actor) model.Order {
	t.Helper()
	o, err := h.orders.Create(context.Background(), client, "plumbing", "Main st 1")
	require.NoError(t, err)
	return o
}

func (h *harness) bid(t *testing.T, orderID int64, master model.Actor, price int64) model.Bid {
	t.Helper()
	b, _, err := h.bids.Submit(context.Background(), orderID, master, price, "")
	require.NoError(t, err)
	return b
}

func (h *harness) bidsOf(t *testing.T, orderID int64) map[int64]model.Bid {
	t.Helper()
	list, err := h.store.ListBidsByOrder(context.Background(), orderID)
	require.NoError(t, err)
	out := make(map[int64]model.Bid, len(list))
	for _, b := range list {
		out[b.ID] = b
	}
	return out
}

func (h *harness) selectedCount(t *testing.T, orderID int64) int {
	t.Helper()
	n := 0
	for _, b := range h.bidsOf(t, orderID) {
		if b.Status == model.BidSelected {
			n++
		}
	}
	return n
}
