package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterhub/internal/model"
	"masterhub/internal/notify"
)

func TestOrderService_Create(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	client := h.user(t, "client", model.RoleClient)

	order, err := h.orders.Create(ctx, client, "  electrics ", "Main st 1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderNew, order.Status)
	assert.Equal(t, "electrics", order.Category)
	assert.Equal(t, client.ID, order.ClientID)
	assert.Nil(t, order.MasterID)
	assert.Nil(t, order.Price)

	_, err = h.orders.Create(ctx, client, " ", "Main st 1")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestOrderService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects every open bid", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		m1 := h.user(t, "m1", model.RoleMaster)
		m2 := h.user(t, "m2", model.RoleMaster)
		order := h.order(t, client)
		h.bid(t, order.ID, m1, 1000)
		h.bid(t, order.ID, m2, 1200)

		cancelled, err := h.orders.Cancel(ctx, order.ID, client)
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, cancelled.Status)

		for _, b := range h.bidsOf(t, order.ID) {
			assert.Equal(t, model.BidRejected, b.Status)
		}
		recipients := map[int64]bool{}
		for _, ev := range h.events.OfType(notify.OrderCancelled) {
			recipients[ev.RecipientID] = true
		}
		assert.Equal(t, map[int64]bool{m1.ID: true, m2.ID: true}, recipients)
	})

	t.Run("assigned order releases the master and creates no payout", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		master := h.user(t, "master", model.RoleMaster)
		order := h.order(t, client)
		b := h.bid(t, order.ID, master, 1000)
		_, err := h.assign.SelectBid(ctx, order.ID, b.ID, client)
		require.NoError(t, err)

		_, err = h.orders.Cancel(ctx, order.ID, client)
		require.NoError(t, err)
		assert.Equal(t, 0, h.selectedCount(t, order.ID))

		_, err = h.assign.CompleteOrder(ctx, order.ID, master)
		require.ErrorIs(t, err, model.ErrInvalidTransition)
		_, err = h.payouts.CreatePayout(ctx, order.ID)
		require.ErrorIs(t, err, model.ErrInvalidTransition)

		awaiting, err := h.payouts.AwaitingPayout(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, awaiting)
	})

	t.Run("only client or admin", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		other := h.user(t, "other", model.RoleClient)
		admin := h.user(t, "admin", model.RoleAdmin)
		order := h.order(t, client)

		_, err := h.orders.Cancel(ctx, order.ID, other)
		require.ErrorIs(t, err, model.ErrForbidden)

		_, err = h.orders.Cancel(ctx, order.ID, admin)
		require.NoError(t, err)

		_, err = h.orders.Cancel(ctx, order.ID, client)
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	})

	t.Run("done order stays done", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		master := h.user(t, "master", model.RoleMaster)
		order := h.order(t, client)
		b := h.bid(t, order.ID, master, 1000)
		_, err := h.assign.SelectBid(ctx, order.ID, b.ID, client)
		require.NoError(t, err)
		_, err = h.assign.CompleteOrder(ctx, order.ID, master)
		require.NoError(t, err)

		_, err = h.orders.Cancel(ctx, order.ID, client)
		require.ErrorIs(t, err, model.ErrInvalidTransition)
		assert.Equal(t, 1, h.selectedCount(t, order.ID))
	})

	t.Run("unknown order", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)

		_, err := h.orders.Cancel(ctx, 42, client)
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestOrderService_Transition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	client := h.user(t, "client", model.RoleClient)
	order := h.order(t, client)

	_, err := h.orders.Transition(ctx, order.ID, model.OrderAssigned)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = h.orders.Transition(ctx, order.ID, model.OrderDone)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	got, err := h.orders.Transition(ctx, order.ID, model.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, got.Status)

	_, err = h.orders.Transition(ctx, order.ID, model.OrderCancelled)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestOrderService_Get(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	client := h.user(t, "client", model.RoleClient)
	other := h.user(t, "other", model.RoleClient)
	admin := h.user(t, "admin", model.RoleAdmin)
	m1 := h.user(t, "m1", model.RoleMaster)
	m2 := h.user(t, "m2", model.RoleMaster)
	order := h.order(t, client)

	for _, actor := range []model.Actor{client, admin, m1, m2} {
		_, err := h.orders.Get(ctx, order.ID, actor)
		require.NoError(t, err)
	}
	_, err := h.orders.Get(ctx, order.ID, other)
	require.ErrorIs(t, err, model.ErrForbidden)

	b := h.bid(t, order.ID, m1, 1000)
	_, err = h.assign.SelectBid(ctx, order.ID, b.ID, client)
	require.NoError(t, err)

	_, err = h.orders.Get(ctx, order.ID, m1)
	require.NoError(t, err)
	_, err = h.orders.Get(ctx, order.ID, m2)
	require.ErrorIs(t, err, model.ErrForbidden)
}

func TestOrderService_Lists(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	client := h.user(t, "client", model.RoleClient)
	master := h.user(t, "master", model.RoleMaster)

	first := h.order(t, client)
	second, err := h.orders.Create(ctx, client, "electrics", "Main st 2")
	require.NoError(t, err)
	third := h.order(t, client)

	b := h.bid(t, first.ID, master, 1000)
	_, err = h.assign.SelectBid(ctx, first.ID, b.ID, client)
	require.NoError(t, err)

	mine, err := h.orders.ListMine(ctx, client)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	working, err := h.orders.ListMine(ctx, master)
	require.NoError(t, err)
	require.Len(t, working, 1)
	assert.Equal(t, first.ID, working[0].ID)

	open, err := h.orders.ListOpen(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, third.ID, open[0].ID, "newest first")

	open, err = h.orders.ListOpen(ctx, "electrics", 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	open, err = h.orders.ListOpen(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
