package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterhub/internal/model"
	"masterhub/internal/notify"
)

func TestBidService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("second submit updates the active bid in place", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		master := h.user(t, "master", model.RoleMaster)
		order := h.order(t, client)

		first, created, err := h.bids.Submit(ctx, order.ID, master, 1000, "can start tomorrow")
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := h.bids.Submit(ctx, order.ID, master, 1500, "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)

		bids := h.bidsOf(t, order.ID)
		require.Len(t, bids, 1)
		assert.Equal(t, int64(1500), bids[first.ID].Price)
		assert.Equal(t, model.BidActive, bids[first.ID].Status)

		require.Len(t, h.events.OfType(notify.BidSubmitted), 1)
		updated := h.events.OfType(notify.BidUpdated)
		require.Len(t, updated, 1)
		assert.Equal(t, client.ID, updated[0].RecipientID)
		assert.Equal(t, order.ID, updated[0].OrderID)
	})

	t.Run("master cannot bid on own order", func(t *testing.T) {
		h := newHarness(t)
		master := h.user(t, "master", model.RoleMaster)
		order := h.order(t, master)

		_, _, err := h.bids.Submit(ctx, order.ID, master, 1000, "")
		require.ErrorIs(t, err, model.ErrSelfBid)
		assert.Empty(t, h.bidsOf(t, order.ID))
		assert.Empty(t, h.events.Events())
	})

	t.Run("only masters bid", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		other := h.user(t, "other", model.RoleClient)
		order := h.order(t, client)

		_, _, err := h.bids.Submit(ctx, order.ID, other, 1000, "")
		require.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("price must be positive", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		master := h.user(t, "master", model.RoleMaster)
		order := h.order(t, client)

		for _, price := range []int64{0, -5} {
			_, _, err := h.bids.Submit(ctx, order.ID, master, price, "")
			require.ErrorIs(t, err, model.ErrValidation)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		h := newHarness(t)
		master := h.user(t, "master", model.RoleMaster)

		_, _, err := h.bids.Submit(ctx, 404, master, 1000, "")
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("orders outside new accept no bids", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		m1 := h.user(t, "m1", model.RoleMaster)
		m2 := h.user(t, "m2", model.RoleMaster)

		assigned := h.order(t, client)
		b := h.bid(t, assigned.ID, m1, 1000)
		_, err := h.assign.SelectBid(ctx, assigned.ID, b.ID, client)
		require.NoError(t, err)

		cancelled := h.order(t, client)
		_, err = h.orders.Cancel(ctx, cancelled.ID, client)
		require.NoError(t, err)

		for _, id := range []int64{assigned.ID, cancelled.ID} {
			_, _, err := h.bids.Submit(ctx, id, m2, 900, "")
			require.ErrorIs(t, err, model.ErrInvalidTransition)
		}
	})

	t.Run("master may bid again after rejection", func(t *testing.T) {
		h := newHarness(t)
		client := h.user(t, "client", model.RoleClient)
		master := h.user(t, "master", model.RoleMaster)
		order := h.order(t, client)

		first := h.bid(t, order.ID, master, 1000)
		_, err := h.assign.RejectBid(ctx, first.ID, client)
		require.NoError(t, err)

		second, created, err := h.bids.Submit(ctx, order.ID, master, 800, "")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, second.ID)

		bids := h.bidsOf(t, order.ID)
		assert.Equal(t, model.BidRejected, bids[first.ID].Status)
		assert.Equal(t, model.BidActive, bids[second.ID].Status)
	})
}

func TestBidService_Edit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	client := h.user(t, "client", model.RoleClient)
	m1 := h.user(t, "m1", model.RoleMaster)
	m2 := h.user(t, "m2", model.RoleMaster)
	order := h.order(t, client)
	b1 := h.bid(t, order.ID, m1, 1000)
	b2 := h.bid(t, order.ID, m2, 1200)

	edited, err := h.bids.Edit(ctx, b1.ID, m1, 1100)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), edited.Price)
	assert.Equal(t, model.BidActive, edited.Status)

	_, err = h.bids.Edit(ctx, b1.ID, m2, 500)
	require.ErrorIs(t, err, model.ErrForbidden)

	_, err = h.bids.Edit(ctx, b1.ID, m1, 0)
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = h.bids.Edit(ctx, 999, m1, 100)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = h.assign.SelectBid(ctx, order.ID, b1.ID, client)
	require.NoError(t, err)

	_, err = h.bids.Edit(ctx, b1.ID, m1, 1300)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = h.bids.Edit(ctx, b2.ID, m2, 1300)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	assert.Equal(t, int64(1100), h.bidsOf(t, order.ID)[b1.ID].Price)
}

func TestBidService_Cancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	client := h.user(t, "client", model.RoleClient)
	m1 := h.user(t, "m1", model.RoleMaster)
	m2 := h.user(t, "m2", model.RoleMaster)
	order := h.order(t, client)
	b := h.bid(t, order.ID, m1, 1000)

	require.ErrorIs(t, h.bids.Cancel(ctx, b.ID, m2), model.ErrForbidden)
	require.NoError(t, h.bids.Cancel(ctx, b.ID, m1))
	assert.Empty(t, h.bidsOf(t, order.ID))
	require.ErrorIs(t, h.bids.Cancel(ctx, b.ID, m1), model.ErrNotFound)

	// a selected bid is no longer the master's to withdraw
	selected := h.bid(t, order.ID, m2, 900)
	_, err := h.assign.SelectBid(ctx, order.ID, selected.ID, client)
	require.NoError(t, err)
	require.ErrorIs(t, h.bids.Cancel(ctx, selected.ID, m2), model.ErrInvalidTransition)
}

func TestBidService_ListByOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	client := h.user(t, "client", model.RoleClient)
	stranger := h.user(t, "stranger", model.RoleClient)
	admin := h.user(t, "admin", model.RoleAdmin)
	m1 := h.user(t, "m1", model.RoleMaster)
	m2 := h.user(t, "m2", model.RoleMaster)
	order := h.order(t, client)
	h.bid(t, order.ID, m1, 1000)
	own := h.bid(t, order.ID, m2, 1200)

	all, err := h.bids.ListByOrder(ctx, order.ID, client)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = h.bids.ListByOrder(ctx, order.ID, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := h.bids.ListByOrder(ctx, order.ID, m2)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, own.ID, mine[0].ID)

	_, err = h.bids.ListByOrder(ctx, order.ID, stranger)
	require.ErrorIs(t, err, model.ErrForbidden)
}
