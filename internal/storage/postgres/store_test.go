package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterhub/internal/database"
	"masterhub/internal/model"
	"masterhub/internal/notify"
	"masterhub/internal/service"
)

// newTestStore connects to TEST_DATABASE_URI and starts from empty tables.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI not set, skipping Postgres integration tests")
	}

	ctx := context.Background()
	db, err := database.NewDB(ctx, uri)
	if err != nil {
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	require.NoError(t, database.InitSchema(ctx, db))
	require.NoError(t, database.ResetData(ctx, db))
	return NewStore(db)
}

func createUser(t *testing.T, s *Store, login string, role model.Role, partnerID *int64) model.Actor {
	t.Helper()
	u, err := s.CreateUser(context.Background(), model.User{
		Login:        login,
		PasswordHash: []byte("x"),
		Role:         role,
		PartnerID:    partnerID,
	})
	require.NoError(t, err)
	return model.Actor{ID: u.ID, Role: u.Role}
}

func TestStore_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	percent := decimal.RequireFromString("7.5")
	partner, err := s.CreatePartner(ctx, model.Partner{Name: "acme", PayoutPercent: &percent})
	require.NoError(t, err)

	client := createUser(t, s, "client", model.RoleClient, &partner.ID)
	_, err = s.CreateUser(ctx, model.User{Login: "client", PasswordHash: []byte("x"), Role: model.RoleClient})
	require.ErrorIs(t, err, model.ErrConflict)

	missing := int64(999)
	_, err = s.CreateUser(ctx, model.User{Login: "ghost", PasswordHash: []byte("x"), Role: model.RoleClient, PartnerID: &missing})
	require.ErrorIs(t, err, model.ErrNotFound)

	got, err := s.GetUserByLogin(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, client.ID, got.ID)
	_, err = s.GetUserByLogin(ctx, "nobody")
	require.ErrorIs(t, err, model.ErrNotFound)

	p, err := s.GetClientPartner(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.PayoutPercent)
	assert.True(t, p.PayoutPercent.Equal(percent))
}

func TestStore_UpsertActiveBid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	client := createUser(t, s, "client", model.RoleClient, nil)
	master := createUser(t, s, "master", model.RoleMaster, nil)

	order, err := s.CreateOrder(ctx, model.Order{ClientID: client.ID, Category: "plumbing", Status: model.OrderNew})
	require.NoError(t, err)

	first, created, err := s.UpsertActiveBid(ctx, model.Bid{OrderID: order.ID, MasterID: master.ID, Price: 1000, Status: model.BidActive})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.UpsertActiveBid(ctx, model.Bid{OrderID: order.ID, MasterID: master.ID, Price: 1500, Status: model.BidActive})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1500), second.Price)

	bids, err := s.ListBidsByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, bids, 1)

	_, _, err = s.UpsertActiveBid(ctx, model.Bid{OrderID: 12345, MasterID: master.ID, Price: 1, Status: model.BidActive})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_MarketplaceFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	events := &notify.Recorder{}
	payouts := service.NewPayoutService(s, events, service.PayoutConfig{
		ServicePercent:        decimal.NewFromInt(10),
		DefaultPartnerPercent: decimal.NewFromInt(5),
	})
	orders := service.NewOrderService(s, events)
	bids := service.NewBidService(s, events)
	assign := service.NewAssignmentService(s, events, payouts)

	partner, err := s.CreatePartner(ctx, model.Partner{Name: "acme"})
	require.NoError(t, err)
	client := createUser(t, s, "client", model.RoleClient, &partner.ID)
	m1 := createUser(t, s, "m1", model.RoleMaster, nil)
	m2 := createUser(t, s, "m2", model.RoleMaster, nil)
	admin := createUser(t, s, "admin", model.RoleAdmin, nil)

	order, err := orders.Create(ctx, client, "plumbing", "Main st 1")
	require.NoError(t, err)
	b1, _, err := bids.Submit(ctx, order.ID, m1, 2000, "")
	require.NoError(t, err)
	b2, _, err := bids.Submit(ctx, order.ID, m2, 2500, "")
	require.NoError(t, err)

	assigned, err := assign.SelectBid(ctx, order.ID, b1.ID, client)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, *assigned.MasterID)

	stored, err := s.ListBidsByOrder(ctx, order.ID)
	require.NoError(t, err)
	statuses := map[int64]model.BidStatus{}
	for _, b := range stored {
		statuses[b.ID] = b.Status
	}
	assert.Equal(t, map[int64]model.BidStatus{b1.ID: model.BidSelected, b2.ID: model.BidRejected}, statuses)

	_, err = assign.CompleteOrder(ctx, order.ID, m1)
	require.NoError(t, err)

	payout, err := s.GetPayoutByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, int64(100), payout.AmountPartner)
	assert.Equal(t, int64(200), payout.AmountService)
	assert.Equal(t, int64(1700), payout.AmountMaster)

	_, err = s.CreatePayout(ctx, *payout)
	require.ErrorIs(t, err, model.ErrConflict)

	_, err = payouts.Approve(ctx, payout.ID, admin)
	require.NoError(t, err)
	balance, err := s.MasterBalance(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Balance{Paid: 1700}, balance)

	awaiting, err := s.ListOrdersAwaitingPayout(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, awaiting)
}

func TestStore_ConcurrentSelection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	orders := service.NewOrderService(s, notify.Discard{})
	bids := service.NewBidService(s, notify.Discard{})
	assign := service.NewAssignmentService(s, notify.Discard{}, nil)

	client := createUser(t, s, "client", model.RoleClient, nil)
	order, err := orders.Create(ctx, client, "plumbing", "")
	require.NoError(t, err)

	const n = 8
	bidIDs := make([]int64, n)
	for i := range bidIDs {
		m := createUser(t, s, fmt.Sprintf("m%d", i), model.RoleMaster, nil)
		b, _, err := bids.Submit(ctx, order.ID, m, int64(1000+i), "")
		require.NoError(t, err)
		bidIDs[i] = b.ID
	}

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for _, bidID := range bidIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := assign.SelectBid(ctx, order.ID, bidID, client)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, errors.Is(err, model.ErrConflict) || errors.Is(err, model.ErrInvalidTransition), err)
	}
	assert.Equal(t, 1, winners)

	stored, err := s.ListBidsByOrder(ctx, order.ID)
	require.NoError(t, err)
	selected := 0
	for _, b := range stored {
		if b.Status == model.BidSelected {
			selected++
		}
	}
	assert.Equal(t, 1, selected)
}
