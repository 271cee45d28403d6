// Package memory is a process-local implementation of the marketplace store.
// A transaction holds one store-wide mutex for its whole duration and restores
// a snapshot when it fails, which gives serializable behaviour: it stands in
// for the row locks the Postgres store takes.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"masterhub/internal/model"
)

type txKey struct{}

type tables struct {
	users    map[int64]model.User
	partners map[int64]model.Partner
	orders   map[int64]model.Order
	bids     map[int64]model.Bid
	payouts  map[int64]model.Payout

	lastUserID    int64
	lastPartnerID int64
	lastOrderID   int64
	lastBidID     int64
	lastPayoutID  int64
}

func (t tables) clone() tables {
	c := t
	c.users = maps.Clone(t.users)
	c.partners = maps.Clone(t.partners)
	c.orders = maps.Clone(t.orders)
	c.bids = maps.Clone(t.bids)
	c.payouts = maps.Clone(t.payouts)
	return c
}

type Store struct {
	mu  sync.Mutex
	now func() time.Time
	t   tables
}

func New() *Store {
	return &Store{
		now: func() time.Time { return time.Now().UTC() },
		t: tables{
			users:    make(map[int64]model.User),
			partners: make(map[int64]model.Partner),
			orders:   make(map[int64]model.Order),
			bids:     make(map[int64]model.Bid),
			payouts:  make(map[int64]model.Payout),
		},
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock takes the store mutex unless the caller's transaction already holds it.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order model.Order) (model.Order, error) {
	defer s.lock(ctx)()

	if _, ok := s.t.users[order.ClientID]; !ok {
		return model.Order{}, fmt.Errorf("%w: user %d", model.ErrNotFound, order.ClientID)
	}
	s.t.lastOrderID++
	order.ID = s.t.lastOrderID
	order.CreatedAt = s.now()
	s.t.orders[order.ID] = order
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	defer s.lock(ctx)()

	o, ok := s.t.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("%w: order %d", model.ErrNotFound, id)
	}
	return o, nil
}

func (s *Store) GetOrderForUpdate(ctx context.Context, id int64) (model.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *Store) GetOrderForShare(ctx context.Context, id int64) (model.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *Store) ListOrdersByClient(ctx context.Context, clientID int64) ([]model.Order, error) {
	return s.listOrders(ctx, 0, func(o model.Order) bool { return o.ClientID == clientID }), nil
}

func (s *Store) ListOrdersByMaster(ctx context.Context, masterID int64) ([]model.Order, error) {
	return s.listOrders(ctx, 0, func(o model.Order) bool { return o.AssignedTo(masterID) }), nil
}

func (s *Store) ListOpenOrders(ctx context.Context, category string, limit int) ([]model.Order, error) {
	return s.listOrders(ctx, limit, func(o model.Order) bool {
		return o.Status == model.OrderNew && (category == "" || o.Category == category)
	}), nil
}

// listOrders returns matching orders newest first.
func (s *Store) listOrders(ctx context.Context, limit int, match func(model.Order) bool) []model.Order {
	defer s.lock(ctx)()

	var out []model.Order
	for _, o := range s.t.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b model.Order) int { return cmp.Compare(b.ID, a.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	defer s.lock(ctx)()

	o, ok := s.t.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %d", model.ErrNotFound, id)
	}
	o.Status = status
	s.t.orders[id] = o
	return nil
}

func (s *Store) AssignOrder(ctx context.Context, orderID, masterID, price int64) error {
	defer s.lock(ctx)()

	o, ok := s.t.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: order %d", model.ErrNotFound, orderID)
	}
	if o.Status != model.OrderNew {
		return fmt.Errorf("%w: order %d already %s", model.ErrConflict, orderID, o.Status)
	}
	o.MasterID = &masterID
	o.Price = &price
	o.Status = model.OrderAssigned
	s.t.orders[orderID] = o
	return nil
}

// Bids

func (s *Store) GetBid(ctx context.Context, id int64) (model.Bid, error) {
	defer s.lock(ctx)()

	b, ok := s.t.bids[id]
	if !ok {
		return model.Bid{}, fmt.Errorf("%w: bid %d", model.ErrNotFound, id)
	}
	return b, nil
}

func (s *Store) UpsertActiveBid(ctx context.Context, bid model.Bid) (model.Bid, bool, error) {
	defer s.lock(ctx)()

	if _, ok := s.t.orders[bid.OrderID]; !ok {
		return model.Bid{}, false, fmt.Errorf("%w: order %d", model.ErrNotFound, bid.OrderID)
	}
	for id, existing := range s.t.bids {
		if existing.OrderID == bid.OrderID && existing.MasterID == bid.MasterID && existing.Status == model.BidActive {
			existing.Price = bid.Price
			existing.Note = bid.Note
			s.t.bids[id] = existing
			return existing, false, nil
		}
	}

	s.t.lastBidID++
	bid.ID = s.t.lastBidID
	bid.Status = model.BidActive
	bid.CreatedAt = s.now()
	s.t.bids[bid.ID] = bid
	return bid, true, nil
}

func (s *Store) UpdateBidPrice(ctx context.Context, id, price int64) (model.Bid, error) {
	defer s.lock(ctx)()

	b, ok := s.t.bids[id]
	if !ok || b.Status != model.BidActive {
		return model.Bid{}, fmt.Errorf("%w: active bid %d", model.ErrNotFound, id)
	}
	b.Price = price
	s.t.bids[id] = b
	return b, nil
}

func (s *Store) UpdateBidStatus(ctx context.Context, id int64, status model.BidStatus) error {
	defer s.lock(ctx)()

	b, ok := s.t.bids[id]
	if !ok {
		return fmt.Errorf("%w: bid %d", model.ErrNotFound, id)
	}
	b.Status = status
	s.t.bids[id] = b
	return nil
}

func (s *Store) DeleteActiveBid(ctx context.Context, id int64) error {
	defer s.lock(ctx)()

	b, ok := s.t.bids[id]
	if !ok || b.Status != model.BidActive {
		return fmt.Errorf("%w: active bid %d", model.ErrNotFound, id)
	}
	delete(s.t.bids, id)
	return nil
}

func (s *Store) ListBidsByOrder(ctx context.Context, orderID int64) ([]model.Bid, error) {
	defer s.lock(ctx)()
	return s.bidsOf(orderID), nil
}

func (s *Store) RejectBids(ctx context.Context, orderID, keepBidID int64) ([]model.Bid, error) {
	defer s.lock(ctx)()

	var rejected []model.Bid
	for _, b := range s.bidsOf(orderID) {
		if b.ID == keepBidID || (b.Status != model.BidActive && b.Status != model.BidSelected) {
			continue
		}
		b.Status = model.BidRejected
		s.t.bids[b.ID] = b
		rejected = append(rejected, b)
	}
	return rejected, nil
}

// bidsOf returns the order's bids in id order; the caller holds the lock.
func (s *Store) bidsOf(orderID int64) []model.Bid {
	var out []model.Bid
	for _, b := range s.t.bids {
		if b.OrderID == orderID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b model.Bid) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Payouts

func (s *Store) GetPayout(ctx context.Context, id int64) (model.Payout, error) {
	defer s.lock(ctx)()

	p, ok := s.t.payouts[id]
	if !ok {
		return model.Payout{}, fmt.Errorf("%w: payout %d", model.ErrNotFound, id)
	}
	return p, nil
}

func (s *Store) GetPayoutForUpdate(ctx context.Context, id int64) (model.Payout, error) {
	return s.GetPayout(ctx, id)
}

func (s *Store) GetPayoutByOrder(ctx context.Context, orderID int64) (*model.Payout, error) {
	defer s.lock(ctx)()

	for _, p := range s.t.payouts {
		if p.OrderID == orderID {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) CreatePayout(ctx context.Context, payout model.Payout) (model.Payout, error) {
	defer s.lock(ctx)()

	for _, p := range s.t.payouts {
		if p.OrderID == payout.OrderID {
			return model.Payout{}, fmt.Errorf("%w: payout for order %d exists", model.ErrConflict, payout.OrderID)
		}
	}
	s.t.lastPayoutID++
	payout.ID = s.t.lastPayoutID
	payout.CreatedAt = s.now()
	s.t.payouts[payout.ID] = payout
	return payout, nil
}

func (s *Store) ProcessPayout(ctx context.Context, id int64, status model.PayoutStatus, adminID int64) (model.Payout, error) {
	defer s.lock(ctx)()

	p, ok := s.t.payouts[id]
	if !ok {
		return model.Payout{}, fmt.Errorf("%w: payout %d", model.ErrNotFound, id)
	}
	now := s.now()
	p.Status = status
	p.ProcessedAt = &now
	p.ProcessedBy = &adminID
	s.t.payouts[id] = p
	return p, nil
}

func (s *Store) ListPayouts(ctx context.Context, status model.PayoutStatus) ([]model.Payout, error) {
	defer s.lock(ctx)()

	var out []model.Payout
	for _, p := range s.t.payouts {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Payout) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *Store) ListOrdersAwaitingPayout(ctx context.Context, limit int) ([]model.Order, error) {
	defer s.lock(ctx)()

	paid := make(map[int64]bool, len(s.t.payouts))
	for _, p := range s.t.payouts {
		paid[p.OrderID] = true
	}
	var out []model.Order
	for _, o := range s.t.orders {
		if o.Status == model.OrderDone && !paid[o.ID] {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b model.Order) int { return cmp.Compare(a.ID, b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MasterBalance(ctx context.Context, masterID int64) (model.Balance, error) {
	defer s.lock(ctx)()

	var b model.Balance
	for _, p := range s.t.payouts {
		if p.MasterID != masterID {
			continue
		}
		switch p.Status {
		case model.PayoutPending:
			b.Pending += p.AmountMaster
		case model.PayoutPaid:
			b.Paid += p.AmountMaster
		}
	}
	return b, nil
}

// Users and partners

func (s *Store) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	defer s.lock(ctx)()

	for _, u := range s.t.users {
		if u.Login == user.Login {
			return model.User{}, fmt.Errorf("%w: login %q", model.ErrConflict, user.Login)
		}
	}
	if user.PartnerID != nil {
		if _, ok := s.t.partners[*user.PartnerID]; !ok {
			return model.User{}, fmt.Errorf("%w: partner %d", model.ErrNotFound, *user.PartnerID)
		}
	}
	s.t.lastUserID++
	user.ID = s.t.lastUserID
	user.CreatedAt = s.now()
	s.t.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	defer s.lock(ctx)()

	for _, u := range s.t.users {
		if u.Login == login {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("%w: user %q", model.ErrNotFound, login)
}

func (s *Store) CreatePartner(ctx context.Context, partner model.Partner) (model.Partner, error) {
	defer s.lock(ctx)()

	s.t.lastPartnerID++
	partner.ID = s.t.lastPartnerID
	partner.CreatedAt = s.now()
	s.t.partners[partner.ID] = partner
	return partner, nil
}

func (s *Store) GetClientPartner(ctx context.Context, clientID int64) (*model.Partner, error) {
	defer s.lock(ctx)()

	u, ok := s.t.users[clientID]
	if !ok || u.PartnerID == nil {
		return nil, nil
	}
	p, ok := s.t.partners[*u.PartnerID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
