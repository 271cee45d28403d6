package service

import (
	"context"

	"masterhub/internal/model"
)

// Transactor runs fn inside one database transaction carried by the context
// passed to fn. Returning an error from fn rolls everything back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type orderReader interface {
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	// GetOrderForUpdate locks the order row until the transaction ends.
	GetOrderForUpdate(ctx context.Context, id int64) (model.Order, error)
}

type orderWriter interface {
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error
	// RejectBids moves every active or selected bid of the order to rejected,
	// except keepBidID, and returns the bids it changed.
	RejectBids(ctx context.Context, orderID, keepBidID int64) ([]model.Bid, error)
}

type OrderRepository interface {
	Transactor
	orderReader
	orderWriter
	CreateOrder(ctx context.Context, order model.Order) (model.Order, error)
	ListOrdersByClient(ctx context.Context, clientID int64) ([]model.Order, error)
	ListOrdersByMaster(ctx context.Context, masterID int64) ([]model.Order, error)
	ListOpenOrders(ctx context.Context, category string, limit int) ([]model.Order, error)
}

type BidRepository interface {
	Transactor
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	// GetOrderForShare blocks status changes of the order until the transaction ends.
	GetOrderForShare(ctx context.Context, id int64) (model.Order, error)
	GetBid(ctx context.Context, id int64) (model.Bid, error)
	// UpsertActiveBid updates the master's active bid on the order in place or
	// inserts a new one; created reports which happened.
	UpsertActiveBid(ctx context.Context, bid model.Bid) (saved model.Bid, created bool, err error)
	UpdateBidPrice(ctx context.Context, id, price int64) (model.Bid, error)
	DeleteActiveBid(ctx context.Context, id int64) error
	ListBidsByOrder(ctx context.Context, orderID int64) ([]model.Bid, error)
}

type AssignmentRepository interface {
	Transactor
	orderReader
	orderWriter
	GetBid(ctx context.Context, id int64) (model.Bid, error)
	AssignOrder(ctx context.Context, orderID, masterID, price int64) error
	UpdateBidStatus(ctx context.Context, id int64, status model.BidStatus) error
}

type PayoutRepository interface {
	Transactor
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	// GetClientPartner returns the partner who referred the client, or nil.
	GetClientPartner(ctx context.Context, clientID int64) (*model.Partner, error)
	GetPayout(ctx context.Context, id int64) (model.Payout, error)
	GetPayoutForUpdate(ctx context.Context, id int64) (model.Payout, error)
	// GetPayoutByOrder returns nil when the order has no payout yet.
	GetPayoutByOrder(ctx context.Context, orderID int64) (*model.Payout, error)
	CreatePayout(ctx context.Context, payout model.Payout) (model.Payout, error)
	ProcessPayout(ctx context.Context, id int64, status model.PayoutStatus, adminID int64) (model.Payout, error)
	ListPayouts(ctx context.Context, status model.PayoutStatus) ([]model.Payout, error)
	ListOrdersAwaitingPayout(ctx context.Context, limit int) ([]model.Order, error)
	MasterBalance(ctx context.Context, masterID int64) (model.Balance, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByLogin(ctx context.Context, login string) (model.User, error)
	CreatePartner(ctx context.Context, partner model.Partner) (model.Partner, error)
}
