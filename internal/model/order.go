package model

import (
	"time"
)

type OrderStatus string

const (
	OrderNew       OrderStatus = "new"
	OrderAssigned  OrderStatus = "assigned"
	OrderDone      OrderStatus = "done"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderNew:       {OrderAssigned, OrderCancelled},
	OrderAssigned:  {OrderDone, OrderCancelled},
	OrderDone:      nil,
	OrderCancelled: nil,
}

// CanTransitionTo reports whether an order in status s may move to target.
// It is the only place the order state machine is encoded.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Order is a client's service request. MasterID and Price stay nil until a bid is selected.
type Order struct {
	ID        int64       `json:"id"`
	ClientID  int64       `json:"client_id"`
	MasterID  *int64      `json:"master_id,omitempty"`
	Category  string      `json:"category"`
	Address   string      `json:"address,omitempty"`
	Price     *int64      `json:"price,omitempty"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// AssignedTo reports whether userID is the master bound to the order.
func (o Order) AssignedTo(userID int64) bool {
	return o.MasterID != nil && *o.MasterID == userID
}
