package model

import "time"

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
	PayoutFailed  PayoutStatus = "failed"
)

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending: {PayoutPaid, PayoutFailed},
	PayoutPaid:    nil,
	PayoutFailed:  nil,
}

func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	for _, allowed := range payoutTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s PayoutStatus) Valid() bool {
	_, ok := payoutTransitions[s]
	return ok
}

// Payout is the master/service/partner split of a completed order's price.
type Payout struct {
	ID            int64        `json:"id"`
	OrderID       int64        `json:"order_id"`
	MasterID      int64        `json:"master_id"`
	AmountMaster  int64        `json:"amount_master"`
	AmountService int64        `json:"amount_service"`
	AmountPartner int64        `json:"amount_partner"`
	Status        PayoutStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
	ProcessedBy   *int64       `json:"processed_by,omitempty"`
}

// Total is the amount transacted for the order.
func (p Payout) Total() int64 {
	return p.AmountMaster + p.AmountService + p.AmountPartner
}

// Balance summarises a master's payouts.
type Balance struct {
	Pending int64 `json:"pending"`
	Paid    int64 `json:"paid"`
}
