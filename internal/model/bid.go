package model

import "time"

type BidStatus string

const (
	BidActive   BidStatus = "active"
	BidSelected BidStatus = "selected"
	BidRejected BidStatus = "rejected"
)

var bidTransitions = map[BidStatus][]BidStatus{
	BidActive: {BidSelected, BidRejected},
	// a selected bid is only rejected when its assigned order gets cancelled
	BidSelected: {BidRejected},
	BidRejected: nil,
}

func (s BidStatus) CanTransitionTo(target BidStatus) bool {
	for _, allowed := range bidTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Bid is a master's offer against an order.
type Bid struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	MasterID  int64     `json:"master_id"`
	Price     int64     `json:"price"`
	Note      string    `json:"note,omitempty"`
	Status    BidStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
