package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleClient Role = "client"
	RoleMaster Role = "master"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleMaster, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	PartnerID    *int64    `json:"partner_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Partner refers clients to the marketplace and earns a share of their orders.
// A nil PayoutPercent means the configured default applies.
type Partner struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	PayoutPercent *decimal.Decimal `json:"payout_percent,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Actor is the authenticated identity invoking an operation.
type Actor struct {
	ID   int64
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsMaster() bool {
	return a.Role == RoleMaster
}
