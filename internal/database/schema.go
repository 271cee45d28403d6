package database

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS partners (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    payout_percent NUMERIC(5,2) CHECK (payout_percent BETWEEN 0 AND 100),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    login TEXT UNIQUE NOT NULL,
    password_hash BYTEA NOT NULL,
    role TEXT NOT NULL DEFAULT 'client' CHECK (role IN ('client', 'master', 'admin')),
    partner_id BIGINT REFERENCES partners(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    client_id BIGINT NOT NULL REFERENCES users(id),
    master_id BIGINT REFERENCES users(id),
    category TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    price BIGINT CHECK (price > 0),
    status TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'assigned', 'done', 'cancelled')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (status <> 'new' OR master_id IS NULL),
    CHECK (status NOT IN ('assigned', 'done') OR (master_id IS NOT NULL AND price IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS bids (
    id BIGSERIAL PRIMARY KEY,
    order_id BIGINT NOT NULL REFERENCES orders(id),
    master_id BIGINT NOT NULL REFERENCES users(id),
    price BIGINT NOT NULL CHECK (price > 0),
    note TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'selected', 'rejected')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payouts (
    id BIGSERIAL PRIMARY KEY,
    order_id BIGINT NOT NULL UNIQUE REFERENCES orders(id),
    master_id BIGINT NOT NULL REFERENCES users(id),
    amount_master BIGINT NOT NULL CHECK (amount_master >= 0),
    amount_service BIGINT NOT NULL CHECK (amount_service >= 0),
    amount_partner BIGINT NOT NULL CHECK (amount_partner >= 0),
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'paid', 'failed')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMPTZ,
    processed_by BIGINT REFERENCES users(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_bids_active_per_master ON bids(order_id, master_id) WHERE status = 'active';
CREATE UNIQUE INDEX IF NOT EXISTS uniq_bids_selected_per_order ON bids(order_id) WHERE status = 'selected';
CREATE INDEX IF NOT EXISTS idx_orders_client_id ON orders(client_id);
CREATE INDEX IF NOT EXISTS idx_orders_master_id ON orders(master_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_bids_order_id ON bids(order_id);
CREATE INDEX IF NOT EXISTS idx_payouts_status ON payouts(status);
CREATE INDEX IF NOT EXISTS idx_payouts_master_id ON payouts(master_id);
`

func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// ResetData empties every table. Integration tests call it between cases.
func ResetData(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE payouts, bids, orders, users, partners RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}
	return nil
}
