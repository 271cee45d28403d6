package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"masterhub/internal/model"
)

const payoutColumns = `id, order_id, master_id, amount_master, amount_service, amount_partner,
	status, created_at, processed_at, processed_by`

func scanPayout(row scanner) (model.Payout, error) {
	var (
		p           model.Payout
		status      string
		processedAt sql.NullTime
		processedBy sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.MasterID, &p.AmountMaster, &p.AmountService, &p.AmountPartner,
		&status, &p.CreatedAt, &processedAt, &processedBy)
	if err != nil {
		return model.Payout{}, err
	}
	p.Status = model.PayoutStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	p.ProcessedBy = int64Ptr(processedBy)
	return p, nil
}

func (s *Store) GetPayout(ctx context.Context, id int64) (model.Payout, error) {
	return s.getPayout(ctx, id, "")
}

func (s *Store) GetPayoutForUpdate(ctx context.Context, id int64) (model.Payout, error) {
	return s.getPayout(ctx, id, "FOR UPDATE")
}

func (s *Store) getPayout(ctx context.Context, id int64, lock string) (model.Payout, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1 `+lock, id)
	p, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payout{}, fmt.Errorf("%w: payout %d", model.ErrNotFound, id)
		}
		return model.Payout{}, fmt.Errorf("get payout: %w", err)
	}
	return p, nil
}

func (s *Store) GetPayoutByOrder(ctx context.Context, orderID int64) (*model.Payout, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE order_id = $1`, orderID)
	p, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout by order: %w", err)
	}
	return &p, nil
}

func (s *Store) CreatePayout(ctx context.Context, payout model.Payout) (model.Payout, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO payouts (order_id, master_id, amount_master, amount_service, amount_partner, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+payoutColumns,
		payout.OrderID, payout.MasterID, payout.AmountMaster, payout.AmountService, payout.AmountPartner, payout.Status,
	)
	created, err := scanPayout(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Payout{}, fmt.Errorf("%w: payout for order %d exists", model.ErrConflict, payout.OrderID)
		}
		return model.Payout{}, fmt.Errorf("insert payout: %w", err)
	}
	return created, nil
}

func (s *Store) ProcessPayout(ctx context.Context, id int64, status model.PayoutStatus, adminID int64) (model.Payout, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		UPDATE payouts
		SET status = $2, processed_at = NOW(), processed_by = $3
		WHERE id = $1
		RETURNING `+payoutColumns, id, status, adminID)
	p, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payout{}, fmt.Errorf("%w: payout %d", model.ErrNotFound, id)
		}
		return model.Payout{}, fmt.Errorf("update payout: %w", err)
	}
	return p, nil
}

func (s *Store) ListPayouts(ctx context.Context, status model.PayoutStatus) ([]model.Payout, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query payouts: %w", err)
	}
	defer rows.Close()

	var payouts []model.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return payouts, nil
}

func (s *Store) MasterBalance(ctx context.Context, masterID int64) (model.Balance, error) {
	var b model.Balance
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount_master) FILTER (WHERE status = 'pending'), 0),
			COALESCE(SUM(amount_master) FILTER (WHERE status = 'paid'), 0)
		FROM payouts
		WHERE master_id = $1
	`, masterID).Scan(&b.Pending, &b.Paid)
	if err != nil {
		return model.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}
