package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"masterhub/internal/model"
)

const bidColumns = `id, order_id, master_id, price, note, status, created_at`

func scanBid(row scanner, extra ...any) (model.Bid, error) {
	var (
		b      model.Bid
		status string
	)
	dest := append([]any{&b.ID, &b.OrderID, &b.MasterID, &b.Price, &b.Note, &status, &b.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Bid{}, err
	}
	b.Status = model.BidStatus(status)
	return b, nil
}

func (s *Store) GetBid(ctx context.Context, id int64) (model.Bid, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id)
	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, fmt.Errorf("%w: bid %d", model.ErrNotFound, id)
		}
		return model.Bid{}, fmt.Errorf("get bid: %w", err)
	}
	return b, nil
}

// UpsertActiveBid relies on the partial unique index over active bids, so a
// second submission from the same master rewrites the existing row.
func (s *Store) UpsertActiveBid(ctx context.Context, bid model.Bid) (model.Bid, bool, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO bids (order_id, master_id, price, note, status)
		VALUES ($1, $2, $3, $4, 'active')
		ON CONFLICT (order_id, master_id) WHERE status = 'active'
		DO UPDATE SET price = EXCLUDED.price, note = EXCLUDED.note
		RETURNING `+bidColumns+`, (xmax = 0) AS inserted
	`, bid.OrderID, bid.MasterID, bid.Price, bid.Note)

	var inserted bool
	saved, err := scanBid(row, &inserted)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Bid{}, false, fmt.Errorf("%w: order %d", model.ErrNotFound, bid.OrderID)
		}
		return model.Bid{}, false, fmt.Errorf("upsert bid: %w", err)
	}
	return saved, inserted, nil
}

func (s *Store) UpdateBidPrice(ctx context.Context, id, price int64) (model.Bid, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		UPDATE bids SET price = $2
		WHERE id = $1 AND status = 'active'
		RETURNING `+bidColumns, id, price)
	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, fmt.Errorf("%w: active bid %d", model.ErrNotFound, id)
		}
		return model.Bid{}, fmt.Errorf("update bid: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBidStatus(ctx context.Context, id int64, status model.BidStatus) error {
	res, err := s.q(ctx).ExecContext(ctx, `UPDATE bids SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order already has a selected bid", model.ErrConflict)
		}
		return fmt.Errorf("update bid status: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: bid %d", model.ErrNotFound, id))
}

func (s *Store) DeleteActiveBid(ctx context.Context, id int64) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM bids WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return fmt.Errorf("delete bid: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: active bid %d", model.ErrNotFound, id))
}

func (s *Store) ListBidsByOrder(ctx context.Context, orderID int64) ([]model.Bid, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	return collectBids(rows)
}

func (s *Store) RejectBids(ctx context.Context, orderID, keepBidID int64) ([]model.Bid, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		UPDATE bids SET status = 'rejected'
		WHERE order_id = $1 AND id <> $2 AND status IN ('active', 'selected')
		RETURNING `+bidColumns, orderID, keepBidID)
	if err != nil {
		return nil, fmt.Errorf("reject bids: %w", err)
	}
	return collectBids(rows)
}

func collectBids(rows *sql.Rows) ([]model.Bid, error) {
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return bids, nil
}
