package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"masterhub/internal/model"
)

const orderColumns = `id, client_id, master_id, category, address, price, status, created_at`

func scanOrder(row scanner) (model.Order, error) {
	var (
		o        model.Order
		masterID sql.NullInt64
		price    sql.NullInt64
		status   string
	)
	if err := row.Scan(&o.ID, &o.ClientID, &masterID, &o.Category, &o.Address, &price, &status, &o.CreatedAt); err != nil {
		return model.Order{}, err
	}
	o.MasterID = int64Ptr(masterID)
	o.Price = int64Ptr(price)
	o.Status = model.OrderStatus(status)
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, order model.Order) (model.Order, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO orders (client_id, category, address, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+orderColumns,
		order.ClientID, order.Category, order.Address, order.Status,
	)
	created, err := scanOrder(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Order{}, fmt.Errorf("%w: user %d", model.ErrNotFound, order.ClientID)
		}
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return created, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	return s.getOrder(ctx, id, "")
}

func (s *Store) GetOrderForUpdate(ctx context.Context, id int64) (model.Order, error) {
	return s.getOrder(ctx, id, "FOR UPDATE")
}

func (s *Store) GetOrderForShare(ctx context.Context, id int64) (model.Order, error) {
	return s.getOrder(ctx, id, "FOR SHARE")
}

func (s *Store) getOrder(ctx context.Context, id int64, lock string) (model.Order, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 `+lock, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, fmt.Errorf("%w: order %d", model.ErrNotFound, id)
		}
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *Store) ListOrdersByClient(ctx context.Context, clientID int64) ([]model.Order, error) {
	return s.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE client_id = $1
		ORDER BY created_at DESC, id DESC
	`, clientID)
}

func (s *Store) ListOrdersByMaster(ctx context.Context, masterID int64) ([]model.Order, error) {
	return s.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE master_id = $1
		ORDER BY created_at DESC, id DESC
	`, masterID)
}

func (s *Store) ListOpenOrders(ctx context.Context, category string, limit int) ([]model.Order, error) {
	return s.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'new' AND ($1 = '' OR category = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, category, limit)
}

func (s *Store) ListOrdersAwaitingPayout(ctx context.Context, limit int) ([]model.Order, error) {
	return s.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.status = 'done'
		  AND NOT EXISTS (SELECT 1 FROM payouts p WHERE p.order_id = o.id)
		ORDER BY o.id ASC
		LIMIT $1
	`, limit)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	res, err := s.q(ctx).ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: order %d", model.ErrNotFound, id))
}

// AssignOrder only touches an order that is still new; the status predicate
// backs up the row lock the caller holds.
func (s *Store) AssignOrder(ctx context.Context, orderID, masterID, price int64) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE orders
		SET master_id = $2, price = $3, status = 'assigned'
		WHERE id = $1 AND status = 'new'
	`, orderID, masterID, price)
	if err != nil {
		return fmt.Errorf("assign order: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: order %d is no longer new", model.ErrConflict, orderID))
}

func expectOne(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}
