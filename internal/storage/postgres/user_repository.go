package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"masterhub/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	var partnerID sql.NullInt64
	if user.PartnerID != nil {
		partnerID = sql.NullInt64{Int64: *user.PartnerID, Valid: true}
	}

	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO users (login, password_hash, role, partner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, user.Login, user.PasswordHash, user.Role, partnerID)

	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		switch {
		case isUniqueViolation(err):
			return model.User{}, fmt.Errorf("%w: login %q", model.ErrConflict, user.Login)
		case isForeignKeyViolation(err):
			return model.User{}, fmt.Errorf("%w: partner %d", model.ErrNotFound, *user.PartnerID)
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	var (
		u         model.User
		role      string
		partnerID sql.NullInt64
	)
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, login, password_hash, role, partner_id, created_at FROM users WHERE login = $1`,
		login,
	).Scan(&u.ID, &u.Login, &u.PasswordHash, &role, &partnerID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("%w: user %q", model.ErrNotFound, login)
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)
	u.PartnerID = int64Ptr(partnerID)
	return u, nil
}

func (s *Store) CreatePartner(ctx context.Context, partner model.Partner) (model.Partner, error) {
	var percent decimal.NullDecimal
	if partner.PayoutPercent != nil {
		percent = decimal.NullDecimal{Decimal: *partner.PayoutPercent, Valid: true}
	}

	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO partners (name, payout_percent)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, partner.Name, percent).Scan(&partner.ID, &partner.CreatedAt)
	if err != nil {
		return model.Partner{}, fmt.Errorf("insert partner: %w", err)
	}
	return partner, nil
}

func (s *Store) GetClientPartner(ctx context.Context, clientID int64) (*model.Partner, error) {
	var (
		p       model.Partner
		percent decimal.NullDecimal
	)
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT p.id, p.name, p.payout_percent, p.created_at
		FROM users u
		JOIN partners p ON p.id = u.partner_id
		WHERE u.id = $1
	`, clientID).Scan(&p.ID, &p.Name, &percent, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client partner: %w", err)
	}
	if percent.Valid {
		pct := percent.Decimal
		p.PayoutPercent = &pct
	}
	return &p, nil
}
