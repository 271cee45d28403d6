package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"masterhub/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrLoginTaken         = errors.New("login already exists")
)

type AuthService struct {
	repo UserRepository
}

func NewAuthService(repo UserRepository) *AuthService {
	return &AuthService{repo: repo}
}

// Register creates a client or master account. Administrators are provisioned
// with EnsureAdmin, never through self-registration.
func (s *AuthService) Register(ctx context.Context, login, password string, role model.Role, partnerID *int64) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, fmt.Errorf("%w: login and password required", model.ErrValidation)
	}
	if role == "" {
		role = model.RoleClient
	}
	if role != model.RoleClient && role != model.RoleMaster {
		return nil, fmt.Errorf("%w: cannot register with role %q", model.ErrForbidden, role)
	}

	return s.create(ctx, login, password, role, partnerID)
}

// EnsureAdmin creates the administrator account if the login is free.
func (s *AuthService) EnsureAdmin(ctx context.Context, login, password string) error {
	_, err := s.create(ctx, login, password, model.RoleAdmin, nil)
	if err != nil && !errors.Is(err, ErrLoginTaken) {
		return err
	}
	return nil
}

func (s *AuthService) create(ctx context.Context, login, password string, role model.Role, partnerID *int64) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, model.User{
		Login:        login,
		PasswordHash: hash,
		Role:         role,
		PartnerID:    partnerID,
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	user, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// CreatePartner registers a referral partner. A nil percent defers to the
// configured default share.
func (s *AuthService) CreatePartner(ctx context.Context, admin model.Actor, name string, percent *decimal.Decimal) (model.Partner, error) {
	if !admin.IsAdmin() {
		return model.Partner{}, fmt.Errorf("create partner: %w", model.ErrForbidden)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Partner{}, fmt.Errorf("%w: partner name required", model.ErrValidation)
	}
	if percent != nil {
		if err := checkPercent("partner", *percent); err != nil {
			return model.Partner{}, err
		}
	}

	partner, err := s.repo.CreatePartner(ctx, model.Partner{Name: name, PayoutPercent: percent})
	if err != nil {
		return model.Partner{}, fmt.Errorf("create partner: %w", err)
	}
	return partner, nil
}
