package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterhub/internal/model"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	user, err := h.auth.Register(ctx, " alice ", "secret", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)
	assert.Equal(t, model.RoleClient, user.Role)
	assert.NotEqual(t, []byte("secret"), user.PasswordHash)

	master, err := h.auth.Register(ctx, "bob", "secret", model.RoleMaster, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMaster, master.Role)

	_, err = h.auth.Register(ctx, "alice", "other", model.RoleClient, nil)
	require.ErrorIs(t, err, ErrLoginTaken)

	_, err = h.auth.Register(ctx, "mallory", "secret", model.RoleAdmin, nil)
	require.ErrorIs(t, err, model.ErrForbidden)

	_, err = h.auth.Register(ctx, "", "secret", model.RoleClient, nil)
	require.ErrorIs(t, err, model.ErrValidation)

	missing := int64(42)
	_, err = h.auth.Register(ctx, "carol", "secret", model.RoleClient, &missing)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.auth.Register(ctx, "alice", "secret", model.RoleMaster, nil)
	require.NoError(t, err)

	user, err := h.auth.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, model.RoleMaster, user.Role)

	_, err = h.auth.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.auth.Authenticate(ctx, "nobody", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.auth.EnsureAdmin(ctx, "root", "secret"))
	require.NoError(t, h.auth.EnsureAdmin(ctx, "root", "secret"))

	admin, err := h.auth.Authenticate(ctx, "root", "secret")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
}

func TestAuthService_CreatePartner(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "admin", model.RoleAdmin)
	client := h.user(t, "client", model.RoleClient)

	partner, err := h.auth.CreatePartner(ctx, admin, "acme", ptr(decimal.NewFromInt(7)))
	require.NoError(t, err)
	assert.NotZero(t, partner.ID)

	referred, err := h.auth.Register(ctx, "referred", "secret", model.RoleClient, &partner.ID)
	require.NoError(t, err)
	require.NotNil(t, referred.PartnerID)
	assert.Equal(t, partner.ID, *referred.PartnerID)

	_, err = h.auth.CreatePartner(ctx, client, "acme", nil)
	require.ErrorIs(t, err, model.ErrForbidden)
	_, err = h.auth.CreatePartner(ctx, admin, "", nil)
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = h.auth.CreatePartner(ctx, admin, "greedy", ptr(decimal.NewFromInt(120)))
	require.ErrorIs(t, err, model.ErrValidation)
}
