package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/auth"
	"github.com/staypay-jp/core/internal/model"
)

func newTestIdentity(t *testing.T) (*IdentityService, *auth.TokenManager) {
	t.Helper()
	store := newTestStore(t)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewIdentityService(store, tokens, zap.NewNop()), tokens
}

func TestRegister(t *testing.T) {
	svc, tokens := newTestIdentity(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, RegisterInput{
		Username:      "yamada",
		Password:      "hunter2!",
		Role:          model.RoleHost,
		WalletAddress: "0xabc123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleHost, user.Role)
	assert.NotEqual(t, "hunter2!", user.Password, "password must be stored hashed")

	identity, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, "yamada", identity.Username)
	assert.Equal(t, model.RoleHost, identity.Role)
	assert.Equal(t, "0xabc123", identity.WalletAddress)
}

func TestRegister_Conflicts(t *testing.T) {
	svc, _ := newTestIdentity(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{
		Username: "yamada", Password: "pw", Role: model.RoleGuest, WalletAddress: "0x1",
	})
	require.NoError(t, err)

	t.Run("username taken", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterInput{
			Username: "yamada", Password: "pw", Role: model.RoleGuest, WalletAddress: "0x2",
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("wallet taken", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterInput{
			Username: "suzuki", Password: "pw", Role: model.RoleGuest, WalletAddress: "0x1",
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterInput{
			Username: "tanaka", Password: "pw", Role: model.Role("admin"), WalletAddress: "0x3",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestLogin(t *testing.T) {
	svc, tokens := newTestIdentity(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, RegisterInput{
		Username: "yamada", Password: "hunter2!", Role: model.RoleGuest, WalletAddress: "0x1",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, token, err := svc.Login(ctx, "yamada", "hunter2!")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)

		identity, err := tokens.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, identity.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "yamada", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody", "hunter2!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
