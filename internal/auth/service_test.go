package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/store/memstore"
)

func newTestService(t *testing.T) (*service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc, err := NewService(store, "test-secret")
	require.NoError(t, err)
	return svc, store
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(memstore.New(), "")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestRegister_CreatesEmptyWallet(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	acc, err := svc.Register(ctx, " Alice@Example.com", "hunter2hunter2", "Alice", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", acc.Email)
	assert.True(t, acc.Balance.IsZero())
	assert.NotEqual(t, "hunter2hunter2", acc.PasswordHash)
	assert.True(t, store.Balance(acc.ID).IsZero())

	_, err = svc.Register(ctx, "alice@example.com", "another-password", "Alice 2", models.RoleUser)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.Register(ctx, "bob@example.com", "hunter2hunter2", "Bob", "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLoginAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	acc, err := svc.Register(ctx, "admin@example.com", "correct horse", "Ops", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := svc.Login(ctx, "ADMIN@example.com", "correct horse")
	require.NoError(t, err)

	caller, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, caller.ID)
	assert.True(t, caller.IsAdmin())
}

func TestValidateToken_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	acc, err := svc.Register(ctx, "carol@example.com", "password123", "Carol", models.RoleUser)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewService(memstore.New(), "other-secret")
		require.NoError(t, err)
		token, err := other.issueToken(acc.ID, acc.Role)
		require.NoError(t, err)
		_, err = svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.issueToken(acc.ID, acc.Role)
		require.NoError(t, err)
		svc.now = func() time.Time { return time.Now().Add(tokenTTL + time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err = svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: acc.ID.String()},
			Role:             models.RoleAdmin,
		})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
