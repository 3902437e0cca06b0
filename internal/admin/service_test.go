package admin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UncleVee2025/barter-trade-sub003/internal/activity"
	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
	"github.com/UncleVee2025/barter-trade-sub003/internal/ledger"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/store/memstore"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (*Service, *memstore.Store, *events.Recorder, authz.Caller) {
	t.Helper()
	store := memstore.New()
	rec := &events.Recorder{}
	led := ledger.NewService(store, store, store, rec, nil)
	svc := NewService(store, store, led, activity.NewLog(store, nil), rec, nil)
	return svc, store, rec, authz.Caller{ID: store.AddAdmin(), Role: models.RoleAdmin}
}

func TestAdjust_DeductionBeyondBalance(t *testing.T) {
	ctx := context.Background()
	svc, store, rec, admin := newTestService(t)
	acct := store.AddAccount(dec("20"))

	_, err := svc.Adjust(ctx, admin, AdjustRequest{AccountID: acct, Amount: dec("-30"), Description: "chargeback"})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.True(t, store.Balance(acct).Equal(dec("20")))
	assert.Empty(t, store.Entries())
	assert.Empty(t, store.Activity())
	assert.Empty(t, rec.Events())
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	svc, store, rec, admin := newTestService(t)
	acct := store.AddAccount(dec("20"))

	entry, err := svc.Adjust(ctx, admin, AdjustRequest{AccountID: acct, Amount: dec("-5"), Description: "fee correction"})
	require.NoError(t, err)
	assert.Equal(t, models.EntryDeduction, entry.Kind)
	assert.True(t, entry.BalanceAfter.Equal(dec("15")))
	assert.Equal(t, "admin:"+admin.ID.String(), entry.Reference)

	entry, err = svc.Adjust(ctx, admin, AdjustRequest{AccountID: acct, Amount: dec("7.50"), Kind: models.EntryRefund, Reference: "ticket-42", Description: "refund"})
	require.NoError(t, err)
	assert.Equal(t, models.EntryRefund, entry.Kind)
	assert.True(t, store.Balance(acct).Equal(dec("22.50")))

	acts := store.Activity()
	require.Len(t, acts, 2)
	assert.Equal(t, "balance_adjusted", acts[0].Action)
	assert.Equal(t, admin.ID, acts[0].ActorID)
	assert.Equal(t, acct, acts[0].SubjectID)
	assert.Equal(t, []string{"wallet_debited", "wallet_credited"}, rec.Types())
}

func TestAdjust_Guards(t *testing.T) {
	ctx := context.Background()
	svc, store, _, admin := newTestService(t)
	acct := store.AddAccount(dec("20"))
	user := authz.Caller{ID: acct, Role: models.RoleUser}

	_, err := svc.Adjust(ctx, user, AdjustRequest{AccountID: acct, Amount: dec("100"), Description: "free money"})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.Adjust(ctx, admin, AdjustRequest{AccountID: acct, Amount: dec("1")})
	assert.ErrorIs(t, err, ErrDescriptionRequired)

	_, err = svc.Adjust(ctx, admin, AdjustRequest{AccountID: acct, Amount: dec("0"), Description: "noop"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Adjust(ctx, admin, AdjustRequest{AccountID: uuid.New(), Amount: dec("1"), Description: "ghost"})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	assert.True(t, store.Balance(acct).Equal(dec("20")))
}

func TestAdjust_ActivityFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	svc, store, _, admin := newTestService(t)
	acct := store.AddAccount(dec("0"))

	store.FailOn(memstore.OpInsertActivity, errors.New("audit db down"))
	_, err := svc.Adjust(ctx, admin, AdjustRequest{AccountID: acct, Amount: dec("10"), Description: "goodwill"})
	require.NoError(t, err)
	assert.True(t, store.Balance(acct).Equal(dec("10")))
	assert.Empty(t, store.Activity())
}

func TestTopUpApproval(t *testing.T) {
	ctx := context.Background()
	svc, store, rec, admin := newTestService(t)
	user := authz.Caller{ID: store.AddAccount(dec("0")), Role: models.RoleUser}

	req, err := svc.RequestTopUp(ctx, user, dec("40"), "bank-transfer-991")
	require.NoError(t, err)
	assert.Equal(t, models.TopUpStatusPending, req.Status)

	pending, err := svc.ListTopUps(ctx, admin, models.TopUpStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := svc.ApproveTopUp(ctx, admin, req.ID, "verified")
	require.NoError(t, err)
	assert.Equal(t, models.TopUpStatusApproved, approved.Status)
	require.NotNil(t, approved.EntryID)
	assert.Equal(t, admin.ID, *approved.ResolvedBy)
	assert.True(t, store.Balance(user.ID).Equal(dec("40")))

	_, err = svc.ApproveTopUp(ctx, admin, req.ID, "again")
	assert.ErrorIs(t, err, ErrRequestNotPending)
	_, err = svc.RejectTopUp(ctx, admin, req.ID, "too late")
	assert.ErrorIs(t, err, ErrRequestNotPending)
	assert.True(t, store.Balance(user.ID).Equal(dec("40")))

	assert.Equal(t, []string{"wallet_credited", "topup_resolved"}, rec.Types())
}

func TestTopUpReject(t *testing.T) {
	ctx := context.Background()
	svc, store, _, admin := newTestService(t)
	user := authz.Caller{ID: store.AddAccount(dec("0")), Role: models.RoleUser}

	req, err := svc.RequestTopUp(ctx, user, dec("40"), "")
	require.NoError(t, err)

	_, err = svc.ApproveTopUp(ctx, user, req.ID, "")
	assert.ErrorIs(t, err, authz.ErrForbidden)

	rejected, err := svc.RejectTopUp(ctx, admin, req.ID, "no proof of payment")
	require.NoError(t, err)
	assert.Equal(t, models.TopUpStatusRejected, rejected.Status)
	assert.Nil(t, rejected.EntryID)
	assert.True(t, store.Balance(user.ID).IsZero())

	_, err = svc.ApproveTopUp(ctx, admin, uuid.New(), "")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = svc.RequestTopUp(ctx, user, dec("-1"), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestTopUpApprovalRace(t *testing.T) {
	ctx := context.Background()
	svc, store, _, admin := newTestService(t)
	other := authz.Caller{ID: store.AddAdmin(), Role: models.RoleAdmin}
	user := authz.Caller{ID: store.AddAccount(dec("0")), Role: models.RoleUser}
	req, err := svc.RequestTopUp(ctx, user, dec("25"), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var wins, lost int32
	for i := 0; i < 6; i++ {
		caller := admin
		if i%2 == 1 {
			caller = other
		}
		wg.Add(1)
		go func(caller authz.Caller) {
			defer wg.Done()
			_, err := svc.ApproveTopUp(ctx, caller, req.ID, "")
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, ErrRequestNotPending):
				atomic.AddInt32(&lost, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(caller)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(5), lost)
	assert.True(t, store.Balance(user.ID).Equal(dec("25")))
}
