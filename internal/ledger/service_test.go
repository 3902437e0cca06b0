package ledger

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

	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/store/memstore"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (*Service, *memstore.Store, *events.Recorder) {
	t.Helper()
	store := memstore.New()
	rec := &events.Recorder{}
	return NewService(store, store, store, rec, nil), store, rec
}

func TestApplyTransfer_FullBalance(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newTestService(t)
	sender := store.AddAccount(dec("100"))
	receiver := store.AddAccount(dec("5"))

	tr, err := svc.ApplyTransfer(ctx, sender, receiver, dec("100"), "offer:1")
	require.NoError(t, err)

	assert.True(t, store.Balance(sender).IsZero())
	assert.True(t, store.Balance(receiver).Equal(dec("105")))

	assert.Equal(t, models.EntryTransferOut, tr.Out.Kind)
	assert.Equal(t, models.EntryTransferIn, tr.In.Kind)
	assert.True(t, tr.Out.Amount.Equal(tr.In.Amount))
	assert.True(t, tr.Out.BalanceAfter.IsZero())
	assert.True(t, tr.In.BalanceAfter.Equal(dec("105")))
	assert.Equal(t, receiver, *tr.Out.RelatedAccountID)
	assert.Equal(t, sender, *tr.In.RelatedAccountID)
	assert.Len(t, store.Entries(), 2)

	assert.Equal(t, []string{"wallet_debited", "wallet_credited"}, rec.Types())
}

func TestApplyTransfer_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newTestService(t)
	sender := store.AddAccount(dec("50"))
	receiver := store.AddAccount(dec("0"))

	_, err := svc.ApplyTransfer(ctx, sender, receiver, dec("100"), "offer:2")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var ife *InsufficientFundsError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, sender, ife.AccountID)
	assert.True(t, ife.Available.Equal(dec("50")))
	assert.True(t, ife.Requested.Equal(dec("100")))

	assert.True(t, store.Balance(sender).Equal(dec("50")))
	assert.True(t, store.Balance(receiver).IsZero())
	assert.Empty(t, store.Entries())
	assert.Empty(t, rec.Events())
}

func TestApplyTransfer_Validation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	a := store.AddAccount(dec("10"))
	b := store.AddAccount(dec("10"))

	tests := []struct {
		name    string
		from    uuid.UUID
		to      uuid.UUID
		amount  string
		wantErr error
	}{
		{"zero", a, b, "0", ErrInvalidAmount},
		{"negative", a, b, "-1", ErrInvalidAmount},
		{"sub-cent", a, b, "0.001", ErrInvalidAmount},
		{"same account", a, a, "1", ErrSameAccount},
		{"unknown sender", uuid.New(), b, "1", ErrAccountNotFound},
		{"unknown receiver", a, uuid.New(), "1", ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyTransfer(ctx, tt.from, tt.to, dec(tt.amount), "ref")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.True(t, store.TotalBalance().Equal(dec("20")))
}

func TestApplyTransfer_StorageFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newTestService(t)
	a := store.AddAccount(dec("40"))
	b := store.AddAccount(dec("0"))

	store.FailOn(memstore.OpInsertEntry, errors.New("disk full"))
	_, err := svc.ApplyTransfer(ctx, a, b, dec("10"), "ref")
	require.ErrorIs(t, err, storage.ErrStorageFailure)

	assert.True(t, store.Balance(a).Equal(dec("40")))
	assert.True(t, store.Balance(b).IsZero())
	assert.Empty(t, rec.Events())

	store.FailOn(memstore.OpCommit, errors.New("connection lost"))
	_, err = svc.ApplyTransfer(ctx, a, b, dec("10"), "ref")
	require.ErrorIs(t, err, storage.ErrStorageFailure)
	assert.True(t, store.Balance(a).Equal(dec("40")))
	assert.Empty(t, store.Entries())
}

func TestApplyTransfer_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	sender := store.AddAccount(dec("100"))
	receiver := store.AddAccount(dec("0"))

	var wg sync.WaitGroup
	var ok, insufficient int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyTransfer(ctx, sender, receiver, dec("60"), "race")
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, ErrInsufficientFunds):
				atomic.AddInt32(&insufficient, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(9), insufficient)
	assert.True(t, store.Balance(sender).Equal(dec("40")))
	assert.True(t, store.Balance(receiver).Equal(dec("60")))
}

func TestApplyTransfer_Conservation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	ids := []uuid.UUID{
		store.AddAccount(dec("30")),
		store.AddAccount(dec("70.50")),
		store.AddAccount(dec("0")),
	}
	before := store.TotalBalance()

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := ids[i%3], ids[(i+1)%3]
			_, err := svc.ApplyTransfer(ctx, from, to, dec("12.25"), "mix")
			if err != nil && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.True(t, store.TotalBalance().Equal(before))
	for _, id := range ids {
		assert.False(t, store.Balance(id).IsNegative())
	}

	// Every entry's snapshot matches the running balance of its account.
	running := map[uuid.UUID]decimal.Decimal{
		ids[0]: dec("30"), ids[1]: dec("70.50"), ids[2]: dec("0"),
	}
	for _, e := range store.Entries() {
		running[e.AccountID] = running[e.AccountID].Add(e.Signed())
		assert.True(t, running[e.AccountID].Equal(e.BalanceAfter), "entry %s", e.ID)
	}
}

func TestApplyAdjustment(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newTestService(t)
	acct := store.AddAccount(dec("20"))

	_, err := svc.ApplyAdjustment(ctx, Adjustment{AccountID: acct, Amount: dec("-30"), Kind: models.EntryDeduction, Reference: "fix"})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, store.Balance(acct).Equal(dec("20")))

	entry, err := svc.ApplyAdjustment(ctx, Adjustment{AccountID: acct, Amount: dec("-15"), Kind: models.EntryDeduction, Reference: "fix"})
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(dec("15")))
	assert.True(t, entry.BalanceAfter.Equal(dec("5")))

	entry, err = svc.ApplyAdjustment(ctx, Adjustment{AccountID: acct, Amount: dec("50"), Kind: models.EntryRefund, Reference: "refund", Description: "damaged item"})
	require.NoError(t, err)
	assert.True(t, entry.BalanceAfter.Equal(dec("55")))
	assert.Equal(t, "damaged item", entry.Description)

	assert.Equal(t, []string{"wallet_debited", "wallet_credited"}, rec.Types())
}

func TestApplyAdjustment_KindMustMatchSign(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	acct := store.AddAccount(dec("20"))

	tests := []struct {
		name    string
		amount  string
		kind    models.EntryKind
		wantErr error
	}{
		{"negative topup", "-5", models.EntryTopUp, ErrInvalidAmount},
		{"positive deduction", "5", models.EntryDeduction, ErrInvalidAmount},
		{"transfer kind", "5", models.EntryTransferIn, ErrInvalidKind},
		{"unknown kind", "5", models.EntryKind("gift"), ErrInvalidKind},
		{"zero", "0", models.EntryAdjustment, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyAdjustment(ctx, Adjustment{AccountID: acct, Amount: dec(tt.amount), Kind: tt.kind})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.True(t, store.Balance(acct).Equal(dec("20")))
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	a := store.AddAccount(dec("10"))
	b := store.AddAccount(dec("0"))

	_, err := svc.ApplyTransfer(ctx, a, b, dec("4"), "first")
	require.NoError(t, err)
	_, err = svc.ApplyTransfer(ctx, a, b, dec("1"), "second")
	require.NoError(t, err)

	list, err := svc.History(ctx, a, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Reference)

	list, err = svc.History(ctx, a, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.History(ctx, uuid.New(), 0)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	bal, err := svc.GetBalance(ctx, b)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("5")))
}
