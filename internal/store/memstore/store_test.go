package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

func TestRollbackUndoesWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := s.AddAccount(decimal.NewFromInt(100))
	item := s.AddListing(acct, "bike")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.DebitAccount(ctx, tx, acct, decimal.NewFromInt(40))
	require.NoError(t, err)
	require.NoError(t, s.InsertEntry(ctx, tx, &models.LedgerEntry{ID: uuid.New(), AccountID: acct}))
	require.NoError(t, s.SetListingStatus(ctx, tx, item, models.ListingStatusSold))
	require.NoError(t, tx.Rollback(ctx))

	assert.True(t, s.Balance(acct).Equal(decimal.NewFromInt(100)))
	assert.Empty(t, s.Entries())
	assert.Equal(t, models.ListingStatusActive, s.ListingStatus(item))
}

func TestCommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := s.AddAccount(decimal.Zero)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	bal, err := s.CreditAccount(ctx, tx, acct, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(25)))
	require.NoError(t, tx.Commit(ctx))
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)

	assert.True(t, s.Balance(acct).Equal(decimal.NewFromInt(25)))
}

func TestSavepointRollback(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	first := &models.Voucher{ID: uuid.New(), Code: "1111111111", Status: models.VoucherStatusUnused}
	require.NoError(t, s.InsertVoucher(ctx, tx, first))

	sp, err := tx.Begin(ctx)
	require.NoError(t, err)
	dup := &models.Voucher{ID: uuid.New(), Code: "1111111111"}
	assert.ErrorIs(t, s.InsertVoucher(ctx, sp, dup), storage.ErrConflict)
	second := &models.Voucher{ID: uuid.New(), Code: "2222222222"}
	require.NoError(t, s.InsertVoucher(ctx, sp, second))
	require.NoError(t, sp.Rollback(ctx))

	require.NoError(t, tx.Commit(ctx))

	_, err = s.GetVoucherByCode(ctx, "1111111111")
	assert.NoError(t, err)
	_, err = s.GetVoucherByCode(ctx, "2222222222")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDebitGuardsBalance(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := s.AddAccount(decimal.NewFromInt(20))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = s.DebitAccount(ctx, tx, acct, decimal.NewFromInt(30))
	assert.ErrorIs(t, err, storage.ErrStaleRow)
	_, err = s.DebitAccount(ctx, tx, uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := s.AddAccount(decimal.NewFromInt(10))
	boom := errors.New("connection reset")
	s.FailOn(OpCreditAccount, boom)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.CreditAccount(ctx, tx, acct, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
	assert.ErrorIs(t, err, boom)

	// One-shot.
	_, err = s.CreditAccount(ctx, tx, acct, decimal.NewFromInt(1))
	assert.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
}

func TestFailedCommitRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := s.AddAccount(decimal.NewFromInt(10))
	s.FailOn(OpCommit, errors.New("commit lost"))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.CreditAccount(ctx, tx, acct, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.ErrorIs(t, tx.Commit(ctx), storage.ErrStorageFailure)

	assert.True(t, s.Balance(acct).Equal(decimal.NewFromInt(10)))

	// The unit lock was released.
	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
}

func TestTransitionOfferIsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	o := &models.TradeOffer{ID: uuid.New(), Status: models.OfferStatusPending, ExpiresAt: time.Now().Add(time.Hour)}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InsertOffer(ctx, tx, o))
	require.NoError(t, s.TransitionOffer(ctx, tx, o.ID, models.OfferStatusPending, models.OfferStatusAccepted, time.Now()))
	assert.ErrorIs(t, s.TransitionOffer(ctx, tx, o.ID, models.OfferStatusPending, models.OfferStatusRejected, time.Now()), storage.ErrStaleRow)
	require.NoError(t, tx.Commit(ctx))

	got, err := s.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusAccepted, got.Status)
	assert.NotNil(t, got.RespondedAt)
}

func TestWritesOutsideUnitRejected(t *testing.T) {
	s := New()
	acct := s.AddAccount(decimal.Zero)
	_, err := s.CreditAccount(context.Background(), nil, acct, decimal.NewFromInt(1))
	assert.Error(t, err)
}
