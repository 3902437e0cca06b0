// Package ledger owns account balances and the append-only entry log. Every
// balance change is written together with an entry carrying the post-change
// balance, inside one transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/money"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

// TxBeginner starts a unit of work. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountStore is the minimal account repository the ledger needs.
type AccountStore interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	LockAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	// DebitAccount subtracts amount only if the balance covers it and
	// returns storage.ErrStaleRow otherwise.
	DebitAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (newBalance decimal.Decimal, err error)
	CreditAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (newBalance decimal.Decimal, err error)
}

// EntryStore is the minimal ledger entry repository.
type EntryStore interface {
	InsertEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	ListEntries(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

// Transfer is the entry pair written by a peer transfer.
type Transfer struct {
	Out *models.LedgerEntry
	In  *models.LedgerEntry
}

// Adjustment is a single-sided, system-originated balance change. Amount is
// signed; Kind must agree with its sign.
type Adjustment struct {
	AccountID        uuid.UUID
	Amount           decimal.Decimal
	Kind             models.EntryKind
	Reference        string
	Description      string
	RelatedAccountID *uuid.UUID
}

type Service struct {
	db       TxBeginner
	accounts AccountStore
	entries  EntryStore
	emitter  events.Emitter
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db TxBeginner, accounts AccountStore, entries EntryStore, emitter events.Emitter, logger *slog.Logger) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, accounts: accounts, entries: entries, emitter: emitter, logger: logger, now: time.Now}
}

// GetBalance returns the committed balance of an account.
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	acc, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, s.accountErr(accountID, err)
	}
	return acc.Balance, nil
}

// History returns an account's entries, newest first. limit <= 0 means all.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, s.accountErr(accountID, err)
	}
	list, err := s.entries.ListEntries(ctx, accountID, limit)
	if err != nil {
		return nil, storage.Wrap("ledger.history", err)
	}
	return list, nil
}

// ApplyTransfer moves amount from one account to another in its own
// transaction and announces both entries after commit.
func (s *Service) ApplyTransfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, reference string) (*Transfer, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("ledger.begin", err)
	}
	defer tx.Rollback(ctx)

	t, err := s.TransferTx(ctx, tx, fromID, toID, amount, reference)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("ledger.commit", err)
	}
	s.Announce(ctx, t.Out, t.In)
	return t, nil
}

// TransferTx performs a transfer inside the caller's transaction. The caller
// commits and then calls Announce.
//
// Both account rows are locked in id order, and the sender's balance is
// re-read under that lock before the conditional debit.
func (s *Service) TransferTx(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID, amount decimal.Decimal, reference string) (*Transfer, error) {
	if err := money.ValidatePositive(amount); err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, ErrSameAccount
	}

	ids := []uuid.UUID{fromID, toID}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	locked := make(map[uuid.UUID]*models.Account, 2)
	for _, id := range ids {
		acc, err := s.accounts.LockAccount(ctx, tx, id)
		if err != nil {
			return nil, s.accountErr(id, err)
		}
		locked[id] = acc
	}

	from := locked[fromID]
	if from.Balance.LessThan(amount) {
		return nil, &InsufficientFundsError{AccountID: fromID, Available: from.Balance, Requested: amount}
	}
	fromBalance, err := s.accounts.DebitAccount(ctx, tx, fromID, amount)
	if err != nil {
		if errors.Is(err, storage.ErrStaleRow) {
			return nil, &InsufficientFundsError{AccountID: fromID, Available: from.Balance, Requested: amount}
		}
		return nil, storage.Wrap("ledger.debit", err)
	}
	toBalance, err := s.accounts.CreditAccount(ctx, tx, toID, amount)
	if err != nil {
		return nil, storage.Wrap("ledger.credit", err)
	}

	at := s.now().UTC()
	out := &models.LedgerEntry{
		ID:               uuid.New(),
		AccountID:        fromID,
		Kind:             models.EntryTransferOut,
		Amount:           amount,
		Fee:              decimal.Zero,
		BalanceAfter:     fromBalance,
		Status:           models.EntryStatusCompleted,
		RelatedAccountID: &toID,
		Reference:        reference,
		CreatedAt:        at,
	}
	in := &models.LedgerEntry{
		ID:               uuid.New(),
		AccountID:        toID,
		Kind:             models.EntryTransferIn,
		Amount:           amount,
		Fee:              decimal.Zero,
		BalanceAfter:     toBalance,
		Status:           models.EntryStatusCompleted,
		RelatedAccountID: &fromID,
		Reference:        reference,
		CreatedAt:        at,
	}
	for _, e := range []*models.LedgerEntry{out, in} {
		if err := s.entries.InsertEntry(ctx, tx, e); err != nil {
			return nil, storage.Wrap("ledger.insert_entry", err)
		}
	}
	return &Transfer{Out: out, In: in}, nil
}

// ApplyAdjustment applies a single-sided change in its own transaction.
func (s *Service) ApplyAdjustment(ctx context.Context, adj Adjustment) (*models.LedgerEntry, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("ledger.begin", err)
	}
	defer tx.Rollback(ctx)

	entry, err := s.AdjustTx(ctx, tx, adj)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("ledger.commit", err)
	}
	s.Announce(ctx, entry)
	return entry, nil
}

// AdjustTx applies an adjustment inside the caller's transaction. Negative
// amounts must use the deduction kind and are subject to the same balance
// guard as transfers.
func (s *Service) AdjustTx(ctx context.Context, tx pgx.Tx, adj Adjustment) (*models.LedgerEntry, error) {
	if err := money.ValidateNonZero(adj.Amount); err != nil {
		return nil, err
	}
	if err := checkKind(adj.Kind, adj.Amount); err != nil {
		return nil, err
	}

	acc, err := s.accounts.LockAccount(ctx, tx, adj.AccountID)
	if err != nil {
		return nil, s.accountErr(adj.AccountID, err)
	}

	amount := adj.Amount.Abs()
	var balance decimal.Decimal
	if adj.Amount.IsNegative() {
		if acc.Balance.LessThan(amount) {
			return nil, &InsufficientFundsError{AccountID: acc.ID, Available: acc.Balance, Requested: amount}
		}
		balance, err = s.accounts.DebitAccount(ctx, tx, acc.ID, amount)
		if errors.Is(err, storage.ErrStaleRow) {
			return nil, &InsufficientFundsError{AccountID: acc.ID, Available: acc.Balance, Requested: amount}
		}
	} else {
		balance, err = s.accounts.CreditAccount(ctx, tx, acc.ID, amount)
	}
	if err != nil {
		return nil, storage.Wrap("ledger.adjust", err)
	}

	entry := &models.LedgerEntry{
		ID:               uuid.New(),
		AccountID:        acc.ID,
		Kind:             adj.Kind,
		Amount:           amount,
		Fee:              decimal.Zero,
		BalanceAfter:     balance,
		Status:           models.EntryStatusCompleted,
		RelatedAccountID: adj.RelatedAccountID,
		Reference:        adj.Reference,
		Description:      adj.Description,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.entries.InsertEntry(ctx, tx, entry); err != nil {
		return nil, storage.Wrap("ledger.insert_entry", err)
	}
	return entry, nil
}

// Announce emits a wallet event per committed entry. Call only after the
// owning transaction has committed.
func (s *Service) Announce(ctx context.Context, entries ...*models.LedgerEntry) {
	for _, e := range entries {
		if e == nil {
			continue
		}
		if e.Kind.IsCredit() {
			s.emitter.Emit(ctx, events.WalletCredited{
				AccountID:      e.AccountID,
				EntryID:        e.ID,
				Kind:           string(e.Kind),
				Amount:         e.Amount,
				BalanceAfter:   e.BalanceAfter,
				CounterpartyID: e.RelatedAccountID,
				Reference:      e.Reference,
			})
			continue
		}
		s.emitter.Emit(ctx, events.WalletDebited{
			AccountID:      e.AccountID,
			EntryID:        e.ID,
			Kind:           string(e.Kind),
			Amount:         e.Amount,
			BalanceAfter:   e.BalanceAfter,
			CounterpartyID: e.RelatedAccountID,
			Reference:      e.Reference,
		})
	}
}

func checkKind(kind models.EntryKind, amount decimal.Decimal) error {
	switch kind {
	case models.EntryTopUp, models.EntryRefund, models.EntryAdjustment, models.EntryVoucherRedeem:
		if amount.IsNegative() {
			return fmt.Errorf("%w: %s entries must be positive", ErrInvalidAmount, kind)
		}
		return nil
	case models.EntryDeduction:
		if amount.IsPositive() {
			return fmt.Errorf("%w: deductions take a negative amount", ErrInvalidAmount)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
}

func (s *Service) accountErr(id uuid.UUID, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return storage.Wrap("ledger.account", err)
}
