// Package memstore is an in-memory implementation of every repository the
// engine uses. Units of work are serialized and roll back through an undo
// journal, which makes it suitable for tests and local development. Single
// operations can be forced to fail with FailOn.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

// Operation names accepted by FailOn.
const (
	OpCommit           = "commit"
	OpDebitAccount     = "accounts.debit"
	OpCreditAccount    = "accounts.credit"
	OpInsertEntry      = "entries.insert"
	OpInsertOffer      = "offers.insert"
	OpTransitionOffer  = "offers.transition"
	OpInsertTrade      = "trades.insert"
	OpSetListingStatus = "listings.set_status"
	OpInsertVoucher    = "vouchers.insert"
	OpMarkVoucherUsed  = "vouchers.mark_used"
	OpSetVoucherStatus = "vouchers.set_status"
	OpResolveTopUp     = "topups.resolve"
	OpInsertActivity   = "activity.insert"
)

var errNotInUnit = errors.New("memstore: write outside a live transaction")

type Store struct {
	// units serializes units of work, standing in for row locks.
	units sync.Mutex
	// mu guards the maps below.
	mu sync.RWMutex

	accounts map[uuid.UUID]*models.Account
	entries  []*models.LedgerEntry
	offers   map[uuid.UUID]*models.TradeOffer
	trades   map[uuid.UUID]*models.CompletedTrade
	listings map[uuid.UUID]*models.Listing
	batches  map[uuid.UUID]*models.VoucherBatch
	vouchers map[uuid.UUID]*models.Voucher
	codes    map[string]uuid.UUID
	topups   map[uuid.UUID]*models.TopUpRequest
	activity []*models.Activity

	failMu   sync.Mutex
	failures map[string]error
}

func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*models.Account),
		offers:   make(map[uuid.UUID]*models.TradeOffer),
		trades:   make(map[uuid.UUID]*models.CompletedTrade),
		listings: make(map[uuid.UUID]*models.Listing),
		batches:  make(map[uuid.UUID]*models.VoucherBatch),
		vouchers: make(map[uuid.UUID]*models.Voucher),
		codes:    make(map[string]uuid.UUID),
		topups:   make(map[uuid.UUID]*models.TopUpRequest),
		failures: make(map[string]error),
	}
}

// Begin opens a unit of work. It blocks while another unit is open.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("begin", err)
	}
	s.units.Lock()
	return &memTx{store: s}, nil
}

// FailOn makes the next call of op return err.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

// unit resolves tx to a live memTx, consuming any failure injected for op.
func (s *Store) unit(tx pgx.Tx, op string) (*memTx, error) {
	if err := s.injected(op); err != nil {
		return nil, storage.Wrap(op, err)
	}
	t, ok := tx.(*memTx)
	if !ok || t.done || t.store != s {
		return nil, fmt.Errorf("%s: %w", op, errNotInUnit)
	}
	return t, nil
}

func now() time.Time { return time.Now().UTC() }

// --- accounts ---

func (s *Store) InsertAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return storage.ErrConflict
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) LockAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	if _, err := s.unit(tx, "accounts.lock"); err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, id)
}

func (s *Store) DebitAccount(_ context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	t, err := s.unit(tx, OpDebitAccount)
	if err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, storage.ErrNotFound
	}
	if a.Balance.LessThan(amount) {
		return decimal.Zero, storage.ErrStaleRow
	}
	s.setBalance(t, a, a.Balance.Sub(amount))
	return a.Balance, nil
}

func (s *Store) CreditAccount(_ context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	t, err := s.unit(tx, OpCreditAccount)
	if err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, storage.ErrNotFound
	}
	s.setBalance(t, a, a.Balance.Add(amount))
	return a.Balance, nil
}

// setBalance must be called with mu held.
func (s *Store) setBalance(t *memTx, a *models.Account, balance decimal.Decimal) {
	prevBalance, prevUpdated := a.Balance, a.UpdatedAt
	a.Balance = balance
	a.UpdatedAt = now()
	t.onRollback(func() {
		a.Balance = prevBalance
		a.UpdatedAt = prevUpdated
	})
}

// --- ledger entries ---

func (s *Store) InsertEntry(_ context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	t, err := s.unit(tx, OpInsertEntry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	cp := *e
	s.entries = append(s.entries, &cp)
	n := len(s.entries) - 1
	t.onRollback(func() { s.entries = s.entries[:n] })
	return nil
}

// ListEntries returns an account's entries, newest first.
func (s *Store) ListEntries(_ context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].AccountID != accountID {
			continue
		}
		cp := *s.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// --- listings ---

func (s *Store) ListingOwnerAndStatus(_ context.Context, tx pgx.Tx, id uuid.UUID) (uuid.UUID, string, error) {
	if _, err := s.unit(tx, "listings.lock"); err != nil {
		return uuid.Nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return uuid.Nil, "", storage.ErrNotFound
	}
	return l.OwnerID, l.Status, nil
}

func (s *Store) SetListingStatus(_ context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	t, err := s.unit(tx, OpSetListingStatus)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return storage.ErrNotFound
	}
	prev := l.Status
	l.Status = status
	t.onRollback(func() { l.Status = prev })
	return nil
}

// --- offers ---

func (s *Store) InsertOffer(_ context.Context, tx pgx.Tx, o *models.TradeOffer) error {
	t, err := s.unit(tx, OpInsertOffer)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.offers[o.ID]; exists {
		return storage.ErrConflict
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now()
	}
	o.UpdatedAt = o.CreatedAt
	s.offers[o.ID] = copyOffer(o)
	t.onRollback(func() { delete(s.offers, o.ID) })
	return nil
}

func (s *Store) GetOffer(_ context.Context, id uuid.UUID) (*models.TradeOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyOffer(o), nil
}

func (s *Store) LockOffer(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TradeOffer, error) {
	if _, err := s.unit(tx, "offers.lock"); err != nil {
		return nil, err
	}
	return s.GetOffer(ctx, id)
}

// TransitionOffer moves an offer from one status to another, failing with
// storage.ErrStaleRow when it is no longer in from.
func (s *Store) TransitionOffer(_ context.Context, tx pgx.Tx, id uuid.UUID, from, to string, at time.Time) error {
	t, err := s.unit(tx, OpTransitionOffer)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok || o.Status != from {
		return storage.ErrStaleRow
	}
	prev := copyOffer(o)
	o.Status = to
	o.UpdatedAt = at
	responded := at
	o.RespondedAt = &responded
	t.onRollback(func() { s.offers[id] = prev })
	return nil
}

// ListOffersForUser returns offers the user sent or received, newest first.
func (s *Store) ListOffersForUser(_ context.Context, userID uuid.UUID) ([]*models.TradeOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TradeOffer
	for _, o := range s.offers {
		if o.SenderID == userID || o.ReceiverID == userID {
			out = append(out, copyOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListExpiredPendingOffers returns ids of pending offers whose expiry has
// passed at now.
func (s *Store) ListExpiredPendingOffers(_ context.Context, at time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for id, o := range s.offers {
		if o.Status == models.OfferStatusPending && !at.Before(o.ExpiresAt) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) InsertCompletedTrade(_ context.Context, tx pgx.Tx, ct *models.CompletedTrade) error {
	t, err := s.unit(tx, OpInsertTrade)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trades[ct.OfferID]; exists {
		return storage.ErrConflict
	}
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = now()
	}
	cp := *ct
	s.trades[ct.OfferID] = &cp
	t.onRollback(func() { delete(s.trades, ct.OfferID) })
	return nil
}

func copyOffer(o *models.TradeOffer) *models.TradeOffer {
	cp := *o
	cp.SenderItemIDs = append([]uuid.UUID(nil), o.SenderItemIDs...)
	cp.ReceiverItemIDs = append([]uuid.UUID(nil), o.ReceiverItemIDs...)
	if o.RespondedAt != nil {
		at := *o.RespondedAt
		cp.RespondedAt = &at
	}
	return &cp
}

// --- vouchers ---

func (s *Store) InsertVoucherBatch(_ context.Context, tx pgx.Tx, b *models.VoucherBatch) error {
	t, err := s.unit(tx, "vouchers.insert_batch")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now()
	}
	cp := *b
	s.batches[b.ID] = &cp
	t.onRollback(func() { delete(s.batches, b.ID) })
	return nil
}

// InsertVoucher fails with storage.ErrConflict when the code is taken.
func (s *Store) InsertVoucher(_ context.Context, tx pgx.Tx, v *models.Voucher) error {
	t, err := s.unit(tx, OpInsertVoucher)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[v.Code]; taken {
		return storage.ErrConflict
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now()
	}
	cp := *v
	s.vouchers[v.ID] = &cp
	s.codes[v.Code] = v.ID
	t.onRollback(func() {
		delete(s.vouchers, v.ID)
		delete(s.codes, v.Code)
	})
	return nil
}

func (s *Store) GetVoucherByCode(_ context.Context, code string) (*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.vouchers[id]
	return &cp, nil
}

func (s *Store) LockVoucherByCode(ctx context.Context, tx pgx.Tx, code string) (*models.Voucher, error) {
	if _, err := s.unit(tx, "vouchers.lock"); err != nil {
		return nil, err
	}
	return s.GetVoucherByCode(ctx, code)
}

// MarkVoucherUsed flips an unused voucher to used.
func (s *Store) MarkVoucherUsed(_ context.Context, tx pgx.Tx, id, accountID uuid.UUID, at time.Time) error {
	t, err := s.unit(tx, OpMarkVoucherUsed)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[id]
	if !ok || v.Status != models.VoucherStatusUnused {
		return storage.ErrStaleRow
	}
	prev := *v
	usedBy, usedAt := accountID, at
	v.Status = models.VoucherStatusUsed
	v.UsedBy = &usedBy
	v.UsedAt = &usedAt
	t.onRollback(func() { *v = prev })
	return nil
}

func (s *Store) SetVoucherStatus(_ context.Context, tx pgx.Tx, id uuid.UUID, from, to string) error {
	t, err := s.unit(tx, OpSetVoucherStatus)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[id]
	if !ok || v.Status != from {
		return storage.ErrStaleRow
	}
	v.Status = to
	t.onRollback(func() { v.Status = from })
	return nil
}

func (s *Store) ListVouchersByBatch(_ context.Context, batchID uuid.UUID) ([]*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Voucher
	for _, v := range s.vouchers {
		if v.BatchID == batchID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// --- top-up requests ---

func (s *Store) InsertTopUpRequest(_ context.Context, r *models.TopUpRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	cp := *r
	s.topups[r.ID] = &cp
	return nil
}

func (s *Store) LockTopUpRequest(_ context.Context, tx pgx.Tx, id uuid.UUID) (*models.TopUpRequest, error) {
	if _, err := s.unit(tx, "topups.lock"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.topups[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ResolveTopUpRequest stores r's resolution if the stored row is still
// pending.
func (s *Store) ResolveTopUpRequest(_ context.Context, tx pgx.Tx, r *models.TopUpRequest) error {
	t, err := s.unit(tx, OpResolveTopUp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.topups[r.ID]
	if !ok || stored.Status != models.TopUpStatusPending {
		return storage.ErrStaleRow
	}
	prev := stored
	cp := *r
	s.topups[r.ID] = &cp
	t.onRollback(func() { s.topups[r.ID] = prev })
	return nil
}

func (s *Store) ListTopUpRequests(_ context.Context, status string) ([]*models.TopUpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TopUpRequest
	for _, r := range s.topups {
		if status == "" || r.Status == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- activity ---

func (s *Store) InsertActivity(_ context.Context, a *models.Activity) error {
	if err := s.injected(OpInsertActivity); err != nil {
		return storage.Wrap(OpInsertActivity, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.activity = append(s.activity, &cp)
	return nil
}

// ListActivity returns the newest rows about subjectID.
func (s *Store) ListActivity(_ context.Context, subjectID uuid.UUID, limit int) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Activity
	for i := len(s.activity) - 1; i >= 0; i-- {
		if s.activity[i].SubjectID != subjectID {
			continue
		}
		cp := *s.activity[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
