// Package vouchers issues prepaid voucher codes and converts a code into a
// wallet credit exactly once.
package vouchers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/activity"
	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
	"github.com/UncleVee2025/barter-trade-sub003/internal/ledger"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

// Batch limits.
const (
	MaxQuantity            = 1000
	MaxExpiryDays          = 3650
	DefaultMaxCodeAttempts = 5
)

// Denominations are the face values a voucher may carry.
var Denominations = []decimal.Decimal{
	decimal.NewFromInt(10),
	decimal.NewFromInt(20),
	decimal.NewFromInt(50),
	decimal.NewFromInt(100),
	decimal.NewFromInt(200),
	decimal.NewFromInt(500),
}

var (
	ErrVoucherNotFound          = errors.New("voucher not found")
	ErrVoucherAlreadyUsed       = errors.New("voucher already used")
	ErrVoucherDisabled          = errors.New("voucher disabled")
	ErrVoucherExpired           = errors.New("voucher expired")
	ErrCodeGenerationExhausted  = errors.New("could not generate a unique voucher code")
	ErrCannotDisableUsedVoucher = errors.New("cannot disable a used voucher")
	ErrInvalidDenomination      = errors.New("amount is not a voucher denomination")
	ErrInvalidBatch             = errors.New("invalid voucher batch")
	ErrTooManyAttempts          = errors.New("too many redemption attempts")
)

// Store is the voucher repository.
type Store interface {
	InsertVoucherBatch(ctx context.Context, tx pgx.Tx, b *models.VoucherBatch) error
	// InsertVoucher returns storage.ErrConflict when the code already exists.
	InsertVoucher(ctx context.Context, tx pgx.Tx, v *models.Voucher) error
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	LockVoucherByCode(ctx context.Context, tx pgx.Tx, code string) (*models.Voucher, error)
	// MarkVoucherUsed flips unused to used, or returns storage.ErrStaleRow.
	MarkVoucherUsed(ctx context.Context, tx pgx.Tx, id, accountID uuid.UUID, at time.Time) error
	SetVoucherStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) error
	ListVouchersByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Voucher, error)
}

// Ledger is the subset of *ledger.Service vouchers use.
type Ledger interface {
	AdjustTx(ctx context.Context, tx pgx.Tx, adj ledger.Adjustment) (*models.LedgerEntry, error)
	Announce(ctx context.Context, entries ...*models.LedgerEntry)
}

// Limiter throttles redemption attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IssueRequest describes a batch.
type IssueRequest struct {
	Amount     decimal.Decimal
	Quantity   int
	Vendor     string
	ExpiryDays int
}

type Service struct {
	db          ledger.TxBeginner
	store       Store
	ledger      Ledger
	emitter     events.Emitter
	activity    *activity.Log
	limiter     Limiter
	logger      *slog.Logger
	newCode     CodeGenerator
	maxAttempts int
	now         func() time.Time
}

type Option func(*Service)

func WithLimiter(l Limiter) Option { return func(s *Service) { s.limiter = l } }

func WithActivityLog(l *activity.Log) Option { return func(s *Service) { s.activity = l } }

func WithCodeGenerator(g CodeGenerator) Option { return func(s *Service) { s.newCode = g } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithMaxCodeAttempts bounds how many candidates are tried per voucher.
func WithMaxCodeAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(db ledger.TxBeginner, store Store, l Ledger, emitter events.Emitter, logger *slog.Logger, opts ...Option) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:          db,
		store:       store,
		ledger:      l,
		emitter:     emitter,
		logger:      logger,
		newCode:     RandomCode,
		maxAttempts: DefaultMaxCodeAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsDenomination reports whether amount is an allowed face value.
func IsDenomination(amount decimal.Decimal) bool {
	for _, d := range Denominations {
		if d.Equal(amount) {
			return true
		}
	}
	return false
}

// IssueBatch creates req.Quantity unused vouchers in one transaction.
// Uniqueness is enforced by the store: each insert runs in a savepoint and a
// conflicting code is regenerated, up to the configured attempt limit.
func (s *Service) IssueBatch(ctx context.Context, caller authz.Caller, req IssueRequest) (*models.VoucherBatch, []*models.Voucher, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, nil, err
	}
	if !IsDenomination(req.Amount) {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidDenomination, req.Amount)
	}
	if req.Quantity < 1 || req.Quantity > MaxQuantity {
		return nil, nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidBatch, MaxQuantity)
	}
	if req.ExpiryDays < 1 || req.ExpiryDays > MaxExpiryDays {
		return nil, nil, fmt.Errorf("%w: expiry must be between 1 and %d days", ErrInvalidBatch, MaxExpiryDays)
	}

	at := s.now().UTC()
	batch := &models.VoucherBatch{
		ID:        uuid.New(),
		Amount:    req.Amount,
		Quantity:  req.Quantity,
		Vendor:    req.Vendor,
		CreatedBy: caller.ID,
		ExpiresAt: at.AddDate(0, 0, req.ExpiryDays),
		CreatedAt: at,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, storage.Wrap("vouchers.begin", err)
	}
	defer tx.Rollback(ctx)

	if err := s.store.InsertVoucherBatch(ctx, tx, batch); err != nil {
		return nil, nil, storage.Wrap("vouchers.insert_batch", err)
	}
	issued := make([]*models.Voucher, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		v := &models.Voucher{
			ID:        uuid.New(),
			Amount:    batch.Amount,
			Status:    models.VoucherStatusUnused,
			ExpiresAt: batch.ExpiresAt,
			CreatedBy: caller.ID,
			BatchID:   batch.ID,
			CreatedAt: at,
		}
		if err := s.insertWithFreshCode(ctx, tx, v); err != nil {
			return nil, nil, err
		}
		issued = append(issued, v)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, storage.Wrap("vouchers.commit", err)
	}

	s.emitter.Emit(ctx, events.VoucherBatchIssued{
		BatchID:   batch.ID,
		Amount:    batch.Amount,
		Quantity:  batch.Quantity,
		Vendor:    batch.Vendor,
		CreatedBy: caller.ID,
	})
	s.activity.Record(ctx, caller.ID, batch.ID, activity.VoucherBatchIssued{
		BatchID:  batch.ID,
		Amount:   batch.Amount,
		Quantity: batch.Quantity,
		Vendor:   batch.Vendor,
	})
	s.logger.Info("voucher batch issued", "batch_id", batch.ID, "quantity", batch.Quantity, "amount", batch.Amount.String())
	return batch, issued, nil
}

func (s *Service) insertWithFreshCode(ctx context.Context, tx pgx.Tx, v *models.Voucher) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return err
		}
		v.Code = code

		sp, err := tx.Begin(ctx)
		if err != nil {
			return storage.Wrap("vouchers.savepoint", err)
		}
		err = s.store.InsertVoucher(ctx, sp, v)
		if errors.Is(err, storage.ErrConflict) {
			_ = sp.Rollback(ctx)
			s.logger.Debug("voucher code collision, regenerating", "attempt", attempt+1)
			continue
		}
		if err != nil {
			_ = sp.Rollback(ctx)
			return storage.Wrap("vouchers.insert", err)
		}
		if err := sp.Commit(ctx); err != nil {
			return storage.Wrap("vouchers.savepoint", err)
		}
		return nil
	}
	return ErrCodeGenerationExhausted
}

// Redeem credits the voucher's amount to accountID and marks it used, in one
// transaction. Only the first of any number of concurrent redemptions of a
// code succeeds.
func (s *Service) Redeem(ctx context.Context, accountID uuid.UUID, code string) (*models.LedgerEntry, error) {
	if accountID == uuid.Nil {
		return nil, authz.ErrForbidden
	}
	if err := s.throttle(ctx, accountID); err != nil {
		return nil, err
	}
	if !ValidCode(code) {
		return nil, ErrVoucherNotFound
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("vouchers.begin", err)
	}
	defer tx.Rollback(ctx)

	v, err := s.store.LockVoucherByCode(ctx, tx, code)
	if err != nil {
		return nil, s.voucherErr(err)
	}
	if err := s.checkRedeemable(ctx, tx, v); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.store.MarkVoucherUsed(ctx, tx, v.ID, accountID, at); err != nil {
		if errors.Is(err, storage.ErrStaleRow) {
			return nil, ErrVoucherAlreadyUsed
		}
		return nil, storage.Wrap("vouchers.mark_used", err)
	}
	entry, err := s.ledger.AdjustTx(ctx, tx, ledger.Adjustment{
		AccountID:   accountID,
		Amount:      v.Amount,
		Kind:        models.EntryVoucherRedeem,
		Reference:   v.Code,
		Description: "voucher redemption",
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("vouchers.commit", err)
	}

	s.ledger.Announce(ctx, entry)
	s.emitter.Emit(ctx, events.VoucherRedeemed{VoucherID: v.ID, AccountID: accountID, Amount: v.Amount, BatchID: v.BatchID})
	s.activity.Record(ctx, accountID, v.ID, activity.VoucherRedeemed{VoucherID: v.ID, EntryID: entry.ID, Amount: v.Amount})
	return entry, nil
}

// checkRedeemable maps the locked voucher's status to an error. An unused
// voucher past its expiry is flipped to expired and committed on tx first.
func (s *Service) checkRedeemable(ctx context.Context, tx pgx.Tx, v *models.Voucher) error {
	switch v.Status {
	case models.VoucherStatusUsed:
		return ErrVoucherAlreadyUsed
	case models.VoucherStatusDisabled:
		return ErrVoucherDisabled
	case models.VoucherStatusExpired:
		return ErrVoucherExpired
	}
	if s.now().Before(v.ExpiresAt) {
		return nil
	}
	if err := s.store.SetVoucherStatus(ctx, tx, v.ID, models.VoucherStatusUnused, models.VoucherStatusExpired); err != nil {
		if errors.Is(err, storage.ErrStaleRow) {
			return ErrVoucherExpired
		}
		return storage.Wrap("vouchers.expire", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.Wrap("vouchers.commit", err)
	}
	return ErrVoucherExpired
}

// ThrottleKey is the limiter key counting an account's redemption attempts.
func ThrottleKey(accountID uuid.UUID) string {
	return "voucher_redeem:" + accountID.String()
}

func (s *Service) throttle(ctx context.Context, accountID uuid.UUID) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, ThrottleKey(accountID))
	if err != nil {
		s.logger.Warn("redemption limiter unavailable, allowing attempt", "account_id", accountID, "error", err)
		return nil
	}
	if !ok {
		return ErrTooManyAttempts
	}
	return nil
}

// Disable retires an unused voucher. Used vouchers cannot be disabled and
// disabling twice is a no-op.
func (s *Service) Disable(ctx context.Context, caller authz.Caller, code string) (*models.Voucher, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("vouchers.begin", err)
	}
	defer tx.Rollback(ctx)

	v, err := s.store.LockVoucherByCode(ctx, tx, code)
	if err != nil {
		return nil, s.voucherErr(err)
	}
	switch v.Status {
	case models.VoucherStatusUsed:
		return nil, ErrCannotDisableUsedVoucher
	case models.VoucherStatusDisabled:
		return v, nil
	case models.VoucherStatusExpired:
		return nil, ErrVoucherExpired
	}
	if err := s.store.SetVoucherStatus(ctx, tx, v.ID, models.VoucherStatusUnused, models.VoucherStatusDisabled); err != nil {
		if errors.Is(err, storage.ErrStaleRow) {
			return nil, ErrCannotDisableUsedVoucher
		}
		return nil, storage.Wrap("vouchers.disable", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("vouchers.commit", err)
	}
	v.Status = models.VoucherStatusDisabled
	s.activity.Record(ctx, caller.ID, v.ID, activity.VoucherDisabled{VoucherID: v.ID, BatchID: v.BatchID})
	return v, nil
}

// Lookup returns a voucher by code to an admin.
func (s *Service) Lookup(ctx context.Context, caller authz.Caller, code string) (*models.Voucher, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	v, err := s.store.GetVoucherByCode(ctx, code)
	if err != nil {
		return nil, s.voucherErr(err)
	}
	return v, nil
}

func (s *Service) ListBatch(ctx context.Context, caller authz.Caller, batchID uuid.UUID) ([]*models.Voucher, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	list, err := s.store.ListVouchersByBatch(ctx, batchID)
	if err != nil {
		return nil, storage.Wrap("vouchers.list_batch", err)
	}
	return list, nil
}

func (s *Service) voucherErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrVoucherNotFound
	}
	return storage.Wrap("vouchers.load", err)
}
