// Package admin is the privileged path for direct balance changes: manual
// adjustments and approval of user top-up requests.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/activity"
	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
	"github.com/UncleVee2025/barter-trade-sub003/internal/ledger"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/money"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

var (
	ErrDescriptionRequired = errors.New("adjustments require a description")
	ErrRequestNotFound     = errors.New("top-up request not found")
	ErrRequestNotPending   = errors.New("top-up request already resolved")
)

// TopUpStore persists top-up requests.
type TopUpStore interface {
	InsertTopUpRequest(ctx context.Context, r *models.TopUpRequest) error
	LockTopUpRequest(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TopUpRequest, error)
	// ResolveTopUpRequest writes r's resolution if the row is still pending,
	// else returns storage.ErrStaleRow.
	ResolveTopUpRequest(ctx context.Context, tx pgx.Tx, r *models.TopUpRequest) error
	ListTopUpRequests(ctx context.Context, status string) ([]*models.TopUpRequest, error)
}

// Ledger is the subset of *ledger.Service the admin path uses.
type Ledger interface {
	ApplyAdjustment(ctx context.Context, adj ledger.Adjustment) (*models.LedgerEntry, error)
	AdjustTx(ctx context.Context, tx pgx.Tx, adj ledger.Adjustment) (*models.LedgerEntry, error)
	Announce(ctx context.Context, entries ...*models.LedgerEntry)
}

// AdjustRequest is a manual balance change. Amount is signed. Kind defaults
// to adjustment for credits and deduction for debits.
type AdjustRequest struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Kind        models.EntryKind
	Reference   string
	Description string
}

type Service struct {
	db       ledger.TxBeginner
	topups   TopUpStore
	ledger   Ledger
	emitter  events.Emitter
	activity *activity.Log
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db ledger.TxBeginner, topups TopUpStore, l Ledger, activityLog *activity.Log, emitter events.Emitter, logger *slog.Logger) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, topups: topups, ledger: l, emitter: emitter, activity: activityLog, logger: logger, now: time.Now}
}

// Adjust credits or debits an account directly. Debits are still bound by
// the non-negative balance rule.
func (s *Service) Adjust(ctx context.Context, caller authz.Caller, req AdjustRequest) (*models.LedgerEntry, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrDescriptionRequired
	}
	kind := req.Kind
	if kind == "" {
		kind = models.EntryAdjustment
		if req.Amount.IsNegative() {
			kind = models.EntryDeduction
		}
	}
	ref := req.Reference
	if ref == "" {
		ref = "admin:" + caller.ID.String()
	}

	entry, err := s.ledger.ApplyAdjustment(ctx, ledger.Adjustment{
		AccountID:        req.AccountID,
		Amount:           req.Amount,
		Kind:             kind,
		Reference:        ref,
		Description:      req.Description,
		RelatedAccountID: &caller.ID,
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, caller.ID, req.AccountID, activity.BalanceAdjusted{
		AccountID:    req.AccountID,
		EntryID:      entry.ID,
		Kind:         string(entry.Kind),
		Amount:       req.Amount,
		BalanceAfter: entry.BalanceAfter,
		Description:  req.Description,
	})
	s.logger.Info("balance adjusted", "admin_id", caller.ID, "account_id", req.AccountID, "kind", entry.Kind, "amount", money.Format(req.Amount))
	return entry, nil
}

// RequestTopUp files a pending top-up for the caller's own account.
func (s *Service) RequestTopUp(ctx context.Context, caller authz.Caller, amount decimal.Decimal, reference string) (*models.TopUpRequest, error) {
	if caller.ID == uuid.Nil {
		return nil, authz.ErrForbidden
	}
	if err := money.ValidatePositive(amount); err != nil {
		return nil, err
	}
	r := &models.TopUpRequest{
		ID:        uuid.New(),
		AccountID: caller.ID,
		Amount:    amount,
		Reference: reference,
		Status:    models.TopUpStatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.topups.InsertTopUpRequest(ctx, r); err != nil {
		return nil, storage.Wrap("admin.insert_topup", err)
	}
	return r, nil
}

// ApproveTopUp credits the requested amount and marks the request approved,
// in one transaction. Of two admins racing, exactly one succeeds.
func (s *Service) ApproveTopUp(ctx context.Context, caller authz.Caller, id uuid.UUID, note string) (*models.TopUpRequest, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("admin.begin", err)
	}
	defer tx.Rollback(ctx)

	r, err := s.lockPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	entry, err := s.ledger.AdjustTx(ctx, tx, ledger.Adjustment{
		AccountID:        r.AccountID,
		Amount:           r.Amount,
		Kind:             models.EntryTopUp,
		Reference:        "topup:" + r.ID.String(),
		Description:      topUpDescription(r),
		RelatedAccountID: &caller.ID,
	})
	if err != nil {
		return nil, err
	}
	s.resolve(r, caller.ID, models.TopUpStatusApproved, note)
	r.EntryID = &entry.ID
	if err := s.commitResolution(ctx, tx, r); err != nil {
		return nil, err
	}

	s.ledger.Announce(ctx, entry)
	s.announce(ctx, caller.ID, r)
	return r, nil
}

// RejectTopUp closes a pending request without moving funds.
func (s *Service) RejectTopUp(ctx context.Context, caller authz.Caller, id uuid.UUID, note string) (*models.TopUpRequest, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("admin.begin", err)
	}
	defer tx.Rollback(ctx)

	r, err := s.lockPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	s.resolve(r, caller.ID, models.TopUpStatusRejected, note)
	if err := s.commitResolution(ctx, tx, r); err != nil {
		return nil, err
	}
	s.announce(ctx, caller.ID, r)
	return r, nil
}

// ListTopUps returns requests in the given status, oldest first. An empty
// status lists everything.
func (s *Service) ListTopUps(ctx context.Context, caller authz.Caller, status string) ([]*models.TopUpRequest, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	list, err := s.topups.ListTopUpRequests(ctx, status)
	if err != nil {
		return nil, storage.Wrap("admin.list_topups", err)
	}
	return list, nil
}

func (s *Service) lockPending(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TopUpRequest, error) {
	r, err := s.topups.LockTopUpRequest(ctx, tx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, storage.Wrap("admin.lock_topup", err)
	}
	if r.Status != models.TopUpStatusPending {
		return nil, ErrRequestNotPending
	}
	return r, nil
}

func (s *Service) resolve(r *models.TopUpRequest, adminID uuid.UUID, status, note string) {
	at := s.now().UTC()
	r.Status = status
	r.ResolvedBy = &adminID
	r.ResolvedAt = &at
	r.Note = note
}

// commitResolution writes the resolution and commits tx.
func (s *Service) commitResolution(ctx context.Context, tx pgx.Tx, r *models.TopUpRequest) error {
	if err := s.topups.ResolveTopUpRequest(ctx, tx, r); err != nil {
		if errors.Is(err, storage.ErrStaleRow) {
			return ErrRequestNotPending
		}
		return storage.Wrap("admin.resolve_topup", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.Wrap("admin.commit", err)
	}
	return nil
}

func (s *Service) announce(ctx context.Context, adminID uuid.UUID, r *models.TopUpRequest) {
	s.emitter.Emit(ctx, events.TopUpResolved{
		RequestID: r.ID,
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Status:    r.Status,
		AdminID:   adminID,
	})
	s.activity.Record(ctx, adminID, r.AccountID, activity.TopUpResolved{
		RequestID: r.ID,
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Status:    r.Status,
		Note:      r.Note,
	})
}

func topUpDescription(r *models.TopUpRequest) string {
	if r.Reference == "" {
		return "top-up approved"
	}
	return fmt.Sprintf("top-up approved (%s)", r.Reference)
}
