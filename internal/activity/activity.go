// Package activity records a best-effort audit trail of privileged and
// financial actions. A failed write is logged and dropped; it never fails the
// operation that produced it.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

// Detail is a typed activity payload.
type Detail interface {
	Action() string
}

// Store persists activity rows.
type Store interface {
	InsertActivity(ctx context.Context, a *models.Activity) error
}

// Log writes activity rows after the audited unit has committed.
type Log struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLog(store Store, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{store: store, logger: logger, now: time.Now}
}

// Record writes one entry. Errors are logged, never returned.
func (l *Log) Record(ctx context.Context, actorID, subjectID uuid.UUID, d Detail) {
	if l == nil || l.store == nil {
		return
	}
	details, err := json.Marshal(d)
	if err != nil {
		l.logger.Error("activity: marshal details", "action", d.Action(), "error", err)
		return
	}
	a := &models.Activity{
		ID:        uuid.New(),
		ActorID:   actorID,
		Action:    d.Action(),
		SubjectID: subjectID,
		Details:   details,
		CreatedAt: l.now().UTC(),
	}
	if err := l.store.InsertActivity(ctx, a); err != nil {
		l.logger.Warn("activity: write failed", "action", a.Action, "subject_id", subjectID, "error", err)
	}
}

type BalanceAdjusted struct {
	AccountID    uuid.UUID       `json:"account_id"`
	EntryID      uuid.UUID       `json:"entry_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description"`
}

func (BalanceAdjusted) Action() string { return "balance_adjusted" }

type TopUpResolved struct {
	RequestID uuid.UUID       `json:"request_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Note      string          `json:"note,omitempty"`
}

func (TopUpResolved) Action() string { return "topup_resolved" }

type VoucherBatchIssued struct {
	BatchID  uuid.UUID       `json:"batch_id"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
	Vendor   string          `json:"vendor"`
}

func (VoucherBatchIssued) Action() string { return "voucher_batch_issued" }

type VoucherDisabled struct {
	VoucherID uuid.UUID `json:"voucher_id"`
	BatchID   uuid.UUID `json:"batch_id"`
}

func (VoucherDisabled) Action() string { return "voucher_disabled" }

type VoucherRedeemed struct {
	VoucherID uuid.UUID       `json:"voucher_id"`
	EntryID   uuid.UUID       `json:"entry_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (VoucherRedeemed) Action() string { return "voucher_redeemed" }

type TradeCompleted struct {
	OfferID  uuid.UUID       `json:"offer_id"`
	TradeID  uuid.UUID       `json:"trade_id"`
	BuyerID  uuid.UUID       `json:"buyer_id"`
	SellerID uuid.UUID       `json:"seller_id"`
	Amount   decimal.Decimal `json:"amount"`
}

func (TradeCompleted) Action() string { return "trade_completed" }
