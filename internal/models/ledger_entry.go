package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind enumerates ledger entry kinds. Amount is always positive; the
// kind carries the direction.
type EntryKind string

const (
	EntryTopUp         EntryKind = "topup"
	EntryRefund        EntryKind = "refund"
	EntryAdjustment    EntryKind = "adjustment"
	EntryDeduction     EntryKind = "deduction"
	EntryTransferIn    EntryKind = "transfer_in"
	EntryTransferOut   EntryKind = "transfer_out"
	EntryVoucherRedeem EntryKind = "voucher_redeem"
)

// IsCredit reports whether an entry of this kind increases the balance.
func (k EntryKind) IsCredit() bool {
	switch k {
	case EntryTopUp, EntryRefund, EntryAdjustment, EntryTransferIn, EntryVoucherRedeem:
		return true
	}
	return false
}

// Valid reports whether k is a known kind.
func (k EntryKind) Valid() bool {
	return k.IsCredit() || k == EntryDeduction || k == EntryTransferOut
}

// Entry statuses. The engine itself only writes completed entries.
const (
	EntryStatusCompleted = "completed"
	EntryStatusPending   = "pending"
	EntryStatusFailed    = "failed"
)

// LedgerEntry is an immutable record of one balance-affecting event.
// BalanceAfter is the post-state snapshot written in the same unit as the
// balance change and never recomputed.
type LedgerEntry struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"account_id"`
	Kind             EntryKind       `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	Status           string          `json:"status"`
	RelatedAccountID *uuid.UUID      `json:"related_account_id,omitempty"`
	Reference        string          `json:"reference"`
	Description      string          `json:"description,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Signed returns the entry's effect on its account's balance.
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.Kind.IsCredit() {
		return e.Amount
	}
	return e.Amount.Neg()
}
