package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Voucher statuses. used, disabled and expired are terminal.
const (
	VoucherStatusUnused   = "unused"
	VoucherStatusUsed     = "used"
	VoucherStatusDisabled = "disabled"
	VoucherStatusExpired  = "expired"
)

// Voucher is a single-use prepaid code. Vouchers are never deleted.
type Voucher struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	UsedBy    *uuid.UUID      `json:"used_by,omitempty"`
	UsedAt    *time.Time      `json:"used_at,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedBy uuid.UUID       `json:"created_by"`
	BatchID   uuid.UUID       `json:"batch_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// VoucherBatch records one issuance.
type VoucherBatch struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Quantity  int             `json:"quantity"`
	Vendor    string          `json:"vendor"`
	CreatedBy uuid.UUID       `json:"created_by"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}
