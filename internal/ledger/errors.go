package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/money"
)

var (
	// ErrInsufficientFunds is returned when a debit would take a balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrAccountNotFound = errors.New("account not found")
	ErrSameAccount     = errors.New("cannot transfer to the same account")
	ErrInvalidKind     = errors.New("invalid entry kind for adjustment")

	// ErrInvalidAmount is money.ErrInvalidAmount, re-exported for callers
	// that only import ledger.
	ErrInvalidAmount = money.ErrInvalidAmount
)

// InsufficientFundsError reports the balance observed inside the unit.
type InsufficientFundsError struct {
	AccountID uuid.UUID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %s: available %s, requested %s",
		e.AccountID, money.Format(e.Available), money.Format(e.Requested))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
