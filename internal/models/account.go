package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account roles supplied by the identity collaborator.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the wallet owned by one user. Balance never goes negative and
// is only written inside a ledger unit of work.
type Account struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	DisplayName  string          `json:"display_name"`
	PasswordHash string          `json:"-"`
	Role         string          `json:"role"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
