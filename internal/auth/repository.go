package auth

import (
	"context"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

// Repository is the account storage auth needs. Satisfied by
// repository.AccountRepo and memstore.Store.
type Repository interface {
	// InsertAccount returns storage.ErrConflict for a taken email.
	InsertAccount(ctx context.Context, a *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
}
