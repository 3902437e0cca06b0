package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

const accountColumns = `id, email, display_name, password_hash, role, balance, created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// InsertAccount creates a wallet account. Duplicate emails return
// storage.ErrConflict.
func (r *AccountRepo) InsertAccount(ctx context.Context, a *models.Account) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, role, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.DisplayName, a.PasswordHash, a.Role, a.Balance).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr("accounts.insert", err)
}

func (r *AccountRepo) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id), "accounts.get")
}

func (r *AccountRepo) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email), "accounts.get_by_email")
}

// LockAccount reads the account row FOR UPDATE inside tx.
func (r *AccountRepo) LockAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id), "accounts.lock")
}

// DebitAccount subtracts amount only while the balance covers it.
func (r *AccountRepo) DebitAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, storage.ErrStaleRow
	}
	if err != nil {
		return decimal.Zero, mapErr("accounts.debit", err)
	}
	return balance, nil
}

func (r *AccountRepo) CreditAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&balance)
	if err != nil {
		return decimal.Zero, mapErr("accounts.credit", err)
	}
	return balance, nil
}

func scanAccount(row pgx.Row, op string) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Role, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return &a, nil
}
