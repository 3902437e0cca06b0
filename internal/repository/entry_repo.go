package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

type EntryRepo struct {
	pool *pgxpool.Pool
}

func NewEntryRepo(pool *pgxpool.Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

// InsertEntry appends a ledger entry inside tx. Entries are never updated.
func (r *EntryRepo) InsertEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, account_id, kind, amount, fee, balance_after, status, related_account_id, reference, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.AccountID, e.Kind, e.Amount, e.Fee, e.BalanceAfter, e.Status, e.RelatedAccountID, e.Reference, e.Description, e.CreatedAt)
	return mapErr("entries.insert", err)
}

// ListEntries returns an account's entries, newest first. limit <= 0 means
// no limit.
func (r *EntryRepo) ListEntries(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, kind, amount, fee, balance_after, status, related_account_id, reference, description, created_at
		FROM ledger_entries WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, accountID, lim)
	if err != nil {
		return nil, mapErr("entries.list", err)
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Amount, &e.Fee, &e.BalanceAfter, &e.Status, &e.RelatedAccountID, &e.Reference, &e.Description, &e.CreatedAt); err != nil {
			return nil, mapErr("entries.scan", err)
		}
		list = append(list, &e)
	}
	return list, mapErr("entries.rows", rows.Err())
}
