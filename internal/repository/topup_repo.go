package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

const topUpColumns = `id, account_id, amount, reference, status, resolved_by, entry_id, note, created_at, resolved_at`

type TopUpRepo struct {
	pool *pgxpool.Pool
}

func NewTopUpRepo(pool *pgxpool.Pool) *TopUpRepo {
	return &TopUpRepo{pool: pool}
}

func (r *TopUpRepo) InsertTopUpRequest(ctx context.Context, t *models.TopUpRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO topup_requests (id, account_id, amount, reference, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.AccountID, t.Amount, t.Reference, t.Status, t.CreatedAt)
	return mapErr("topups.insert", err)
}

func (r *TopUpRepo) LockTopUpRequest(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TopUpRequest, error) {
	return scanTopUp(tx.QueryRow(ctx, `SELECT `+topUpColumns+` FROM topup_requests WHERE id = $1 FOR UPDATE`, id))
}

// ResolveTopUpRequest writes the resolution only while the row is pending.
func (r *TopUpRepo) ResolveTopUpRequest(ctx context.Context, tx pgx.Tx, t *models.TopUpRequest) error {
	tag, err := tx.Exec(ctx, `
		UPDATE topup_requests
		SET status = $2, resolved_by = $3, entry_id = $4, note = $5, resolved_at = $6
		WHERE id = $1 AND status = 'pending'
	`, t.ID, t.Status, t.ResolvedBy, t.EntryID, t.Note, t.ResolvedAt)
	if err != nil {
		return mapErr("topups.resolve", err)
	}
	return expectOne(tag)
}

func (r *TopUpRepo) ListTopUpRequests(ctx context.Context, status string) ([]*models.TopUpRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+topUpColumns+` FROM topup_requests
		WHERE $1 = '' OR status = $1
		ORDER BY created_at
	`, status)
	if err != nil {
		return nil, mapErr("topups.list", err)
	}
	defer rows.Close()
	var list []*models.TopUpRequest
	for rows.Next() {
		t, err := scanTopUp(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, mapErr("topups.rows", rows.Err())
}

func scanTopUp(row pgx.Row) (*models.TopUpRequest, error) {
	var t models.TopUpRequest
	err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Reference, &t.Status, &t.ResolvedBy, &t.EntryID, &t.Note, &t.CreatedAt, &t.ResolvedAt)
	if err != nil {
		return nil, mapErr("topups.scan", err)
	}
	return &t, nil
}
