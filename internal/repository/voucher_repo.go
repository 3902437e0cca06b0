package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

const voucherColumns = `id, code, amount, status, used_by, used_at, expires_at, created_by, batch_id, created_at`

type VoucherRepo struct {
	pool *pgxpool.Pool
}

func NewVoucherRepo(pool *pgxpool.Pool) *VoucherRepo {
	return &VoucherRepo{pool: pool}
}

func (r *VoucherRepo) InsertVoucherBatch(ctx context.Context, tx pgx.Tx, b *models.VoucherBatch) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO voucher_batches (id, amount, quantity, vendor, created_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.Amount, b.Quantity, b.Vendor, b.CreatedBy, b.ExpiresAt, b.CreatedAt)
	return mapErr("vouchers.insert_batch", err)
}

// InsertVoucher returns storage.ErrConflict when the code is already taken.
// Callers run it under a savepoint so the conflict does not abort the batch.
func (r *VoucherRepo) InsertVoucher(ctx context.Context, tx pgx.Tx, v *models.Voucher) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO vouchers (id, code, amount, status, expires_at, created_by, batch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.Code, v.Amount, v.Status, v.ExpiresAt, v.CreatedBy, v.BatchID, v.CreatedAt)
	return mapErr("vouchers.insert", err)
}

func (r *VoucherRepo) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code)
	return scanVoucher(row)
}

func (r *VoucherRepo) LockVoucherByCode(ctx context.Context, tx pgx.Tx, code string) (*models.Voucher, error) {
	row := tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1 FOR UPDATE`, code)
	return scanVoucher(row)
}

// MarkVoucherUsed flips an unused voucher to used. A voucher that is no
// longer unused returns storage.ErrStaleRow.
func (r *VoucherRepo) MarkVoucherUsed(ctx context.Context, tx pgx.Tx, id, accountID uuid.UUID, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE vouchers SET status = 'used', used_by = $2, used_at = $3
		WHERE id = $1 AND status = 'unused'
	`, id, accountID, at)
	if err != nil {
		return mapErr("vouchers.mark_used", err)
	}
	return expectOne(tag)
}

func (r *VoucherRepo) SetVoucherStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) error {
	tag, err := tx.Exec(ctx, `UPDATE vouchers SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return mapErr("vouchers.set_status", err)
	}
	return expectOne(tag)
}

func (r *VoucherRepo) ListVouchersByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Voucher, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE batch_id = $1 ORDER BY code`, batchID)
	if err != nil {
		return nil, mapErr("vouchers.list_batch", err)
	}
	defer rows.Close()
	var list []*models.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, mapErr("vouchers.rows", rows.Err())
}

func scanVoucher(row pgx.Row) (*models.Voucher, error) {
	var v models.Voucher
	err := row.Scan(&v.ID, &v.Code, &v.Amount, &v.Status, &v.UsedBy, &v.UsedAt, &v.ExpiresAt, &v.CreatedBy, &v.BatchID, &v.CreatedAt)
	if err != nil {
		return nil, mapErr("vouchers.scan", err)
	}
	return &v, nil
}
