package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingRepo is the engine's narrow view of the catalog: owner and status
// only.
type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

// ListingOwnerAndStatus reads and locks a listing row inside tx.
func (r *ListingRepo) ListingOwnerAndStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID) (uuid.UUID, string, error) {
	var owner uuid.UUID
	var status string
	err := tx.QueryRow(ctx, `SELECT owner_id, status FROM listings WHERE id = $1 FOR UPDATE`, id).Scan(&owner, &status)
	if err != nil {
		return uuid.Nil, "", mapErr("listings.get", err)
	}
	return owner, status, nil
}

func (r *ListingRepo) SetListingStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	tag, err := tx.Exec(ctx, `UPDATE listings SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return mapErr("listings.set_status", err)
	}
	return expectOne(tag)
}
