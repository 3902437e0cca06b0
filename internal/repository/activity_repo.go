package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) InsertActivity(ctx context.Context, a *models.Activity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (id, actor_id, action, subject_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.ActorID, a.Action, a.SubjectID, []byte(a.Details), a.CreatedAt)
	return mapErr("activity.insert", err)
}

// ListActivity returns the newest entries about subjectID.
func (r *ActivityRepo) ListActivity(ctx context.Context, subjectID uuid.UUID, limit int) ([]*models.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, action, subject_id, details, created_at
		FROM activity_log WHERE subject_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, subjectID, limit)
	if err != nil {
		return nil, mapErr("activity.list", err)
	}
	defer rows.Close()
	var list []*models.Activity
	for rows.Next() {
		var a models.Activity
		var details []byte
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, &a.SubjectID, &details, &a.CreatedAt); err != nil {
			return nil, mapErr("activity.scan", err)
		}
		a.Details = details
		list = append(list, &a)
	}
	return list, mapErr("activity.rows", rows.Err())
}
