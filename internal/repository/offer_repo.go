package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

const offerColumns = `id, sender_id, receiver_id, wallet_amount, message, status, expires_at, responded_at, created_at, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type OfferRepo struct {
	pool *pgxpool.Pool
}

func NewOfferRepo(pool *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{pool: pool}
}

// InsertOffer writes the offer and its item rows inside tx.
func (r *OfferRepo) InsertOffer(ctx context.Context, tx pgx.Tx, o *models.TradeOffer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO trade_offers (id, sender_id, receiver_id, wallet_amount, message, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.SenderID, o.ReceiverID, o.WalletAmount, o.Message, o.Status, o.ExpiresAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return mapErr("offers.insert", err)
	}
	batch := &pgx.Batch{}
	for i, id := range o.SenderItemIDs {
		batch.Queue(`INSERT INTO trade_offer_items (offer_id, listing_id, side, position) VALUES ($1, $2, $3, $4)`, o.ID, id, models.OfferSideSender, i)
	}
	for i, id := range o.ReceiverItemIDs {
		batch.Queue(`INSERT INTO trade_offer_items (offer_id, listing_id, side, position) VALUES ($1, $2, $3, $4)`, o.ID, id, models.OfferSideReceiver, i)
	}
	if batch.Len() == 0 {
		return nil
	}
	return mapErr("offers.insert_items", tx.SendBatch(ctx, batch).Close())
}

func (r *OfferRepo) GetOffer(ctx context.Context, id uuid.UUID) (*models.TradeOffer, error) {
	return loadOffer(ctx, r.pool, `SELECT `+offerColumns+` FROM trade_offers WHERE id = $1`, id)
}

// LockOffer reads the offer FOR UPDATE inside tx.
func (r *OfferRepo) LockOffer(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TradeOffer, error) {
	return loadOffer(ctx, tx, `SELECT `+offerColumns+` FROM trade_offers WHERE id = $1 FOR UPDATE`, id)
}

// TransitionOffer moves the offer from one status to another and returns
// storage.ErrStaleRow if it was no longer in from.
func (r *OfferRepo) TransitionOffer(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE trade_offers SET status = $3, responded_at = $4, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, at)
	if err != nil {
		return mapErr("offers.transition", err)
	}
	return expectOne(tag)
}

func (r *OfferRepo) ListOffersForUser(ctx context.Context, userID uuid.UUID) ([]*models.TradeOffer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+` FROM trade_offers
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, mapErr("offers.list", err)
	}
	list, err := scanOffers(rows)
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, r.pool, list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListExpiredPendingOffers returns ids of pending offers past expiry at now.
func (r *OfferRepo) ListExpiredPendingOffers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM trade_offers
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, mapErr("offers.list_expired", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, mapErr("offers.list_expired", err)
	}
	return ids, nil
}

// InsertCompletedTrade records an accepted offer. A second trade for the
// same offer returns storage.ErrConflict.
func (r *OfferRepo) InsertCompletedTrade(ctx context.Context, tx pgx.Tx, t *models.CompletedTrade) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO completed_trades (id, offer_id, buyer_id, seller_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.OfferID, t.BuyerID, t.SellerID, t.Amount, t.CreatedAt)
	return mapErr("trades.insert", err)
}

func loadOffer(ctx context.Context, q querier, sql string, id uuid.UUID) (*models.TradeOffer, error) {
	var o models.TradeOffer
	err := q.QueryRow(ctx, sql, id).Scan(&o.ID, &o.SenderID, &o.ReceiverID, &o.WalletAmount, &o.Message, &o.Status, &o.ExpiresAt, &o.RespondedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, mapErr("offers.get", err)
	}
	if err := attachItems(ctx, q, []*models.TradeOffer{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOffers(rows pgx.Rows) ([]*models.TradeOffer, error) {
	defer rows.Close()
	var list []*models.TradeOffer
	for rows.Next() {
		var o models.TradeOffer
		if err := rows.Scan(&o.ID, &o.SenderID, &o.ReceiverID, &o.WalletAmount, &o.Message, &o.Status, &o.ExpiresAt, &o.RespondedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, mapErr("offers.scan", err)
		}
		list = append(list, &o)
	}
	return list, mapErr("offers.rows", rows.Err())
}

// attachItems fills SenderItemIDs and ReceiverItemIDs for every offer.
func attachItems(ctx context.Context, q querier, offers []*models.TradeOffer) error {
	if len(offers) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.TradeOffer, len(offers))
	ids := make([]uuid.UUID, 0, len(offers))
	for _, o := range offers {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	rows, err := q.Query(ctx, `
		SELECT offer_id, listing_id, side FROM trade_offer_items
		WHERE offer_id = ANY($1)
		ORDER BY offer_id, side, position
	`, ids)
	if err != nil {
		return mapErr("offers.items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var offerID, listingID uuid.UUID
		var side string
		if err := rows.Scan(&offerID, &listingID, &side); err != nil {
			return mapErr("offers.items_scan", err)
		}
		o := byID[offerID]
		if side == models.OfferSideSender {
			o.SenderItemIDs = append(o.SenderItemIDs, listingID)
		} else {
			o.ReceiverItemIDs = append(o.ReceiverItemIDs, listingID)
		}
	}
	return mapErr("offers.items_rows", rows.Err())
}
