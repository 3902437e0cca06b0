// Package offers runs the trade-offer state machine:
// pending -> accepted | rejected | cancelled | expired.
package offers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/activity"
	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
	"github.com/UncleVee2025/barter-trade-sub003/internal/ledger"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/money"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

// DefaultTTL is how long an offer stays open.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrOfferNotFound      = errors.New("offer not found")
	ErrOfferNotPending    = errors.New("offer is no longer pending")
	ErrOfferExpired       = errors.New("offer has expired")
	ErrInvalidOffer       = errors.New("invalid offer")
	ErrListingUnavailable = errors.New("listing is not available")
	ErrReceiverNotFound   = errors.New("receiver not found")
)

// Store is the offer repository.
type Store interface {
	InsertOffer(ctx context.Context, tx pgx.Tx, o *models.TradeOffer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*models.TradeOffer, error)
	LockOffer(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TradeOffer, error)
	// TransitionOffer returns storage.ErrStaleRow when the offer is no
	// longer in status from.
	TransitionOffer(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string, at time.Time) error
	ListOffersForUser(ctx context.Context, userID uuid.UUID) ([]*models.TradeOffer, error)
	ListExpiredPendingOffers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	InsertCompletedTrade(ctx context.Context, tx pgx.Tx, t *models.CompletedTrade) error
}

// Catalog is the listing collaborator. The engine reads owner and status and
// only ever writes status.
type Catalog interface {
	ListingOwnerAndStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID) (owner uuid.UUID, status string, err error)
	SetListingStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
}

// Accounts resolves offer receivers.
type Accounts interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Ledger is the subset of *ledger.Service offers use.
type Ledger interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	TransferTx(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID, amount decimal.Decimal, reference string) (*ledger.Transfer, error)
	Announce(ctx context.Context, entries ...*models.LedgerEntry)
}

// CreateRequest is the sender's proposal.
type CreateRequest struct {
	ReceiverID      uuid.UUID
	SenderItemIDs   []uuid.UUID
	ReceiverItemIDs []uuid.UUID
	WalletAmount    decimal.Decimal
	Message         string
}

type Service struct {
	db       ledger.TxBeginner
	offers   Store
	catalog  Catalog
	accounts Accounts
	ledger   Ledger
	emitter  events.Emitter
	activity *activity.Log
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithActivityLog(l *activity.Log) Option {
	return func(s *Service) { s.activity = l }
}

func NewService(db ledger.TxBeginner, offers Store, catalog Catalog, accounts Accounts, l Ledger, emitter events.Emitter, logger *slog.Logger, opts ...Option) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:       db,
		offers:   offers,
		catalog:  catalog,
		accounts: accounts,
		ledger:   l,
		emitter:  emitter,
		logger:   logger,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a pending offer from the caller to req.ReceiverID. The wallet
// balance check here is advisory; Accept re-checks it.
func (s *Service) Create(ctx context.Context, caller authz.Caller, req CreateRequest) (*models.TradeOffer, error) {
	if caller.ID == uuid.Nil {
		return nil, authz.ErrForbidden
	}
	if err := validateCreate(caller.ID, req); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetAccount(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, storage.Wrap("offers.receiver", err)
	}
	if req.WalletAmount.IsPositive() {
		bal, err := s.ledger.GetBalance(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		if bal.LessThan(req.WalletAmount) {
			return nil, &ledger.InsufficientFundsError{AccountID: caller.ID, Available: bal, Requested: req.WalletAmount}
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("offers.begin", err)
	}
	defer tx.Rollback(ctx)

	at := s.now().UTC()
	o := &models.TradeOffer{
		ID:              uuid.New(),
		SenderID:        caller.ID,
		ReceiverID:      req.ReceiverID,
		SenderItemIDs:   req.SenderItemIDs,
		ReceiverItemIDs: req.ReceiverItemIDs,
		WalletAmount:    req.WalletAmount,
		Message:         req.Message,
		Status:          models.OfferStatusPending,
		ExpiresAt:       at.Add(s.ttl),
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := s.checkItems(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := s.offers.InsertOffer(ctx, tx, o); err != nil {
		return nil, storage.Wrap("offers.insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("offers.commit", err)
	}

	s.emitter.Emit(ctx, events.OfferCreated{
		OfferID:      o.ID,
		SenderID:     o.SenderID,
		ReceiverID:   o.ReceiverID,
		WalletAmount: o.WalletAmount,
		ItemCount:    len(o.SenderItemIDs) + len(o.ReceiverItemIDs),
	})
	return o, nil
}

func validateCreate(senderID uuid.UUID, req CreateRequest) error {
	if req.ReceiverID == uuid.Nil || req.ReceiverID == senderID {
		return fmt.Errorf("%w: receiver must be another user", ErrInvalidOffer)
	}
	if req.WalletAmount.IsNegative() {
		return fmt.Errorf("%w: wallet amount must not be negative", money.ErrInvalidAmount)
	}
	if req.WalletAmount.IsPositive() {
		if err := money.ValidatePositive(req.WalletAmount); err != nil {
			return err
		}
	}
	if len(req.SenderItemIDs) == 0 && !req.WalletAmount.IsPositive() {
		return fmt.Errorf("%w: offer must include items or wallet credit", ErrInvalidOffer)
	}
	seen := make(map[uuid.UUID]bool)
	for _, id := range append(append([]uuid.UUID(nil), req.SenderItemIDs...), req.ReceiverItemIDs...) {
		if seen[id] {
			return fmt.Errorf("%w: listing %s appears more than once", ErrInvalidOffer, id)
		}
		seen[id] = true
	}
	return nil
}

// checkItems verifies every listing of o is owned by the side offering it
// and active. Rows are locked in the same order Accept locks them.
func (s *Service) checkItems(ctx context.Context, tx pgx.Tx, o *models.TradeOffer) error {
	owners, ids := listingLockOrder(o)
	for _, id := range ids {
		got, status, err := s.catalog.ListingOwnerAndStatus(ctx, tx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s does not exist", ErrListingUnavailable, id)
		}
		if err != nil {
			return storage.Wrap("offers.listing", err)
		}
		if got != owners[id] {
			return fmt.Errorf("%w: listing %s is not owned by %s", ErrInvalidOffer, id, owners[id])
		}
		if status != models.ListingStatusActive {
			return fmt.Errorf("%w: %s is %s", ErrListingUnavailable, id, status)
		}
	}
	return nil
}

// listingLockOrder maps each listing of o to the side offering it and
// returns the ids sorted for locking.
func listingLockOrder(o *models.TradeOffer) (map[uuid.UUID]uuid.UUID, []uuid.UUID) {
	owners := make(map[uuid.UUID]uuid.UUID, len(o.SenderItemIDs)+len(o.ReceiverItemIDs))
	for _, id := range o.SenderItemIDs {
		owners[id] = o.SenderID
	}
	for _, id := range o.ReceiverItemIDs {
		owners[id] = o.ReceiverID
	}
	ids := o.ItemIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return owners, ids
}

// Get returns an offer to one of its participants. A pending offer past its
// expiry is flipped to expired and reported as ErrOfferExpired.
func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error) {
	o, err := s.offers.GetOffer(ctx, id)
	if err != nil {
		return nil, s.offerErr(err)
	}
	if caller.ID != o.SenderID && caller.ID != o.ReceiverID && !caller.IsAdmin() {
		return nil, authz.ErrForbidden
	}
	if o.Status == models.OfferStatusPending && s.isExpired(o) {
		if _, err := s.expireOne(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrOfferExpired
	}
	return o, nil
}

// ListForUser returns the offers a user sent or received, newest first.
// Stale pending offers are expired on the way out and listed as expired.
func (s *Service) ListForUser(ctx context.Context, caller authz.Caller, userID uuid.UUID) ([]*models.TradeOffer, error) {
	if caller.ID != userID && !caller.IsAdmin() {
		return nil, authz.ErrForbidden
	}
	list, err := s.offers.ListOffersForUser(ctx, userID)
	if err != nil {
		return nil, storage.Wrap("offers.list", err)
	}
	for i, o := range list {
		if o.Status != models.OfferStatusPending || !s.isExpired(o) {
			continue
		}
		expired, err := s.expireOne(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if expired == nil {
			// settled concurrently; reload the row as committed
			if expired, err = s.offers.GetOffer(ctx, o.ID); err != nil {
				return nil, s.offerErr(err)
			}
		}
		list[i] = expired
	}
	return list, nil
}

// Accept settles an offer as the receiver: wallet transfer, listings sold,
// offer accepted and trade recorded, all in one transaction.
func (s *Service) Accept(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("offers.begin", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.lockForTransition(ctx, tx, id, caller.ID, receiverOf)
	if err != nil {
		return nil, err
	}

	var transfer *ledger.Transfer
	if o.WalletAmount.IsPositive() {
		transfer, err = s.ledger.TransferTx(ctx, tx, o.SenderID, o.ReceiverID, o.WalletAmount, "offer:"+o.ID.String())
		if err != nil {
			return nil, err
		}
	}

	if err := s.sellItems(ctx, tx, o); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.offers.TransitionOffer(ctx, tx, o.ID, models.OfferStatusPending, models.OfferStatusAccepted, at); err != nil {
		return nil, s.transitionErr(err)
	}
	trade := &models.CompletedTrade{
		ID:        uuid.New(),
		OfferID:   o.ID,
		BuyerID:   o.SenderID,
		SellerID:  o.ReceiverID,
		Amount:    o.WalletAmount,
		CreatedAt: at,
	}
	if err := s.offers.InsertCompletedTrade(ctx, tx, trade); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrOfferNotPending
		}
		return nil, storage.Wrap("offers.insert_trade", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("offers.commit", err)
	}

	o.Status = models.OfferStatusAccepted
	o.UpdatedAt = at
	o.RespondedAt = &at

	s.emitter.Emit(ctx, events.OfferAccepted{
		OfferID:      o.ID,
		SenderID:     o.SenderID,
		ReceiverID:   o.ReceiverID,
		WalletAmount: o.WalletAmount,
		ItemIDs:      o.ItemIDs(),
	})
	if transfer != nil {
		s.ledger.Announce(ctx, transfer.Out, transfer.In)
	}
	s.activity.Record(ctx, caller.ID, o.ID, activity.TradeCompleted{
		OfferID:  o.ID,
		TradeID:  trade.ID,
		BuyerID:  trade.BuyerID,
		SellerID: trade.SellerID,
		Amount:   trade.Amount,
	})
	s.logger.Info("offer accepted", "offer_id", o.ID, "wallet_amount", money.Format(o.WalletAmount))
	return o, nil
}

// sellItems marks every listing of the offer sold. Listings are locked in id
// order and must still be active and owned by the side that offered them.
func (s *Service) sellItems(ctx context.Context, tx pgx.Tx, o *models.TradeOffer) error {
	owners, ids := listingLockOrder(o)
	for _, id := range ids {
		owner, status, err := s.catalog.ListingOwnerAndStatus(ctx, tx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s no longer exists", ErrListingUnavailable, id)
		}
		if err != nil {
			return storage.Wrap("offers.listing", err)
		}
		if status != models.ListingStatusActive || owner != owners[id] {
			return fmt.Errorf("%w: %s", ErrListingUnavailable, id)
		}
		if err := s.catalog.SetListingStatus(ctx, tx, id, models.ListingStatusSold); err != nil {
			return storage.Wrap("offers.sell_listing", err)
		}
	}
	return nil
}

// Reject declines an offer as the receiver.
func (s *Service) Reject(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error) {
	o, err := s.close(ctx, caller, id, receiverOf, models.OfferStatusRejected)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, events.OfferRejected{OfferID: o.ID, SenderID: o.SenderID, ReceiverID: o.ReceiverID})
	return o, nil
}

// Cancel withdraws an offer as the sender.
func (s *Service) Cancel(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error) {
	o, err := s.close(ctx, caller, id, senderOf, models.OfferStatusCancelled)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, events.OfferCancelled{OfferID: o.ID, SenderID: o.SenderID, ReceiverID: o.ReceiverID})
	return o, nil
}

// close moves a pending offer to a terminal status without moving funds or
// listings.
func (s *Service) close(ctx context.Context, caller authz.Caller, id uuid.UUID, actor func(*models.TradeOffer) uuid.UUID, to string) (*models.TradeOffer, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("offers.begin", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.lockForTransition(ctx, tx, id, caller.ID, actor)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if err := s.offers.TransitionOffer(ctx, tx, o.ID, models.OfferStatusPending, to, at); err != nil {
		return nil, s.transitionErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("offers.commit", err)
	}
	o.Status = to
	o.UpdatedAt = at
	o.RespondedAt = &at
	return o, nil
}

func receiverOf(o *models.TradeOffer) uuid.UUID { return o.ReceiverID }
func senderOf(o *models.TradeOffer) uuid.UUID   { return o.SenderID }

// lockForTransition locks the offer and runs the checks shared by every
// transition, in order: caller authorization, pending status, expiry. An
// expired pending offer is flipped to expired and committed on tx before
// ErrOfferExpired is returned.
func (s *Service) lockForTransition(ctx context.Context, tx pgx.Tx, id, callerID uuid.UUID, actor func(*models.TradeOffer) uuid.UUID) (*models.TradeOffer, error) {
	o, err := s.offers.LockOffer(ctx, tx, id)
	if err != nil {
		return nil, s.offerErr(err)
	}
	if callerID == uuid.Nil || callerID != actor(o) {
		return nil, authz.ErrForbidden
	}
	if o.Status != models.OfferStatusPending {
		return nil, ErrOfferNotPending
	}
	if s.isExpired(o) {
		if err := s.markExpired(ctx, tx, o); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, storage.Wrap("offers.commit", err)
		}
		s.emitExpired(ctx, o)
		return nil, ErrOfferExpired
	}
	return o, nil
}

// ExpireStale flips every pending offer whose expiry has passed at now, one
// transaction per offer. It returns how many offers it expired.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.offers.ListExpiredPendingOffers(ctx, now, 500)
	if err != nil {
		return 0, storage.Wrap("offers.list_expired", err)
	}
	n := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		o, err := s.expireOne(ctx, id)
		if err != nil {
			return n, err
		}
		if o != nil {
			n++
		}
	}
	if n > 0 {
		s.logger.Info("expired stale offers", "count", n)
	}
	return n, nil
}

// expireOne expires a single offer in its own transaction. It returns nil if
// the offer was no longer pending or not yet expired.
func (s *Service) expireOne(ctx context.Context, id uuid.UUID) (*models.TradeOffer, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("offers.begin", err)
	}
	defer tx.Rollback(ctx)

	o, err := s.offers.LockOffer(ctx, tx, id)
	if err != nil {
		return nil, s.offerErr(err)
	}
	if o.Status != models.OfferStatusPending || !s.isExpired(o) {
		return nil, nil
	}
	if err := s.markExpired(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Wrap("offers.commit", err)
	}
	s.emitExpired(ctx, o)
	return o, nil
}

func (s *Service) markExpired(ctx context.Context, tx pgx.Tx, o *models.TradeOffer) error {
	at := s.now().UTC()
	if err := s.offers.TransitionOffer(ctx, tx, o.ID, models.OfferStatusPending, models.OfferStatusExpired, at); err != nil {
		return s.transitionErr(err)
	}
	o.Status = models.OfferStatusExpired
	o.UpdatedAt = at
	o.RespondedAt = &at
	return nil
}

func (s *Service) emitExpired(ctx context.Context, o *models.TradeOffer) {
	s.emitter.Emit(ctx, events.OfferExpired{OfferID: o.ID, SenderID: o.SenderID, ReceiverID: o.ReceiverID})
}

func (s *Service) isExpired(o *models.TradeOffer) bool {
	return !s.now().Before(o.ExpiresAt)
}

func (s *Service) offerErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrOfferNotFound
	}
	return storage.Wrap("offers.load", err)
}

func (s *Service) transitionErr(err error) error {
	if errors.Is(err, storage.ErrStaleRow) {
		return ErrOfferNotPending
	}
	return storage.Wrap("offers.transition", err)
}
