package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade offer statuses. Everything except pending is terminal.
const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusCancelled = "cancelled"
	OfferStatusExpired   = "expired"
)

// Offer item sides.
const (
	OfferSideSender   = "sender"
	OfferSideReceiver = "receiver"
)

// TradeOffer proposes exchanging listings and/or wallet credit. WalletAmount
// moves from sender to receiver on acceptance.
type TradeOffer struct {
	ID              uuid.UUID       `json:"id"`
	SenderID        uuid.UUID       `json:"sender_id"`
	ReceiverID      uuid.UUID       `json:"receiver_id"`
	SenderItemIDs   []uuid.UUID     `json:"sender_item_ids"`
	ReceiverItemIDs []uuid.UUID     `json:"receiver_item_ids"`
	WalletAmount    decimal.Decimal `json:"wallet_amount"`
	Message         string          `json:"message,omitempty"`
	Status          string          `json:"status"`
	ExpiresAt       time.Time       `json:"expires_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	RespondedAt     *time.Time      `json:"responded_at,omitempty"`
}

// IsTerminal reports whether the offer can no longer change.
func (o *TradeOffer) IsTerminal() bool {
	return o.Status != OfferStatusPending
}

// ItemIDs returns every listing referenced by the offer, sender side first.
func (o *TradeOffer) ItemIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(o.SenderItemIDs)+len(o.ReceiverItemIDs))
	out = append(out, o.SenderItemIDs...)
	return append(out, o.ReceiverItemIDs...)
}

// CompletedTrade links buyer, seller and amount of an accepted offer.
// The buyer is the offer sender (the side paying wallet credit).
type CompletedTrade struct {
	ID        uuid.UUID       `json:"id"`
	OfferID   uuid.UUID       `json:"offer_id"`
	BuyerID   uuid.UUID       `json:"buyer_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
