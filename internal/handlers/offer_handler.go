package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/offers"
)

// Offers is the trade-offer state machine as seen by HTTP.
type Offers interface {
	Create(ctx context.Context, caller authz.Caller, req offers.CreateRequest) (*models.TradeOffer, error)
	Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error)
	ListForUser(ctx context.Context, caller authz.Caller, userID uuid.UUID) ([]*models.TradeOffer, error)
	Accept(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error)
	Reject(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error)
	Cancel(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.TradeOffer, error)
}

// OfferHandler serves /offers endpoints.
type OfferHandler struct {
	Offers Offers
	Logger *slog.Logger
}

type createOfferRequest struct {
	ReceiverID      string          `json:"receiver_id" validate:"required,uuid"`
	SenderItemIDs   []string        `json:"sender_item_ids" validate:"max=20,dive,uuid"`
	ReceiverItemIDs []string        `json:"receiver_item_ids" validate:"max=20,dive,uuid"`
	WalletAmount    decimal.Decimal `json:"wallet_amount"`
	Message         string          `json:"message" validate:"max=1000"`
}

// Create handles POST /offers.
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req createOfferRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.Offers.Create(r.Context(), caller, offers.CreateRequest{
		ReceiverID:      uuid.MustParse(req.ReceiverID),
		SenderItemIDs:   parseIDs(req.SenderItemIDs),
		ReceiverItemIDs: parseIDs(req.ReceiverItemIDs),
		WalletAmount:    req.WalletAmount,
		Message:         req.Message,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// List handles GET /offers: offers the caller sent or received.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	list, err := h.Offers.ListForUser(r.Context(), caller, caller.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.TradeOffer{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /offers/{id}.
func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Offers.Get)
}

// Accept handles POST /offers/{id}/accept.
func (h *OfferHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Offers.Accept)
}

// Reject handles POST /offers/{id}/reject.
func (h *OfferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Offers.Reject)
}

// Cancel handles POST /offers/{id}/cancel.
func (h *OfferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Offers.Cancel)
}

func (h *OfferHandler) act(w http.ResponseWriter, r *http.Request, fn func(context.Context, authz.Caller, uuid.UUID) (*models.TradeOffer, error)) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	o, err := fn(r.Context(), caller, id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
