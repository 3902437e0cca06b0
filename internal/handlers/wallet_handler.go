package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

// Wallet is the read side of the ledger.
type Wallet interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

// Redeemer converts a voucher code into wallet credit.
type Redeemer interface {
	Redeem(ctx context.Context, accountID uuid.UUID, code string) (*models.LedgerEntry, error)
}

// TopUpRequester files top-up requests for admin review.
type TopUpRequester interface {
	RequestTopUp(ctx context.Context, caller authz.Caller, amount decimal.Decimal, reference string) (*models.TopUpRequest, error)
}

// WalletHandler serves the caller's own wallet.
type WalletHandler struct {
	Wallet   Wallet
	Vouchers Redeemer
	TopUps   TopUpRequester
	Logger   *slog.Logger
}

type balanceResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// GetBalance handles GET /wallet.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	bal, err := h.Wallet.GetBalance(r.Context(), caller.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: caller.ID, Balance: bal})
}

// History handles GET /wallet/entries?limit=N.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	entries, err := h.Wallet.History(r.Context(), caller.ID, limitParam(r, 50, 500))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type redeemRequest struct {
	Code string `json:"code" validate:"required"`
}

// Redeem handles POST /wallet/vouchers/redeem.
func (h *WalletHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := h.Vouchers.Redeem(r.Context(), caller.ID, req.Code)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type topUpRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" validate:"max=200"`
}

// RequestTopUp handles POST /wallet/topups.
func (h *WalletHandler) RequestTopUp(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req topUpRequest
	if !decode(w, r, &req) {
		return
	}
	tr, err := h.TopUps.RequestTopUp(r.Context(), caller, req.Amount, req.Reference)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}
