package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/UncleVee2025/barter-trade-sub003/internal/admin"
	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/vouchers"
)

// Admin is the privileged balance path.
type Admin interface {
	Adjust(ctx context.Context, caller authz.Caller, req admin.AdjustRequest) (*models.LedgerEntry, error)
	ListTopUps(ctx context.Context, caller authz.Caller, status string) ([]*models.TopUpRequest, error)
	ApproveTopUp(ctx context.Context, caller authz.Caller, id uuid.UUID, note string) (*models.TopUpRequest, error)
	RejectTopUp(ctx context.Context, caller authz.Caller, id uuid.UUID, note string) (*models.TopUpRequest, error)
}

// VoucherAdmin issues and manages voucher batches.
type VoucherAdmin interface {
	IssueBatch(ctx context.Context, caller authz.Caller, req vouchers.IssueRequest) (*models.VoucherBatch, []*models.Voucher, error)
	ListBatch(ctx context.Context, caller authz.Caller, batchID uuid.UUID) ([]*models.Voucher, error)
	Lookup(ctx context.Context, caller authz.Caller, code string) (*models.Voucher, error)
	Disable(ctx context.Context, caller authz.Caller, code string) (*models.Voucher, error)
}

// AdminHandler serves /admin endpoints. Routes are mounted behind
// middleware.AdminOnly; the services check the role again.
type AdminHandler struct {
	Admin    Admin
	Vouchers VoucherAdmin
	Wallet   Wallet
	Logger   *slog.Logger
}

type adjustRequest struct {
	AccountID   string          `json:"account_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind" validate:"omitempty,oneof=topup refund adjustment deduction"`
	Reference   string          `json:"reference" validate:"max=200"`
	Description string          `json:"description" validate:"max=500"`
}

// Adjust handles POST /admin/adjustments.
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := h.Admin.Adjust(r.Context(), caller, admin.AdjustRequest{
		AccountID:   uuid.MustParse(req.AccountID),
		Amount:      req.Amount,
		Kind:        models.EntryKind(req.Kind),
		Reference:   req.Reference,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type accountWalletResponse struct {
	AccountID uuid.UUID             `json:"account_id"`
	Balance   decimal.Decimal       `json:"balance"`
	Entries   []*models.LedgerEntry `json:"entries"`
}

// AccountWallet handles GET /admin/accounts/{id}/wallet.
func (h *AdminHandler) AccountWallet(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerFrom(w, r); !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	bal, err := h.Wallet.GetBalance(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	entries, err := h.Wallet.History(r.Context(), id, limitParam(r, 50, 500))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accountWalletResponse{AccountID: id, Balance: bal, Entries: entries})
}

// ListTopUps handles GET /admin/topups?status=pending.
func (h *AdminHandler) ListTopUps(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	list, err := h.Admin.ListTopUps(r.Context(), caller, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.TopUpRequest{}
	}
	writeJSON(w, http.StatusOK, list)
}

type resolveRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// ApproveTopUp handles POST /admin/topups/{id}/approve.
func (h *AdminHandler) ApproveTopUp(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Admin.ApproveTopUp)
}

// RejectTopUp handles POST /admin/topups/{id}/reject.
func (h *AdminHandler) RejectTopUp(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Admin.RejectTopUp)
}

func (h *AdminHandler) resolve(w http.ResponseWriter, r *http.Request, fn func(context.Context, authz.Caller, uuid.UUID, string) (*models.TopUpRequest, error)) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	tr, err := fn(r.Context(), caller, id, req.Note)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

type issueBatchRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Quantity   int             `json:"quantity"`
	Vendor     string          `json:"vendor" validate:"max=100"`
	ExpiryDays int             `json:"expiry_days"`
}

type issueBatchResponse struct {
	Batch    *models.VoucherBatch `json:"batch"`
	Vouchers []*models.Voucher    `json:"vouchers"`
}

// IssueBatch handles POST /admin/vouchers/batches.
func (h *AdminHandler) IssueBatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req issueBatchRequest
	if !decode(w, r, &req) {
		return
	}
	batch, list, err := h.Vouchers.IssueBatch(r.Context(), caller, vouchers.IssueRequest{
		Amount:     req.Amount,
		Quantity:   req.Quantity,
		Vendor:     req.Vendor,
		ExpiryDays: req.ExpiryDays,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, issueBatchResponse{Batch: batch, Vouchers: list})
}

// ListBatch handles GET /admin/vouchers/batches/{id}.
func (h *AdminHandler) ListBatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	list, err := h.Vouchers.ListBatch(r.Context(), caller, id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Voucher{}
	}
	writeJSON(w, http.StatusOK, list)
}

// LookupVoucher handles GET /admin/vouchers/{code}.
func (h *AdminHandler) LookupVoucher(w http.ResponseWriter, r *http.Request) {
	h.voucher(w, r, h.Vouchers.Lookup)
}

// DisableVoucher handles POST /admin/vouchers/{code}/disable.
func (h *AdminHandler) DisableVoucher(w http.ResponseWriter, r *http.Request) {
	h.voucher(w, r, h.Vouchers.Disable)
}

func (h *AdminHandler) voucher(w http.ResponseWriter, r *http.Request, fn func(context.Context, authz.Caller, string) (*models.Voucher, error)) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	v, err := fn(r.Context(), caller, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
