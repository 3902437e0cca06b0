// Package dashboard serves the account overview: profile with balance and
// the audit activity recorded about an account.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

type AccountReader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type ActivityReader interface {
	ListActivity(ctx context.Context, subjectID uuid.UUID, limit int) ([]*models.Activity, error)
}

type Handler struct {
	accounts AccountReader
	activity ActivityReader
	log      *slog.Logger
}

func NewHandler(accounts AccountReader, activity ActivityReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accounts: accounts, activity: activity, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.CallerFromCtx(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	acc, err := h.accounts.GetAccount(r.Context(), caller.ID)
	if err != nil {
		h.log.Error("get account failed", "account_id", caller.ID, "error", err)
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           acc.ID,
		"email":        acc.Email,
		"display_name": acc.DisplayName,
		"role":         acc.Role,
		"balance":      acc.Balance,
		"created_at":   acc.CreatedAt,
	})
}

// GET /api/v1/account/activity
func (h *Handler) MyActivity(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.CallerFromCtx(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.listActivity(w, r, caller.ID)
}

// GET /api/v1/admin/accounts/{id}/activity
func (h *Handler) AccountActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid account ID", http.StatusBadRequest)
		return
	}
	h.listActivity(w, r, id)
}

func (h *Handler) listActivity(w http.ResponseWriter, r *http.Request, subject uuid.UUID) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = n
	}
	rows, err := h.activity.ListActivity(r.Context(), subject, limit)
	if err != nil {
		h.log.Error("list activity failed", "subject_id", subject, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []*models.Activity{}
	}
	writeJSON(w, http.StatusOK, rows)
}
