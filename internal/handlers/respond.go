package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/UncleVee2025/barter-trade-sub003/internal/admin"
	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/ledger"
	"github.com/UncleVee2025/barter-trade-sub003/internal/offers"
	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
	"github.com/UncleVee2025/barter-trade-sub003/internal/vouchers"
)

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// failure maps a domain error to its HTTP status and a stable code.
type failure struct {
	status int
	code   string
}

var failures = []struct {
	err error
	failure
}{
	{ledger.ErrInsufficientFunds, failure{http.StatusPaymentRequired, "insufficient_funds"}},
	{authz.ErrForbidden, failure{http.StatusForbidden, "forbidden"}},

	{ledger.ErrAccountNotFound, failure{http.StatusNotFound, "account_not_found"}},
	{offers.ErrOfferNotFound, failure{http.StatusNotFound, "offer_not_found"}},
	{offers.ErrReceiverNotFound, failure{http.StatusNotFound, "receiver_not_found"}},
	{vouchers.ErrVoucherNotFound, failure{http.StatusNotFound, "voucher_not_found"}},
	{admin.ErrRequestNotFound, failure{http.StatusNotFound, "request_not_found"}},

	{offers.ErrOfferNotPending, failure{http.StatusConflict, "offer_not_pending"}},
	{offers.ErrListingUnavailable, failure{http.StatusConflict, "listing_unavailable"}},
	{vouchers.ErrVoucherAlreadyUsed, failure{http.StatusConflict, "voucher_already_used"}},
	{vouchers.ErrVoucherDisabled, failure{http.StatusConflict, "voucher_disabled"}},
	{vouchers.ErrCannotDisableUsedVoucher, failure{http.StatusConflict, "voucher_already_used"}},
	{admin.ErrRequestNotPending, failure{http.StatusConflict, "request_not_pending"}},

	{offers.ErrOfferExpired, failure{http.StatusGone, "offer_expired"}},
	{vouchers.ErrVoucherExpired, failure{http.StatusGone, "voucher_expired"}},

	{ledger.ErrInvalidAmount, failure{http.StatusUnprocessableEntity, "invalid_amount"}},
	{ledger.ErrSameAccount, failure{http.StatusUnprocessableEntity, "same_account"}},
	{ledger.ErrInvalidKind, failure{http.StatusUnprocessableEntity, "invalid_kind"}},
	{offers.ErrInvalidOffer, failure{http.StatusUnprocessableEntity, "invalid_offer"}},
	{vouchers.ErrInvalidBatch, failure{http.StatusUnprocessableEntity, "invalid_batch"}},
	{vouchers.ErrInvalidDenomination, failure{http.StatusUnprocessableEntity, "invalid_denomination"}},
	{admin.ErrDescriptionRequired, failure{http.StatusUnprocessableEntity, "description_required"}},

	{vouchers.ErrTooManyAttempts, failure{http.StatusTooManyRequests, "too_many_attempts"}},

	{vouchers.ErrCodeGenerationExhausted, failure{http.StatusServiceUnavailable, "code_generation_exhausted"}},
	{storage.ErrStorageFailure, failure{http.StatusServiceUnavailable, "storage_unavailable"}},
}

func classify(err error) failure {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			return f.failure
		}
	}
	return failure{http.StatusInternalServerError, "internal"}
}

// writeError renders err. Unexpected errors are logged and hidden.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	f := classify(err)
	msg := err.Error()
	if f.status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("request failed", "status", f.status, "error", err)
		msg = http.StatusText(f.status)
	}
	writeJSON(w, f.status, errorResponse{Error: msg, Code: f.code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst and runs struct validation.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "invalid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		badRequest(w, err.Error())
		return false
	}
	return true
}

// callerFrom returns the authenticated caller or writes 401.
func callerFrom(w http.ResponseWriter, r *http.Request) (authz.Caller, bool) {
	c, ok := authz.CallerFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"})
		return authz.Caller{}, false
	}
	return c, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		out = append(out, uuid.MustParse(s))
	}
	return out
}

// limitParam reads ?limit=, defaulting to def and capping at max.
func limitParam(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
