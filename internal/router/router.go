package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/UncleVee2025/barter-trade-sub003/internal/auth"
	"github.com/UncleVee2025/barter-trade-sub003/internal/dashboard"
	"github.com/UncleVee2025/barter-trade-sub003/internal/handlers"
	"github.com/UncleVee2025/barter-trade-sub003/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *auth.Handler
	Wallet    *handlers.WalletHandler
	Offers    *handlers.OfferHandler
	Admin     *handlers.AdminHandler
	Dashboard *dashboard.Handler
}

// New returns an http.Handler that serves the API under /api/v1.
func New(h Handlers, tokens middleware.TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(tokens))

			r.Get("/account/me", h.Dashboard.GetMe)
			r.Get("/account/activity", h.Dashboard.MyActivity)

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.Wallet.GetBalance)
				r.Get("/entries", h.Wallet.History)
				r.Post("/topups", h.Wallet.RequestTopUp)
				r.Post("/vouchers/redeem", h.Wallet.Redeem)
			})

			r.Route("/offers", func(r chi.Router) {
				r.Get("/", h.Offers.List)
				r.Post("/", h.Offers.Create)
				r.Get("/{id}", h.Offers.Get)
				r.Post("/{id}/accept", h.Offers.Accept)
				r.Post("/{id}/reject", h.Offers.Reject)
				r.Post("/{id}/cancel", h.Offers.Cancel)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Post("/adjustments", h.Admin.Adjust)
				r.Get("/accounts/{id}/wallet", h.Admin.AccountWallet)
				r.Get("/accounts/{id}/activity", h.Dashboard.AccountActivity)
				r.Get("/topups", h.Admin.ListTopUps)
				r.Post("/topups/{id}/approve", h.Admin.ApproveTopUp)
				r.Post("/topups/{id}/reject", h.Admin.RejectTopUp)
				r.Post("/vouchers/batches", h.Admin.IssueBatch)
				r.Get("/vouchers/batches/{id}", h.Admin.ListBatch)
				r.Get("/vouchers/{code}", h.Admin.LookupVoucher)
				r.Post("/vouchers/{code}/disable", h.Admin.DisableVoucher)
			})
		})
	})

	return r
}
