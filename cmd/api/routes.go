package main

import (
	"log/slog"
	"net/http"

	"github.com/UncleVee2025/barter-trade-sub003/internal/app"
	"github.com/UncleVee2025/barter-trade-sub003/internal/auth"
	"github.com/UncleVee2025/barter-trade-sub003/internal/dashboard"
	"github.com/UncleVee2025/barter-trade-sub003/internal/handlers"
	"github.com/UncleVee2025/barter-trade-sub003/internal/router"
)

// newRouter mounts the REST API over the wired services.
// Middleware chain: RequestID -> RealIP -> Recoverer -> BearerAuth (-> AdminOnly) -> handler.
func newRouter(svc *app.App, authSvc auth.Service, logger *slog.Logger) http.Handler {
	return router.New(router.Handlers{
		Auth: auth.NewHandler(authSvc, logger),
		Wallet: &handlers.WalletHandler{
			Wallet:   svc.Ledger,
			Vouchers: svc.Vouchers,
			TopUps:   svc.Admin,
			Logger:   logger,
		},
		Offers: &handlers.OfferHandler{
			Offers: svc.Offers,
			Logger: logger,
		},
		Admin: &handlers.AdminHandler{
			Admin:    svc.Admin,
			Vouchers: svc.Vouchers,
			Wallet:   svc.Ledger,
			Logger:   logger,
		},
		Dashboard: dashboard.NewHandler(svc.Accounts, svc.Feed, logger),
	}, authSvc)
}
