// Package app wires the Postgres repositories into the engine's services.
// cmd/api and cmd/walletctl share it.
package app

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UncleVee2025/barter-trade-sub003/internal/activity"
	"github.com/UncleVee2025/barter-trade-sub003/internal/admin"
	"github.com/UncleVee2025/barter-trade-sub003/internal/config"
	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
	"github.com/UncleVee2025/barter-trade-sub003/internal/ledger"
	"github.com/UncleVee2025/barter-trade-sub003/internal/offers"
	"github.com/UncleVee2025/barter-trade-sub003/internal/ratelimit"
	"github.com/UncleVee2025/barter-trade-sub003/internal/repository"
	"github.com/UncleVee2025/barter-trade-sub003/internal/vouchers"
)

type App struct {
	Accounts *repository.AccountRepo
	Activity *activity.Log
	// Feed reads back what Activity records.
	Feed     *repository.ActivityRepo
	Ledger   *ledger.Service
	Offers   *offers.Service
	Vouchers *vouchers.Service
	Admin    *admin.Service
	// Limiter is nil when redis is not configured or unreachable.
	Limiter  *ratelimit.Limiter

	redis *redis.Client
}

// New builds the services over pool. Events go to emitter once a unit of
// work commits. A redis address in cfg enables redemption throttling.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, emitter events.Emitter, logger *slog.Logger) *App {
	accounts := repository.NewAccountRepo(pool)
	entries := repository.NewEntryRepo(pool)
	offerRepo := repository.NewOfferRepo(pool)
	listings := repository.NewListingRepo(pool)
	voucherRepo := repository.NewVoucherRepo(pool)
	topups := repository.NewTopUpRepo(pool)
	feed := repository.NewActivityRepo(pool)
	actLog := activity.NewLog(feed, logger)

	led := ledger.NewService(pool, accounts, entries, emitter, logger)

	a := &App{
		Accounts: accounts,
		Activity: actLog,
		Feed:     feed,
		Ledger:   led,
		Offers: offers.NewService(pool, offerRepo, listings, accounts, led, emitter, logger,
			offers.WithTTL(cfg.Offers.TTL),
			offers.WithActivityLog(actLog),
		),
		Admin: admin.NewService(pool, topups, led, actLog, emitter, logger),
	}

	voucherOpts := []vouchers.Option{
		vouchers.WithActivityLog(actLog),
		vouchers.WithMaxCodeAttempts(cfg.Vouchers.MaxCodeAttempts),
	}
	if cfg.Redis.Addr != "" {
		client, err := ratelimit.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// Throttling is optional; redemption works without it.
			logger.Warn("redis unavailable, voucher redemption is not throttled", "error", err)
		} else {
			a.redis = client
			a.Limiter = ratelimit.New(client, cfg.Vouchers.RedeemLimit, cfg.Vouchers.RedeemWindow)
			voucherOpts = append(voucherOpts, vouchers.WithLimiter(a.Limiter))
		}
	}
	a.Vouchers = vouchers.NewService(pool, voucherRepo, led, emitter, logger, voucherOpts...)
	return a
}

// Close releases the redis client, if any. The pool belongs to the caller.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
