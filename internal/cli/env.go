package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/spf13/cobra"

	"github.com/UncleVee2025/barter-trade-sub003/internal/app"
	"github.com/UncleVee2025/barter-trade-sub003/internal/config"
	"github.com/UncleVee2025/barter-trade-sub003/internal/execution"
	"github.com/UncleVee2025/barter-trade-sub003/internal/repository"
)

// env is the connected runtime a command works against.
type env struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	app    *app.App
	logger *slog.Logger
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// connect loads config and opens the pool. Events are enqueued through an
// insert-only River client so the API's workers deliver them.
func connect(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*env, func(), error) {
	logger := newLogger(opts, cmd.ErrOrStderr())
	cfg, pool, err := openPool(ctx, opts, logger)
	if err != nil {
		return nil, nil, err
	}

	queue := execution.NewEventQueue(logger)
	client, err := river.NewClient[pgx.Tx](riverpgxv5.New(pool), &river.Config{Logger: logger})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("river client: %w", err)
	}
	queue.SetInserter(client)

	a := app.New(ctx, cfg, pool, queue, logger)
	closeFn := func() {
		a.Close()
		pool.Close()
	}
	return &env{cfg: cfg, pool: pool, app: a, logger: logger}, closeFn, nil
}

func openPool(ctx context.Context, opts *RootOptions, logger *slog.Logger) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	pool, err := repository.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("connected", "database", pool.Config().ConnConfig.Database)
	return cfg, pool, nil
}

// emit writes v as JSON or, in text mode, through the text renderer.
func emit(opts *RootOptions, w io.Writer, v interface{}, text func(io.Writer)) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
