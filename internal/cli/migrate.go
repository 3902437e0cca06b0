package cli

import (
	"fmt"
	"io"

	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"

	"github.com/UncleVee2025/barter-trade-sub003/internal/repository"
)

// NewMigrateCommand applies the ledger schema and River's job tables.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger(opts, cmd.ErrOrStderr())
			_, pool, err := openPool(ctx, opts, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.Migrate(ctx, pool); err != nil {
				return err
			}
			migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
			if err != nil {
				return fmt.Errorf("river migrator: %w", err)
			}
			res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
			if err != nil {
				return fmt.Errorf("river migrate: %w", err)
			}
			logger.Debug("river migrations", "applied", len(res.Versions))

			out := map[string]interface{}{"schema": "applied", "river_versions_applied": len(res.Versions)}
			return emit(opts, cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "schema applied, %d river migration(s) run\n", len(res.Versions))
			})
		},
	}
}
