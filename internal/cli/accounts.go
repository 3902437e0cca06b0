package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/UncleVee2025/barter-trade-sub003/internal/auth"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

func NewAccountsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newCreateAdminCommand(opts))
	return cmd
}

func newCreateAdminCommand(opts *RootOptions) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 8 {
				return errors.New("--password must be at least 8 characters")
			}
			ctx := cmd.Context()
			e, closeFn, err := connect(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			svc, err := auth.NewService(e.app.Accounts, e.cfg.JWT.Secret)
			if err != nil {
				return err
			}
			acc, err := svc.Register(ctx, email, password, name, models.RoleAdmin)
			if err != nil {
				return err
			}
			return emit(opts, cmd.OutOrStdout(), acc, func(w io.Writer) {
				fmt.Fprintf(w, "created admin %s (%s)\n", acc.ID, acc.Email)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
