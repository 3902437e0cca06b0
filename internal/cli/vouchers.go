package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/money"
	"github.com/UncleVee2025/barter-trade-sub003/internal/vouchers"
)

func NewVouchersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vouchers",
		Short: "Issue and manage prepaid vouchers",
	}
	cmd.AddCommand(newIssueCommand(opts))
	cmd.AddCommand(newDisableCommand(opts))
	cmd.AddCommand(newResetThrottleCommand(opts))
	return cmd
}

// adminCaller parses the --admin flag. Service-level role checks still
// apply, so the id must belong to an admin account.
func adminCaller(raw string) (authz.Caller, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return authz.Caller{}, fmt.Errorf("--admin: %w", err)
	}
	return authz.Caller{ID: id, Role: models.RoleAdmin}, nil
}

func newIssueCommand(opts *RootOptions) *cobra.Command {
	var amount, vendor, adminID string
	var quantity, expiryDays int
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a batch of vouchers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := adminCaller(adminID)
			if err != nil {
				return err
			}
			amt, err := money.Parse(amount)
			if err != nil {
				return err
			}
			if !vouchers.IsDenomination(amt) {
				return fmt.Errorf("%w: %s", vouchers.ErrInvalidDenomination, amount)
			}

			ctx := cmd.Context()
			e, closeFn, err := connect(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			batch, list, err := e.app.Vouchers.IssueBatch(ctx, caller, vouchers.IssueRequest{
				Amount:     amt,
				Quantity:   quantity,
				Vendor:     vendor,
				ExpiryDays: expiryDays,
			})
			if err != nil {
				return err
			}
			out := map[string]interface{}{"batch": batch, "vouchers": list}
			return emit(opts, cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "batch %s: %d x %s, expires %s\n", batch.ID, batch.Quantity, money.Format(batch.Amount), batch.ExpiresAt.Format("2006-01-02"))
				for _, v := range list {
					fmt.Fprintln(w, v.Code)
				}
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "face value of each voucher")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "number of vouchers")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor label")
	cmd.Flags().IntVar(&expiryDays, "expiry-days", 365, "days until expiry")
	cmd.Flags().StringVar(&adminID, "admin", "", "issuing admin account id")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func newDisableCommand(opts *RootOptions) *cobra.Command {
	var adminID string
	cmd := &cobra.Command{
		Use:   "disable <code>",
		Short: "Disable an unused voucher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := adminCaller(adminID)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, closeFn, err := connect(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			v, err := e.app.Vouchers.Disable(ctx, caller, args[0])
			if err != nil {
				return err
			}
			return emit(opts, cmd.OutOrStdout(), v, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", v.Code, v.Status)
			})
		},
	}
	cmd.Flags().StringVar(&adminID, "admin", "", "acting admin account id")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func newResetThrottleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-throttle <account-id>",
		Short: "Clear an account's redemption attempt counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("account id: %w", err)
			}
			ctx := cmd.Context()
			e, closeFn, err := connect(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if e.app.Limiter == nil {
				return fmt.Errorf("redemption throttling is not enabled")
			}
			if err := e.app.Limiter.Reset(ctx, vouchers.ThrottleKey(id)); err != nil {
				return err
			}
			return emit(opts, cmd.OutOrStdout(), map[string]string{"account_id": id.String(), "throttle": "reset"}, func(w io.Writer) {
				fmt.Fprintf(w, "throttle reset for %s\n", id)
			})
		},
	}
}
