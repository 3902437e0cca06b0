package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
	"github.com/UncleVee2025/barter-trade-sub003/internal/money"
)

type balanceOutput struct {
	AccountID uuid.UUID             `json:"account_id"`
	Balance   decimal.Decimal       `json:"balance"`
	History   []*models.LedgerEntry `json:"history,omitempty"`
}

func NewBalanceCommand(opts *RootOptions) *cobra.Command {
	var history int
	cmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account's balance and recent ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("account id: %w", err)
			}
			if history < 0 || history > 500 {
				return errors.New("--history must be between 0 and 500")
			}
			ctx := cmd.Context()
			e, closeFn, err := connect(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			out := balanceOutput{AccountID: id}
			if out.Balance, err = e.app.Ledger.GetBalance(ctx, id); err != nil {
				return err
			}
			if history > 0 {
				if out.History, err = e.app.Ledger.History(ctx, id, history); err != nil {
					return err
				}
			}
			return emit(opts, cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s balance %s\n", id, money.Format(out.Balance))
				for _, en := range out.History {
					fmt.Fprintf(w, "%s  %-14s %10s  -> %s  %s\n",
						en.CreatedAt.Format("2006-01-02 15:04"), en.Kind, money.Format(en.Signed()), money.Format(en.BalanceAfter), en.Reference)
				}
			})
		},
	}
	cmd.Flags().IntVar(&history, "history", 0, "number of recent entries to show")
	return cmd
}
