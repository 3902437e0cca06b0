package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func NewOffersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offers",
		Short: "Trade offer maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Expire pending offers past their deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closeFn, err := connect(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := e.app.Offers.ExpireStale(ctx, time.Now())
			if err != nil {
				return err
			}
			return emit(opts, cmd.OutOrStdout(), map[string]int{"expired": n}, func(w io.Writer) {
				fmt.Fprintf(w, "expired %d offer(s)\n", n)
			})
		},
	})
	return cmd
}
