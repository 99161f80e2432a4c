package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/common"
)

func reconcileCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check cached account balances against the ledger",
		Long: `Recompute every account balance as its opening balance plus its income minus
its expenses (Initial Balance transactions excluded) and compare it with the
stored balance. With --repair, mismatched balances are overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			drifts, err := store.Reconcile(ctx, repair)
			if err != nil {
				return fmt.Errorf("failed to reconcile balances: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(drifts) == 0 {
				common.LogInfo("balances reconciled", common.Fields{"drifted": 0})
				fmt.Fprintln(out, cli.FormatSuccess("All balances match the ledger"))
				return nil
			}

			for _, d := range drifts {
				common.LogWarn("balance drift", common.Fields{
					"account": d.AccountName,
					"cached":  d.Cached.String(),
					"derived": d.Derived.String(),
				})
				fmt.Fprintf(out, "%s %s: stored %s, ledger %s (off by %s)\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.BoldStyle.Render(d.AccountName),
					cli.FormatMoney(d.Cached, currency()),
					cli.FormatMoney(d.Derived, currency()),
					cli.FormatMoney(d.Difference(), currency()))
			}

			if repair {
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Repaired %d balance(s)", len(drifts))))
			} else {
				fmt.Fprintln(out, cli.FormatInfo("Run with --repair to fix them"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Overwrite stored balances with the ledger values")

	return cmd
}
