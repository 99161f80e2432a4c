package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/model"
)

type periodFlags struct {
	day   string
	month string
	year  int
}

func (f *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.day, "day", "", "Single day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.month, "month", "", "Month (YYYY-MM, default current month)")
	cmd.Flags().IntVar(&f.year, "year", 0, "Whole year")
}

func (f *periodFlags) period() (model.Period, error) {
	return periodFromFlags(f.day, f.month, f.year, time.Now())
}

func summaryCmd() *cobra.Command {
	var flags periodFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expense and net for a period",
		Long: `Show income, expense and net for a period, plus the balance of every account.
Initial Balance transactions are not counted as income.`,
		Example: `  eling summary
  eling summary --month 2024-05
  eling summary daily --day 2024-05-01
  eling summary categories --year 2024`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			period, err := flags.period()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			totals, err := store.PeriodTotals(ctx, period)
			if err != nil {
				return fmt.Errorf("failed to compute totals: %w", err)
			}
			accounts, err := store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Income:   %s\n", cli.IncomeStyle.Render(cli.FormatMoney(totals.Income, currency())))
			fmt.Fprintf(&b, "Expense:  %s\n", cli.ExpenseStyle.Render(cli.FormatMoney(totals.Expense, currency())))
			fmt.Fprintf(&b, "Net:      %s\n", cli.FormatBalance(totals.Net(), currency()))
			fmt.Fprintf(&b, "Entries:  %d\n", totals.Count)
			for _, acc := range accounts {
				fmt.Fprintf(&b, "\n%s %s", cli.BoldStyle.Render(acc.Name+":"), cli.FormatBalance(acc.Balance, currency()))
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(period.String(), b.String()))
			return nil
		},
	}

	flags.register(cmd)
	cmd.AddCommand(dailySummaryCmd())
	cmd.AddCommand(categorySummaryCmd())

	return cmd
}

func dailySummaryCmd() *cobra.Command {
	var flags periodFlags

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Show transactions grouped by day, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			period, err := flags.period()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			days, err := store.DailySummaries(ctx, period)
			if err != nil {
				return fmt.Errorf("failed to summarize days: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(days) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No transactions in "+period.String()))
				return nil
			}
			for i, day := range days {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := writeDay(out, day); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func writeDay(out io.Writer, day model.DailySummary) error {
	fmt.Fprintf(out, "%s  %s %s\n",
		cli.TitleStyle.Render(day.Date.Format(dateFormat())),
		cli.IncomeStyle.Render("+"+cli.FormatMoney(day.Income, currency())),
		cli.ExpenseStyle.Render("-"+cli.FormatMoney(day.Expense, currency())))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, txn := range day.Transactions {
		fmt.Fprintf(w, "  %s\t#%d\t%s\t%s\t%s\t%s\n",
			txn.Date.Format(model.TimeLayout),
			txn.ID,
			txn.AccountName,
			txn.Category,
			cli.FormatSigned(txn.Kind, txn.Amount, currency()),
			txn.Note)
	}
	return w.Flush()
}

func categorySummaryCmd() *cobra.Command {
	var flags periodFlags

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show totals per category with their share of income or expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			period, err := flags.period()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			totals, err := store.CategorySummary(ctx, period)
			if err != nil {
				return fmt.Errorf("failed to summarize categories: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(totals) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No transactions in "+period.String()))
				return nil
			}

			fmt.Fprintln(out, cli.FormatTitle("Categories "+period.String()))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.BoldStyle.Render("KIND"),
				cli.BoldStyle.Render("CATEGORY"),
				cli.BoldStyle.Render("TOTAL"),
				cli.BoldStyle.Render("SHARE"),
				cli.BoldStyle.Render("COUNT"),
			}, "\t"))
			for _, ct := range totals {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%d\n",
					cli.FormatKind(ct.Kind),
					ct.Category,
					cli.FormatSigned(ct.Kind, ct.Total, currency()),
					ct.Share.Shift(2).StringFixed(1),
					ct.Count)
			}
			return w.Flush()
		},
	}

	flags.register(cmd)

	return cmd
}
