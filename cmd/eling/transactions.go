package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

// entryFlags are shared by the income, expense and edit commands.
type entryFlags struct {
	category string
	account  string
	date     string
	clock    string
	note     string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category label (created if new)")
	cmd.Flags().StringVarP(&f.account, "account", "a", model.CashAccountName, "Account name (created if new)")
	cmd.Flags().StringVar(&f.date, "date", "", "Transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.clock, "time", "", "Transaction time (HH:MM, default now)")
	cmd.Flags().StringVarP(&f.note, "note", "n", "", "Free-text note")
}

func incomeCmd() *cobra.Command {
	return recordCmd(model.KindIncome, "Record money coming into an account", `  eling income 10.000.000 -c Gaji -a BCA --note "May salary"`)
}

func expenseCmd() *cobra.Command {
	return recordCmd(model.KindExpense, "Record money leaving an account", `  eling expense 25.000 -c Makanan --note "nasi goreng"`)
}

func recordCmd(kind model.Kind, short, example string) *cobra.Command {
	var flags entryFlags

	cmd := &cobra.Command{
		Use:     string(kind) + " <amount>",
		Short:   short,
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			when, err := parseWhen(flags.date, flags.clock, time.Now())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txn, err := store.RecordTransaction(ctx, model.TransactionInput{
				Date:     when,
				Amount:   amount,
				Account:  flags.account,
				Category: flags.category,
				Kind:     kind,
				Note:     flags.note,
			})
			if err != nil {
				return fmt.Errorf("failed to record %s: %w", kind, err)
			}

			acc, err := store.GetAccount(ctx, txn.AccountID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded #%d %s %s in %s",
				txn.ID, txn.Category, cli.FormatSigned(txn.Kind, txn.Amount, currency()), txn.AccountName)))
			fmt.Fprintf(out, "  %s balance: %s\n", acc.Name, cli.FormatBalance(acc.Balance, currency()))
			return nil
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "tx"},
		Short:   "List, edit and delete transactions",
		Example: `  # This month's expenses from BCA
  eling transactions list --account BCA --kind expense

  # Fix the amount of a transaction
  eling transactions edit 42 --amount 8.000.000

  # Remove a transaction
  eling transactions delete 42`,
	}

	cmd.AddCommand(listTransactionsCmd())
	cmd.AddCommand(editTransactionCmd())
	cmd.AddCommand(deleteTransactionCmd())

	return cmd
}

func listTransactionsCmd() *cobra.Command {
	var (
		from, to, account, category, kind string
		limit                             int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := model.TransactionFilter{
				Account:  account,
				Category: category,
				Limit:    limit,
			}
			if kind != "" {
				k, err := model.ParseKind(kind)
				if err != nil {
					return common.NewUserError("--kind must be income or expense", err)
				}
				filter.Kind = k
			}
			if from != "" {
				start, err := parseWhen(from, "00:00", time.Now())
				if err != nil {
					return err
				}
				filter.StartDate = &start
			}
			if to != "" {
				end, err := parseWhen(to, "23:59", time.Now())
				if err != nil {
					return err
				}
				filter.EndDate = &end
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if len(txns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No transactions found."))
				return nil
			}
			return writeTransactions(cmd.OutOrStdout(), txns)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Latest date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&account, "account", "a", "", "Only this account")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only this category")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only income or expense")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of transactions (0 for all)")

	return cmd
}

func writeTransactions(out io.Writer, txns []model.Transaction) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join([]string{
		cli.BoldStyle.Render("ID"),
		cli.BoldStyle.Render("DATE"),
		cli.BoldStyle.Render("ACCOUNT"),
		cli.BoldStyle.Render("CATEGORY"),
		cli.BoldStyle.Render("AMOUNT"),
		cli.BoldStyle.Render("NOTE"),
	}, "\t"))

	for _, txn := range txns {
		fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\t%s\n",
			txn.ID,
			txn.Date.Format(dateFormat()),
			txn.Date.Format(model.TimeLayout),
			txn.AccountName,
			txn.Category,
			cli.FormatSigned(txn.Kind, txn.Amount, currency()),
			txn.Note)
	}
	return w.Flush()
}

func editTransactionCmd() *cobra.Command {
	var (
		flags        entryFlags
		amount, kind string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a recorded transaction",
		Long: `Change any field of a recorded transaction. Fields left unset keep their
current value. Balances of both the old and the new account are corrected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			orig, err := store.GetTransaction(ctx, id)
			if err != nil {
				return err
			}

			in := model.TransactionInput{
				Date:       orig.Date,
				Amount:     orig.Amount,
				Account:    orig.AccountName,
				Category:   orig.Category,
				Kind:       orig.Kind,
				Note:       orig.Note,
				ExternalID: orig.ExternalID,
			}

			changed := cmd.Flags().Changed
			if changed("amount") {
				if in.Amount, err = parseAmount(amount); err != nil {
					return err
				}
			}
			if changed("kind") {
				if in.Kind, err = model.ParseKind(kind); err != nil {
					return common.NewUserError("--kind must be income or expense", err)
				}
			}
			if changed("category") {
				in.Category = flags.category
			}
			if changed("account") {
				in.Account = flags.account
			}
			if changed("note") {
				in.Note = flags.note
			}
			if changed("date") || changed("time") {
				date := orig.Date.Format(model.DateLayout)
				if changed("date") {
					date = flags.date
				}
				clock := orig.Date.Format(model.TimeLayout)
				if changed("time") {
					clock = flags.clock
				}
				if in.Date, err = parseWhen(date, clock, time.Now()); err != nil {
					return err
				}
			}

			txn, err := store.EditTransaction(ctx, id, in)
			if err != nil {
				return fmt.Errorf("failed to edit transaction: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated #%d %s %s in %s",
				txn.ID, txn.Category, cli.FormatSigned(txn.Kind, txn.Amount, currency()), txn.AccountName)))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&amount, "amount", "", "New amount")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "New kind (income or expense)")

	return cmd
}

func deleteTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and reverse its effect on the balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteTransaction(ctx, id); err != nil {
				return fmt.Errorf("failed to delete transaction: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted transaction #%d", id)))
			return nil
		},
	}
}

func parseID(s, noun string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("%q is not a %s id", s, noun), err)
	}
	return id, nil
}
