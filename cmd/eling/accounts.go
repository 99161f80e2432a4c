package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage accounts",
		Long: `List, create, edit, rename and delete accounts.

The Cash account always exists and can be neither renamed nor deleted. Deleting
any other account moves its transactions to Cash.`,
		Example: `  # Open a bank account with its current balance
  eling accounts add BCA --opening 2.500.000

  # Rename it
  eling accounts rename BCA "BCA Tabungan"

  # Delete it; its transactions move to Cash
  eling accounts delete "BCA Tabungan"`,
	}

	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(editAccountCmd())
	cmd.AddCommand(renameAccountCmd())
	cmd.AddCommand(deleteAccountCmd())

	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			accounts, err := store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.BoldStyle.Render("ID"),
				cli.BoldStyle.Render("ACCOUNT"),
				cli.BoldStyle.Render("OPENING"),
				cli.BoldStyle.Render("BALANCE"),
			}, "\t"))

			total := decimal.Zero
			for _, acc := range accounts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					acc.ID,
					acc.Name,
					cli.FormatMoney(acc.OpeningBalance, currency()),
					cli.FormatBalance(acc.Balance, currency()))
				total = total.Add(acc.Balance)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%s %s\n", cli.BoldStyle.Render("Total:"), cli.FormatBalance(total, currency()))
			return nil
		},
	}
}

func addAccountCmd() *cobra.Command {
	var opening, date string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Long: `Create an account with an opening balance. A positive opening balance is
also recorded as an "Initial Balance" transaction, which never counts as income.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(opening)
			if err != nil {
				return err
			}
			at, err := parseWhen(date, "", time.Now())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			acc, err := store.CreateAccount(ctx, args[0], amount, at)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created account %s with balance %s",
				cli.InfoStyle.Render(acc.Name), cli.FormatMoney(acc.Balance, currency()))))
			return nil
		},
	}

	cmd.Flags().StringVar(&opening, "opening", "0", "Opening balance")
	cmd.Flags().StringVar(&date, "date", "", "Date of the opening balance (YYYY-MM-DD, default today)")

	return cmd
}

func editAccountCmd() *cobra.Command {
	var newName, opening, date string

	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Change an account's name or opening balance",
		Long: `Change an account's name and opening balance together. The balance moves by
the change in opening balance and the Initial Balance transaction follows it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			acc, err := store.GetAccountByName(ctx, args[0])
			if err != nil {
				return err
			}

			name := acc.Name
			if cmd.Flags().Changed("name") {
				name = newName
			}
			amount := acc.OpeningBalance
			if cmd.Flags().Changed("opening") {
				if amount, err = parseAmount(opening); err != nil {
					return err
				}
			}
			at, err := parseWhen(date, "", time.Now())
			if err != nil {
				return err
			}

			updated, err := store.UpdateAccount(ctx, acc.ID, name, amount, at)
			if err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated account %s: opening %s, balance %s",
				cli.InfoStyle.Render(updated.Name),
				cli.FormatMoney(updated.OpeningBalance, currency()),
				cli.FormatBalance(updated.Balance, currency()))))
			return nil
		},
	}

	cmd.Flags().StringVar(&newName, "name", "", "New account name")
	cmd.Flags().StringVar(&opening, "opening", "", "New opening balance")
	cmd.Flags().StringVar(&date, "date", "", "Date for a newly created Initial Balance transaction")

	return cmd
}

func renameAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old-name> <new-name>",
		Short: "Rename an account",
		Long:  `Rename an account. Every transaction of the account shows the new name.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			acc, err := store.RenameAccount(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to rename account: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Renamed %s to %s",
				args[0], cli.InfoStyle.Render(acc.Name))))
			return nil
		},
	}
}

func deleteAccountCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an account",
		Long: `Delete an account. Its Initial Balance transactions are removed and every
other transaction moves to Cash along with its effect on the balance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			acc, err := store.GetAccountByName(ctx, args[0])
			if err != nil {
				return err
			}
			if acc.IsCash() {
				return fmt.Errorf("cannot delete %s", model.CashAccountName)
			}

			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "%s This will delete %s and move its transactions to %s.\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.InfoStyle.Render(acc.Name),
					model.CashAccountName)

				ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(ctx, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			autoCheckpoint(ctx, store, "delete-account")

			moved, err := store.DeleteAccount(ctx, acc.ID)
			if err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %s; %d transaction(s) moved to %s",
				acc.Name, moved, model.CashAccountName)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}
