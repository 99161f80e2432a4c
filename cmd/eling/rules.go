package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage payee rules used to categorize imports",
		Long: `Pattern rules file imported statement lines by payee.

When import-ofx would put a line in the default category, the highest priority
rule whose pattern appears in the payee (and whose kind and amount limits fit)
picks the category instead.`,
		Example: `  # Rides go to Transport
  eling rules add gojek -c Transport

  # Electricity tokens between 100k and 1M, by regular expression
  eling rules add '^pln\b' --regex -c Tagihan --min 100.000 --max 1.000.000`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(deleteRuleCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules, highest priority first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rules, err := store.GetPatternRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(rules) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No rules found. Use 'eling rules add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.BoldStyle.Render("ID"),
				cli.BoldStyle.Render("PATTERN"),
				cli.BoldStyle.Render("CATEGORY"),
				cli.BoldStyle.Render("KIND"),
				cli.BoldStyle.Render("AMOUNT"),
				cli.BoldStyle.Render("PRIORITY"),
				cli.BoldStyle.Render("USED"),
			}, "\t"))
			for _, r := range rules {
				pattern := r.Pattern
				if r.IsRegex {
					pattern = "/" + pattern + "/"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
					r.ID, pattern, r.Category, cli.FormatKind(r.Kind), formatBounds(r.AmountMin, r.AmountMax), r.Priority, r.UseCount)
			}
			return w.Flush()
		},
	}
}

func formatBounds(low, high *decimal.Decimal) string {
	switch {
	case low == nil && high == nil:
		return "any"
	case high == nil:
		return ">= " + cli.FormatMoney(*low, currency())
	case low == nil:
		return "<= " + cli.FormatMoney(*high, currency())
	default:
		return cli.FormatMoney(*low, currency()) + " - " + cli.FormatMoney(*high, currency())
	}
}

func addRuleCmd() *cobra.Command {
	var (
		name, category, kind, minAmount, maxAmount string
		regex                                      bool
		priority                                   int
	)

	cmd := &cobra.Command{
		Use:   "add <pattern>",
		Short: "Add a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rule := &model.PatternRule{
				Name:     name,
				Pattern:  args[0],
				Category: category,
				IsRegex:  regex,
				Priority: priority,
			}
			if kind != "" {
				k, err := model.ParseKind(kind)
				if err != nil {
					return common.NewUserError("--kind must be income or expense", err)
				}
				rule.Kind = k
			}
			if minAmount != "" {
				d, err := parseAmount(minAmount)
				if err != nil {
					return err
				}
				rule.AmountMin = &d
			}
			if maxAmount != "" {
				d, err := parseAmount(maxAmount)
				if err != nil {
					return err
				}
				rule.AmountMax = &d
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.CreatePatternRule(ctx, rule); err != nil {
				return fmt.Errorf("failed to add rule: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added rule #%d: %s → %s",
				rule.ID, rule.Pattern, cli.InfoStyle.Render(rule.Category))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category to assign")
	cmd.Flags().StringVar(&name, "name", "", "Rule name (defaults to the pattern)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only income or expense")
	cmd.Flags().StringVar(&minAmount, "min", "", "Smallest matching amount")
	cmd.Flags().StringVar(&maxAmount, "max", "", "Largest matching amount")
	cmd.Flags().BoolVar(&regex, "regex", false, "Treat the pattern as a regular expression")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Higher priority rules are tried first")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeletePatternRule(ctx, id); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted rule #%d", id)))
			return nil
		},
	}
}
