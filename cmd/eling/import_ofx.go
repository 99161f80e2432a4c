package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/config"
	"github.com/Veraticus/eling/internal/model"
	"github.com/Veraticus/eling/internal/ofx"
	"github.com/Veraticus/eling/internal/pattern"
	"github.com/Veraticus/eling/internal/service"
)

func importOFXCmd() *cobra.Command {
	var (
		account, category string
		dryRun            bool
	)

	cmd := &cobra.Command{
		Use:   "import-ofx <files...>",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import transactions from OFX or QFX statements exported by your bank.

Debits become expenses and credits become income. Interest, fees and ATM
withdrawals get their own categories; everything else lands in the default
category. Transactions already imported into the same account are skipped, so a
statement can be imported twice safely.`,
		Example: `  # Import one statement into the BCA account
  eling import-ofx --account BCA ~/Downloads/bca_2024_05.ofx

  # Use the account number from each statement as the account name
  eling import-ofx ~/Downloads/*.qfx

  # Preview without saving
  eling import-ofx --dry-run --account BCA statement.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			if category == "" {
				category = viper.GetString(config.KeyImportDefaultCategory)
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "No transactions were saved.")
			ctx, stop := handler.HandleInterrupts(cmd.Context())
			defer stop()

			parser := ofx.NewParser(account, category)
			inputs, err := parseStatements(ctx, parser, files)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(inputs) == 0 {
				fmt.Fprintln(out, cli.FormatWarning("No transactions found"))
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rules, err := store.GetPatternRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			claimed := pattern.NewMatcher(rules).Apply(inputs, category)

			if dryRun {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d transaction(s) would be imported", len(inputs))))
				return writeDrafts(out, inputs)
			}

			autoCheckpoint(ctx, store, "import")

			progress := cli.NewProgress(cmd.ErrOrStderr(), len(inputs), "Importing")
			result, err := store.ImportTransactions(ctx, inputs, progress.Step)
			progress.Done()
			if err != nil {
				if handler.WasInterrupted() {
					return context.Canceled
				}
				return fmt.Errorf("failed to import transactions: %w", err)
			}

			recordRuleUses(ctx, store, claimed, result.Duplicates)

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transaction(s), skipped %d already recorded",
				result.Imported, result.Skipped)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account to import into (default: the statement's account number)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category for transactions without a more specific one (default import.default_category)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Preview import without saving")

	return cmd
}

// expandFiles resolves glob patterns; arguments that match nothing but name an
// existing file are kept as-is.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(config.ExpandPath(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
			continue
		}
		slog.Warn("no files found matching pattern", "pattern", pattern)
	}

	if len(files) == 0 {
		return nil, errors.New("no files found to import")
	}
	return files, nil
}

func parseStatements(ctx context.Context, parser *ofx.Parser, files []string) ([]model.TransactionInput, error) {
	var inputs []model.TransactionInput
	for _, path := range files {
		parsed, err := parseStatement(ctx, parser, path)
		if err != nil {
			return nil, err
		}
		slog.Info("parsed statement", "file", filepath.Base(path), "transactions", len(parsed))
		inputs = append(inputs, parsed...)
	}
	return inputs, nil
}

func parseStatement(ctx context.Context, parser *ofx.Parser, path string) ([]model.TransactionInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	inputs, err := parser.ParseFile(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return inputs, nil
}

// recordRuleUses credits each rule with the imported transactions it
// categorized. Lines skipped as duplicates are not counted again.
func recordRuleUses(ctx context.Context, store service.Ledger, claimed []int64, duplicates []int) {
	skipped := make(map[int]bool, len(duplicates))
	for _, i := range duplicates {
		skipped[i] = true
	}

	uses := make(map[int64]int)
	for i, id := range claimed {
		if id != 0 && !skipped[i] {
			uses[id]++
		}
	}

	for id, n := range uses {
		if err := store.IncrementPatternRuleUseCount(ctx, id, n); err != nil {
			common.LogError(err, "failed to record rule use", common.Fields{"rule_id": id})
		}
	}
}

func writeDrafts(out io.Writer, inputs []model.TransactionInput) error {
	txns := make([]model.Transaction, len(inputs))
	for i, in := range inputs {
		txns[i] = model.Transaction{
			Date:        in.Date,
			Amount:      in.Amount,
			AccountName: in.Account,
			Category:    in.Category,
			Kind:        in.Kind,
			Note:        in.Note,
		}
	}
	return writeTransactions(out, txns)
}
