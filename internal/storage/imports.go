package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/eling/internal/model"
)

// ImportResult reports what an import did.
type ImportResult struct {
	Duplicates []int // Indexes of skipped inputs
	Imported   int
	Skipped    int // Already recorded under the same external id
}

// ImportTransactions records a batch of transactions in one database
// transaction: either every new row and its balance effect is stored or none
// is. Inputs whose external id is already present on the same account are
// skipped. progress, if set, is called once per input.
func (s *SQLiteStorage) ImportTransactions(ctx context.Context, inputs []model.TransactionInput, progress func()) (*ImportResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	for i := range inputs {
		if err := validateTransactionInput(&inputs[i]); err != nil {
			return nil, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	var result ImportResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result = ImportResult{}
		for i := range inputs {
			in := &inputs[i]

			seen, err := externalIDRecorded(ctx, tx, in.Account, in.ExternalID)
			if err != nil {
				return err
			}
			if seen {
				result.Skipped++
				result.Duplicates = append(result.Duplicates, i)
			} else {
				if _, err := recordTransaction(ctx, tx, in); err != nil {
					return fmt.Errorf("transaction at index %d: %w", i, err)
				}
				result.Imported++
			}

			if progress != nil {
				progress()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("imported transactions", "imported", result.Imported, "skipped", result.Skipped)
	return &result, nil
}

func externalIDRecorded(ctx context.Context, q querier, account, externalID string) (bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return false, nil
	}

	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.name = ? AND t.external_id = ?`,
		strings.TrimSpace(account), externalID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check external id: %w", err)
	}
	return count > 0, nil
}
