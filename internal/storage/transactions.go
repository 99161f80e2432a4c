package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

const transactionSelect = `
	SELECT t.id, t.date, t.time, t.account_id, a.name, t.kind,
	       t.category_id, c.name, t.amount, t.note, COALESCE(t.external_id, '')
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
	JOIN categories c ON c.id = t.category_id`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn         model.Transaction
		date, clock string
		kind        string
	)
	if err := row.Scan(
		&txn.ID, &date, &clock, &txn.AccountID, &txn.AccountName, &kind,
		&txn.CategoryID, &txn.Category, &txn.Amount, &txn.Note, &txn.ExternalID,
	); err != nil {
		return nil, err
	}

	when, err := time.ParseInLocation(model.DateLayout+" "+model.TimeLayout, date+" "+clock, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("transaction %d has malformed date %q %q: %w", txn.ID, date, clock, err)
	}
	txn.Date = when
	txn.Kind = model.Kind(kind)
	return &txn, nil
}

// RecordTransaction stores a new income or expense. Unknown accounts and
// categories are created on first use; unless the category is Initial Balance
// the account's cached balance moves by the signed amount in the same
// database transaction.
func (s *SQLiteStorage) RecordTransaction(ctx context.Context, in model.TransactionInput) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateTransactionInput(&in); err != nil {
		return nil, err
	}

	var txn *model.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var recErr error
		txn, recErr = recordTransaction(ctx, tx, &in)
		return recErr
	})
	if err != nil {
		return nil, err
	}

	slog.Info("recorded transaction",
		"id", txn.ID,
		"account", txn.AccountName,
		"kind", txn.Kind,
		"category", txn.Category,
		"amount", txn.Amount.String())
	return txn, nil
}

// RecordIncome records in as an income transaction.
func (s *SQLiteStorage) RecordIncome(ctx context.Context, in model.TransactionInput) (*model.Transaction, error) {
	in.Kind = model.KindIncome
	return s.RecordTransaction(ctx, in)
}

// RecordExpense records in as an expense transaction.
func (s *SQLiteStorage) RecordExpense(ctx context.Context, in model.TransactionInput) (*model.Transaction, error) {
	in.Kind = model.KindExpense
	return s.RecordTransaction(ctx, in)
}

// GetTransaction returns a single transaction.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransaction(ctx, s.db, id)
}

// GetTransactions lists transactions newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}
	return queryTransactions(ctx, s.db, filter)
}

// EditTransaction rewrites a transaction. The original's balance effect is
// reversed on the original account and the new effect applied to the new
// account, so moving a transaction between accounts moves its whole effect.
// Initial Balance transactions neither reverse nor apply an effect.
func (s *SQLiteStorage) EditTransaction(ctx context.Context, id int64, in model.TransactionInput) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateTransactionInput(&in); err != nil {
		return nil, err
	}

	var txn *model.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		original, err := getTransaction(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := applyEffect(ctx, tx, original, -1); err != nil {
			return fmt.Errorf("failed to reverse original effect: %w", err)
		}

		acc, err := ensureAccount(ctx, tx, in.Account)
		if err != nil {
			return err
		}
		cat, err := ensureCategory(ctx, tx, in.Category)
		if err != nil {
			return err
		}

		if err := releaseExternalIDs(ctx, tx, acc.ID, `id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE transactions
			SET date = ?, time = ?, account_id = ?, kind = ?, category_id = ?, amount = ?, note = ?
			WHERE id = ?`,
			in.Date.Format(model.DateLayout), in.Date.Format(model.TimeLayout),
			acc.ID, string(in.Kind), cat.ID, in.Amount.String(), strings.TrimSpace(in.Note), id,
		); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}

		updated, err := getTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := applyEffect(ctx, tx, updated, 1); err != nil {
			return fmt.Errorf("failed to apply new effect: %w", err)
		}

		txn = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			slog.Warn("transaction to edit does not exist", "id", id)
		}
		return nil, err
	}

	slog.Info("edited transaction",
		"id", txn.ID,
		"account", txn.AccountName,
		"kind", txn.Kind,
		"category", txn.Category,
		"amount", txn.Amount.String())
	return txn, nil
}

// DeleteTransaction removes a transaction after reversing its balance effect.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		original, err := getTransaction(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := applyEffect(ctx, tx, original, -1); err != nil {
			return fmt.Errorf("failed to reverse transaction effect: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			slog.Warn("transaction to delete does not exist", "id", id)
		}
		return err
	}

	slog.Info("deleted transaction", "id", id)
	return nil
}

// recordTransaction runs the ordered steps of a new ledger entry on q.
func recordTransaction(ctx context.Context, q querier, in *model.TransactionInput) (*model.Transaction, error) {
	acc, err := ensureAccount(ctx, q, in.Account)
	if err != nil {
		return nil, err
	}
	cat, err := ensureCategory(ctx, q, in.Category)
	if err != nil {
		return nil, err
	}

	var externalID any
	if id := strings.TrimSpace(in.ExternalID); id != "" {
		externalID = id
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO transactions (date, time, account_id, kind, category_id, amount, note, external_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Date.Format(model.DateLayout), in.Date.Format(model.TimeLayout),
		acc.ID, string(in.Kind), cat.ID, in.Amount.String(), strings.TrimSpace(in.Note), externalID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("transaction %q on %q: %w", in.ExternalID, acc.Name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction ID: %w", err)
	}

	txn, err := getTransaction(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if err := applyEffect(ctx, q, txn, 1); err != nil {
		return nil, err
	}
	return txn, nil
}

func getTransaction(ctx context.Context, q querier, id int64) (*model.Transaction, error) {
	txn, err := scanTransaction(q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("transaction %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

func queryTransactions(ctx context.Context, q querier, filter model.TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.StartDate != nil {
		where = append(where, "t.date >= ?")
		args = append(args, filter.StartDate.Format(model.DateLayout))
	}
	if filter.EndDate != nil {
		where = append(where, "t.date <= ?")
		args = append(args, filter.EndDate.Format(model.DateLayout))
	}
	if filter.Account != "" {
		where = append(where, "a.name = ?")
		args = append(args, strings.TrimSpace(filter.Account))
	}
	if filter.Category != "" {
		where = append(where, "c.slug = ?")
		args = append(args, model.CategorySlug(filter.Category))
	}
	if filter.Kind != "" {
		where = append(where, "t.kind = ?")
		args = append(args, string(filter.Kind))
	}

	query := transactionSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date DESC, t.time DESC, t.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// releaseExternalIDs clears the external id of rows selected by where whose
// id is already recorded on account target, so they can move there without
// breaking the per-account uniqueness of external ids.
func releaseExternalIDs(ctx context.Context, tx *sql.Tx, target int64, where string, args ...any) error {
	query := `
		UPDATE transactions SET external_id = NULL
		WHERE ` + where + `
		  AND account_id != ?
		  AND external_id IN (
			SELECT external_id FROM transactions
			WHERE account_id = ? AND external_id IS NOT NULL)`
	res, err := tx.ExecContext(ctx, query, append(args, target, target)...)
	if err != nil {
		return fmt.Errorf("failed to release external ids: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Debug("released external ids already recorded on target account", "account_id", target, "count", n)
	}
	return nil
}
