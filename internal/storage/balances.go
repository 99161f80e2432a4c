package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
	"github.com/shopspring/decimal"
)

// applyEffect moves the cached balance of txn's account by direction times the
// transaction's signed amount. Initial Balance transactions have no effect: the
// opening balance is already part of the account row.
func applyEffect(ctx context.Context, q querier, txn *model.Transaction, direction int64) error {
	if txn.IsInitialBalance() {
		return nil
	}
	delta := txn.SignedAmount().Mul(decimal.NewFromInt(direction))
	return adjustBalance(ctx, q, txn.AccountID, delta)
}

// adjustBalance adds delta to an account's cached balance.
func adjustBalance(ctx context.Context, q querier, accountID int64, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	var current decimal.Decimal
	if err := q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.NotFound("account %d", accountID)
		}
		return fmt.Errorf("failed to read balance: %w", err)
	}

	next := current.Add(delta)
	if _, err := q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, next.String(), accountID); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	slog.Debug("adjusted balance", "account_id", accountID, "delta", delta.String(), "balance", next.String())
	return nil
}

// ledgerNet sums the signed amounts of an account's transactions, skipping the
// given category. It also returns how many rows were summed.
func ledgerNet(ctx context.Context, q querier, accountID int64, skipCategoryID int) (decimal.Decimal, int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT kind, amount FROM transactions WHERE account_id = ? AND category_id <> ?`,
		accountID, skipCategoryID)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	net := decimal.Zero
	count := 0
	for rows.Next() {
		var (
			kind   string
			amount decimal.Decimal
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return decimal.Zero, 0, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		net = net.Add(model.Kind(kind).Signed(amount))
		count++
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("error iterating ledger: %w", err)
	}
	return net, count, nil
}

// DerivedBalances computes every account's balance from its history:
// opening balance plus income minus expense over all non-Initial-Balance
// transactions.
func (s *SQLiteStorage) DerivedBalances(ctx context.Context) (map[int64]decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return derivedBalances(ctx, s.db)
}

// Reconcile compares each cached balance with the derived one and reports every
// account that disagrees. With repair set, the cached balances are rewritten to
// the derived values in one transaction.
func (s *SQLiteStorage) Reconcile(ctx context.Context, repair bool) ([]model.BalanceDrift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var drifts []model.BalanceDrift
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		derived, err := derivedBalances(ctx, tx)
		if err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT id, name, balance FROM accounts ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to query accounts: %w", err)
		}
		var found []model.BalanceDrift
		for rows.Next() {
			var d model.BalanceDrift
			if err := rows.Scan(&d.AccountID, &d.AccountName, &d.Cached); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan account: %w", err)
			}
			d.Derived = derived[d.AccountID]
			if !d.Cached.Equal(d.Derived) {
				found = append(found, d)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating accounts: %w", err)
		}
		rows.Close()

		if repair {
			for _, d := range found {
				if _, err := tx.ExecContext(ctx,
					`UPDATE accounts SET balance = ? WHERE id = ?`, d.Derived.String(), d.AccountID); err != nil {
					return fmt.Errorf("failed to repair balance of %q: %w", d.AccountName, err)
				}
				slog.Warn("repaired cached balance",
					"account", d.AccountName,
					"cached", d.Cached.String(),
					"derived", d.Derived.String())
			}
		}

		drifts = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drifts, nil
}

func derivedBalances(ctx context.Context, q querier) (map[int64]decimal.Decimal, error) {
	balances := make(map[int64]decimal.Decimal)

	accRows, err := q.QueryContext(ctx, `SELECT id, opening_balance FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	for accRows.Next() {
		var (
			id      int64
			opening decimal.Decimal
		)
		if err := accRows.Scan(&id, &opening); err != nil {
			accRows.Close()
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		balances[id] = opening
	}
	if err := accRows.Err(); err != nil {
		accRows.Close()
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	accRows.Close()

	openingSlug := model.CategorySlug(model.InitialBalanceCategory)
	rows, err := q.QueryContext(ctx, `
		SELECT t.account_id, t.kind, t.amount
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE c.slug <> ?`, openingSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			accountID int64
			kind      string
			amount    decimal.Decimal
		)
		if err := rows.Scan(&accountID, &kind, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		balances[accountID] = balances[accountID].Add(model.Kind(kind).Signed(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}
	return balances, nil
}
