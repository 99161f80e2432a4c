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
	"github.com/shopspring/decimal"
)

const accountColumns = `id, name, opening_balance, balance, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var acc model.Account
	if err := row.Scan(&acc.ID, &acc.Name, &acc.OpeningBalance, &acc.Balance, &acc.CreatedAt); err != nil {
		return nil, err
	}
	return &acc, nil
}

// CreateAccount registers a new account with a declared opening balance. A
// positive opening balance is also recorded as an Initial Balance transaction
// dated at.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, name string, opening decimal.Decimal, at time.Time) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if opening.IsNegative() {
		return nil, fmt.Errorf("%w: got %s", ErrNegativeBalance, opening.String())
	}
	name = strings.TrimSpace(name)
	if at.IsZero() {
		at = time.Now()
	}

	var acc *model.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getAccountByName(ctx, tx, name); err == nil {
			return fmt.Errorf("%w: %q", ErrDuplicateAccount, name)
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		created, err := insertAccount(ctx, tx, name, opening)
		if err != nil {
			return err
		}

		if opening.IsPositive() {
			if _, err := recordTransaction(ctx, tx, &model.TransactionInput{
				Date:     at,
				Amount:   opening,
				Account:  name,
				Category: model.InitialBalanceCategory,
				Kind:     model.KindIncome,
			}); err != nil {
				return fmt.Errorf("failed to record initial balance: %w", err)
			}
		}

		acc = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created account", "name", acc.Name, "id", acc.ID, "opening_balance", opening.String())
	return acc, nil
}

// EnsureAccount returns the account called name, creating it with a zero balance
// if it does not exist yet.
func (s *SQLiteStorage) EnsureAccount(ctx context.Context, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var acc *model.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var ensureErr error
		acc, ensureErr = ensureAccount(ctx, tx, name)
		return ensureErr
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetAccount returns the account with the given id.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAccountByID(ctx, s.db, id)
}

// GetAccountByName returns the account with exactly this name.
func (s *SQLiteStorage) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return getAccountByName(ctx, s.db, strings.TrimSpace(name))
}

// AccountExists reports whether an account with exactly this name exists.
func (s *SQLiteStorage) AccountExists(ctx context.Context, name string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE name = ?`, strings.TrimSpace(name)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return count > 0, nil
}

// GetAccounts returns every account, Cash first.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// RenameAccount gives an account a new name. Transactions reference accounts by
// id, so every historical row reports the new name at once.
func (s *SQLiteStorage) RenameAccount(ctx context.Context, oldName, newName string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(oldName, "oldName"); err != nil {
		return nil, err
	}
	if err := validateString(newName, "newName"); err != nil {
		return nil, err
	}

	var acc *model.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := getAccountByName(ctx, tx, strings.TrimSpace(oldName))
		if err != nil {
			return err
		}
		if err := renameAccount(ctx, tx, found, strings.TrimSpace(newName)); err != nil {
			return err
		}
		acc = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// UpdateAccount renames an account and resets its opening balance. The cached
// balance moves by the change in opening balance and the account's Initial
// Balance transaction is rewritten to match.
func (s *SQLiteStorage) UpdateAccount(ctx context.Context, id int64, name string, opening decimal.Decimal, at time.Time) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if opening.IsNegative() {
		return nil, fmt.Errorf("%w: got %s", ErrNegativeBalance, opening.String())
	}
	if at.IsZero() {
		at = time.Now()
	}

	var acc *model.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := getAccountByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := renameAccount(ctx, tx, found, strings.TrimSpace(name)); err != nil {
			return err
		}
		if err := setOpeningBalance(ctx, tx, found, opening, at); err != nil {
			return err
		}
		acc = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated account", "id", acc.ID, "name", acc.Name, "opening_balance", acc.OpeningBalance.String())
	return acc, nil
}

// DeleteAccount removes an account. Its Initial Balance transactions are deleted
// and every other transaction moves to Cash together with its balance effect.
// It returns the number of transactions reassigned.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if id == model.CashAccountID {
		return 0, ErrReservedAccount
	}

	var moved int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		acc, err := getAccountByID(ctx, tx, id)
		if err != nil {
			return err
		}

		opening, err := initialBalanceCategoryID(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE account_id = ? AND category_id = ?`, acc.ID, opening); err != nil {
			return fmt.Errorf("failed to delete initial balance transactions: %w", err)
		}

		net, count, err := ledgerNet(ctx, tx, acc.ID, opening)
		if err != nil {
			return err
		}

		if err := releaseExternalIDs(ctx, tx, model.CashAccountID,
			`account_id = ?`, acc.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET account_id = ? WHERE account_id = ?`, model.CashAccountID, acc.ID); err != nil {
			return fmt.Errorf("failed to reassign transactions: %w", err)
		}
		if err := adjustBalance(ctx, tx, model.CashAccountID, net); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, acc.ID); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}

		moved = count
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			slog.Warn("account to delete does not exist", "id", id)
		}
		return 0, err
	}

	slog.Info("deleted account", "id", id, "transactions_moved_to_cash", moved)
	return moved, nil
}

func getAccountByID(ctx context.Context, q querier, id int64) (*model.Account, error) {
	acc, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("account %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return acc, nil
}

func getAccountByName(ctx context.Context, q querier, name string) (*model.Account, error) {
	acc, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("account %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return acc, nil
}

func insertAccount(ctx context.Context, q querier, name string, opening decimal.Decimal) (*model.Account, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO accounts (name, opening_balance, balance) VALUES (?, ?, ?)`,
		name, opening.String(), opening.String())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAccount, name)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get account ID: %w", err)
	}
	return getAccountByID(ctx, q, id)
}

// ensureAccount is the insert-if-absent step run before recording against a name.
func ensureAccount(ctx context.Context, q querier, name string) (*model.Account, error) {
	name = strings.TrimSpace(name)
	acc, err := getAccountByName(ctx, q, name)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	acc, err = insertAccount(ctx, q, name, decimal.Zero)
	if err != nil {
		return nil, err
	}
	slog.Info("created account on first use", "name", name, "id", acc.ID)
	return acc, nil
}

func renameAccount(ctx context.Context, q querier, acc *model.Account, newName string) error {
	if newName == acc.Name {
		return nil
	}
	if acc.IsCash() {
		return ErrReservedAccount
	}

	if _, err := getAccountByName(ctx, q, newName); err == nil {
		return fmt.Errorf("%w: %q", ErrDuplicateAccount, newName)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if _, err := q.ExecContext(ctx, `UPDATE accounts SET name = ? WHERE id = ?`, newName, acc.ID); err != nil {
		return fmt.Errorf("failed to rename account: %w", err)
	}

	slog.Info("renamed account", "id", acc.ID, "from", acc.Name, "to", newName)
	acc.Name = newName
	return nil
}

// setOpeningBalance changes the declared opening balance and keeps both the
// cached balance and the Initial Balance transaction consistent with it.
func setOpeningBalance(ctx context.Context, q querier, acc *model.Account, opening decimal.Decimal, at time.Time) error {
	delta := opening.Sub(acc.OpeningBalance)
	balance := acc.Balance.Add(delta)

	if _, err := q.ExecContext(ctx,
		`UPDATE accounts SET opening_balance = ?, balance = ? WHERE id = ?`,
		opening.String(), balance.String(), acc.ID); err != nil {
		return fmt.Errorf("failed to update opening balance: %w", err)
	}
	acc.OpeningBalance = opening
	acc.Balance = balance

	categoryID, err := initialBalanceCategoryID(ctx, q)
	if err != nil {
		return err
	}

	ids, err := queryIDs(ctx, q,
		`SELECT id FROM transactions WHERE account_id = ? AND category_id = ? ORDER BY id`, acc.ID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to find initial balance transaction: %w", err)
	}

	switch {
	case !opening.IsPositive():
		// Zero opening balance: no Initial Balance row at all.
		_, err = q.ExecContext(ctx,
			`DELETE FROM transactions WHERE account_id = ? AND category_id = ?`, acc.ID, categoryID)
	case len(ids) == 0:
		_, err = recordTransaction(ctx, q, &model.TransactionInput{
			Date:     at,
			Amount:   opening,
			Account:  acc.Name,
			Category: model.InitialBalanceCategory,
			Kind:     model.KindIncome,
		})
	default:
		_, err = q.ExecContext(ctx,
			`UPDATE transactions SET amount = ?, kind = ? WHERE id = ?`,
			opening.String(), string(model.KindIncome), ids[0])
		if err == nil && len(ids) > 1 {
			_, err = q.ExecContext(ctx,
				`DELETE FROM transactions WHERE account_id = ? AND category_id = ? AND id <> ?`,
				acc.ID, categoryID, ids[0])
		}
	}
	if err != nil {
		return fmt.Errorf("failed to sync initial balance transaction: %w", err)
	}
	return nil
}

func initialBalanceCategoryID(ctx context.Context, q querier) (int, error) {
	cat, err := ensureCategory(ctx, q, model.InitialBalanceCategory)
	if err != nil {
		return 0, err
	}
	return cat.ID, nil
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
