package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/eling/internal/model"
)

// ExpectedSchemaVersion is the schema version this build reads and writes.
// A ledger that cannot be brought to it is unusable.
const ExpectedSchemaVersion = 3

// Migration is one step of the ledger schema, applied atomically together
// with the PRAGMA user_version bump that records it.
type Migration struct {
	Description string
	Statements  []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger schema: accounts, categories, transactions",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id INTEGER PRIMARY KEY,
				name TEXT UNIQUE NOT NULL,
				opening_balance TEXT NOT NULL DEFAULT '0',
				balance TEXT NOT NULL DEFAULT '0',
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				slug TEXT UNIQUE NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS transactions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				date TEXT NOT NULL,
				time TEXT NOT NULL,
				account_id INTEGER NOT NULL,
				kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
				category_id INTEGER NOT NULL,
				amount TEXT NOT NULL,
				note TEXT NOT NULL DEFAULT '',
				external_id TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (account_id) REFERENCES accounts(id),
				FOREIGN KEY (category_id) REFERENCES categories(id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date, time)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external
				ON transactions(account_id, external_id) WHERE external_id IS NOT NULL`,
		},
	},
	{
		Version:     2,
		Description: "Checkpoint bookkeeping",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
				id TEXT PRIMARY KEY,
				created_at DATETIME NOT NULL,
				description TEXT,
				file_size INTEGER,
				row_counts TEXT,
				schema_version INTEGER,
				is_auto BOOLEAN DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_checkpoint_metadata_created_at ON checkpoint_metadata(created_at)`,
		},
	},
	{
		Version:     3,
		Description: "Pattern rules for categorizing imports",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS pattern_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				pattern TEXT NOT NULL,
				is_regex BOOLEAN NOT NULL DEFAULT 0,
				kind TEXT NOT NULL DEFAULT '' CHECK (kind IN ('', 'income', 'expense')),
				amount_min TEXT,
				amount_max TEXT,
				category_id INTEGER NOT NULL,
				priority INTEGER NOT NULL DEFAULT 0,
				use_count INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (category_id) REFERENCES categories(id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pattern_rules_priority ON pattern_rules(priority DESC)`,
		},
	},
}

// SchemaVersion reports the version recorded in the database file.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return schemaVersion(ctx, s.db)
}

// PendingMigrations lists the migrations Migrate would apply, oldest first.
func (s *SQLiteStorage) PendingMigrations(ctx context.Context) ([]Migration, error) {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	return pendingAfter(current), nil
}

// Migrate brings the schema up to ExpectedSchemaVersion and seeds the Cash
// account and the Initial Balance category. It is safe to run on every start.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	pending, err := s.PendingMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := s.withTx(ctx, func(tx *sql.Tx) error { return applyMigration(ctx, tx, m) }); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	final, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error { return seedDefaults(ctx, tx) })
}

func pendingAfter(version int) []Migration {
	var pending []Migration
	for _, m := range migrations {
		if m.Version > version {
			pending = append(pending, m)
		}
	}
	return pending
}

func applyMigration(ctx context.Context, tx *sql.Tx, m Migration) error {
	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			head, _, _ := strings.Cut(stmt, "\n")
			return fmt.Errorf("failed to execute %q: %w", head, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

func schemaVersion(ctx context.Context, q querier) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// seedDefaults inserts the Cash account (id 1) and the Initial Balance
// category unless they already exist.
func seedDefaults(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (id, name, opening_balance, balance) VALUES (?, ?, '0', '0')`,
		model.CashAccountID, model.CashAccountName,
	); err != nil {
		return fmt.Errorf("failed to seed cash account: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (name, slug) VALUES (?, ?)`,
		model.InitialBalanceCategory, model.CategorySlug(model.InitialBalanceCategory),
	); err != nil {
		return fmt.Errorf("failed to seed initial balance category: %w", err)
	}
	return nil
}
