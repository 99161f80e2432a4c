package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/eling/internal/model"
)

func TestMigrateCreatesLedgerSchema(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, table := range []string{"accounts", "categories", "transactions", "checkpoint_metadata", "pattern_rules"} {
		var count int
		err := store.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}

	var indexCount int
	err := store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'index' AND name = 'idx_transactions_external'`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 1, indexCount)
}

func TestMigrateRejectsUnknownKind(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.db.Exec(`
		INSERT INTO transactions (date, time, account_id, kind, category_id, amount)
		VALUES ('2024-01-01', '00:00', 1, 'transfer', 1, '1')`)
	assert.Error(t, err)
}

func TestMigratePreservesDataAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	mustRecord(t, store, income("Cash", "Gaji", "75"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Migrate(ctx))

	accounts, err := reopened.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, model.CashAccountName, accounts[0].Name)
	assertBalance(t, reopened, model.CashAccountName, "75")
}

func TestPendingMigrations(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer store.Close()

	pending, err := store.PendingMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, ExpectedSchemaVersion)
	for i, m := range pending {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Statements)
	}

	require.NoError(t, store.Migrate(ctx))
	pending, err = store.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Len(t, pendingAfter(1), ExpectedSchemaVersion-1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	accounts, err := store.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}
