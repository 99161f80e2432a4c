// Package testutil provides ledger fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/eling/internal/model"
	"github.com/Veraticus/eling/internal/service"
	"github.com/Veraticus/eling/internal/storage"
	"github.com/Veraticus/eling/internal/testutil/categories"
)

// TestDB is a migrated in-memory ledger with seeding helpers.
type TestDB struct {
	Ledger     service.Ledger
	t          *testing.T
	Categories categories.Categories
	now        time.Time
}

// SetupTestDB creates a migrated in-memory ledger seeded with cats.
func SetupTestDB(t *testing.T, cats ...categories.CategoryName) *TestDB {
	t.Helper()
	return SetupTestDBWithBuilder(t, func(b *categories.Builder) *categories.Builder {
		return b.WithCategories(cats...)
	})
}

// SetupTestDBWithBuilder creates a test ledger using a category builder.
func SetupTestDBWithBuilder(t *testing.T, configure func(*categories.Builder) *categories.Builder) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	builder := categories.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	cats, err := builder.Build(ctx, store)
	if err != nil {
		t.Fatalf("failed to build categories: %v", err)
	}

	return &TestDB{
		Ledger:     store,
		Categories: cats,
		t:          t,
		now:        time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC),
	}
}

// Amount parses a decimal literal or fails the test.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid amount %q: %v", s, err)
	}
	return d
}

// Income records an income transaction and returns it.
func (db *TestDB) Income(account string, category categories.CategoryName, amount string) *model.Transaction {
	db.t.Helper()
	return db.record(model.KindIncome, account, category, amount)
}

// Expense records an expense transaction and returns it.
func (db *TestDB) Expense(account string, category categories.CategoryName, amount string) *model.Transaction {
	db.t.Helper()
	return db.record(model.KindExpense, account, category, amount)
}

// Account creates an account with an opening balance.
func (db *TestDB) Account(name, opening string) *model.Account {
	db.t.Helper()
	acc, err := db.Ledger.CreateAccount(context.Background(), name, Amount(db.t, opening), db.now)
	if err != nil {
		db.t.Fatalf("failed to create account %q: %v", name, err)
	}
	return acc
}

// MustBalance returns the cached balance of the named account.
func (db *TestDB) MustBalance(name string) decimal.Decimal {
	db.t.Helper()
	acc, err := db.Ledger.GetAccountByName(context.Background(), name)
	if err != nil {
		db.t.Fatalf("failed to load account %q: %v", name, err)
	}
	return acc.Balance
}

func (db *TestDB) record(kind model.Kind, account string, category categories.CategoryName, amount string) *model.Transaction {
	db.t.Helper()
	txn, err := db.Ledger.RecordTransaction(context.Background(), model.TransactionInput{
		Date:     db.now,
		Amount:   Amount(db.t, amount),
		Account:  account,
		Category: category.String(),
		Kind:     kind,
	})
	if err != nil {
		db.t.Fatalf("failed to record %s %s on %q: %v", kind, amount, account, err)
	}
	db.now = db.now.Add(time.Minute)
	return txn
}
