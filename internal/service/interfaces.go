// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/eling/internal/model"
	"github.com/Veraticus/eling/internal/storage"
)

// Ledger defines the contract for our persistence layer.
type Ledger interface {
	// Category operations
	EnsureCategory(ctx context.Context, label string) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, label string) (*model.Category, error)

	// Account operations
	EnsureAccount(ctx context.Context, name string) (*model.Account, error)
	CreateAccount(ctx context.Context, name string, opening decimal.Decimal, at time.Time) (*model.Account, error)
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByName(ctx context.Context, name string) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
	AccountExists(ctx context.Context, name string) (bool, error)
	RenameAccount(ctx context.Context, oldName, newName string) (*model.Account, error)
	UpdateAccount(ctx context.Context, id int64, name string, opening decimal.Decimal, at time.Time) (*model.Account, error)
	DeleteAccount(ctx context.Context, id int64) (int, error)

	// Transaction operations
	RecordTransaction(ctx context.Context, in model.TransactionInput) (*model.Transaction, error)
	RecordIncome(ctx context.Context, in model.TransactionInput) (*model.Transaction, error)
	RecordExpense(ctx context.Context, in model.TransactionInput) (*model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	EditTransaction(ctx context.Context, id int64, in model.TransactionInput) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ImportTransactions(ctx context.Context, inputs []model.TransactionInput, progress func()) (*storage.ImportResult, error)

	// Balances
	DerivedBalances(ctx context.Context) (map[int64]decimal.Decimal, error)
	Reconcile(ctx context.Context, repair bool) ([]model.BalanceDrift, error)

	// Summaries
	DailySummaries(ctx context.Context, period model.Period) ([]model.DailySummary, error)
	CategorySummary(ctx context.Context, period model.Period) ([]model.CategoryTotal, error)
	PeriodTotals(ctx context.Context, period model.Period) (*model.PeriodTotals, error)

	// Pattern rules
	CreatePatternRule(ctx context.Context, rule *model.PatternRule) error
	GetPatternRule(ctx context.Context, id int64) (*model.PatternRule, error)
	GetPatternRules(ctx context.Context) ([]model.PatternRule, error)
	DeletePatternRule(ctx context.Context, id int64) error
	IncrementPatternRuleUseCount(ctx context.Context, id int64, n int) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

var _ Ledger = (*storage.SQLiteStorage)(nil)
