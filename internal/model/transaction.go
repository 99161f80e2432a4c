// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind indicates whether a transaction adds money to or takes money from an account.
type Kind string

const (
	// KindIncome increases the account balance.
	KindIncome Kind = "income"
	// KindExpense decreases the account balance.
	KindExpense Kind = "expense"
)

// Layouts used to persist the date and the time-of-day of a transaction.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// IsValid reports whether k is a known transaction kind.
func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseKind converts user input such as "Income" or "expense" into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown transaction kind %q", s)
	}
	return k, nil
}

// Signed returns amount with the sign this kind applies to a balance.
func (k Kind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k == KindExpense {
		return amount.Neg()
	}
	return amount
}

// Transaction is a single dated income or expense event tied to one account and one category.
type Transaction struct {
	Date        time.Time // Calendar date plus time-of-day, minute precision
	Amount      decimal.Decimal
	AccountName string
	Category    string
	Kind        Kind
	Note        string
	ExternalID  string // Source identifier for imported rows (e.g. OFX FITID)
	ID          int64
	AccountID   int64
	CategoryID  int
}

// SignedAmount returns the transaction's effect on its account balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Kind.Signed(t.Amount)
}

// IsInitialBalance reports whether the transaction records an account's opening balance.
func (t *Transaction) IsInitialBalance() bool {
	return IsInitialBalanceCategory(t.Category)
}

// TransactionInput carries the user-supplied fields of a new or edited transaction.
type TransactionInput struct {
	Date       time.Time
	Amount     decimal.Decimal
	Account    string
	Category   string
	Kind       Kind
	Note       string
	ExternalID string
}

// TransactionFilter narrows transaction listings. Zero values mean "no constraint".
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Account   string
	Category  string
	Kind      Kind
	Limit     int
	Offset    int
}
