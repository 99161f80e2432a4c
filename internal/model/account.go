package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// The default wallet. It is created with the ledger, always has id 1,
// and can be neither renamed nor deleted.
const (
	CashAccountID   int64 = 1
	CashAccountName       = "Cash"
)

// Account is a named money holding (bank, e-wallet, or cash).
type Account struct {
	CreatedAt      time.Time
	OpeningBalance decimal.Decimal // Balance declared when the account was created
	Balance        decimal.Decimal // Cached running balance
	Name           string
	ID             int64
}

// IsCash reports whether the account is the reserved default wallet.
func (a *Account) IsCash() bool {
	return a.ID == CashAccountID
}

// BalanceDrift describes an account whose cached balance disagrees with its ledger.
type BalanceDrift struct {
	Cached      decimal.Decimal
	Derived     decimal.Decimal
	AccountName string
	AccountID   int64
}

// Difference returns how far the cached balance is from the derived one.
func (d BalanceDrift) Difference() decimal.Decimal {
	return d.Cached.Sub(d.Derived)
}
