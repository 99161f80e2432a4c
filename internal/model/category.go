package model

import (
	"regexp"
	"strings"
	"time"
)

// InitialBalanceCategory records an account's opening balance. Transactions in this
// category mirror Account.OpeningBalance and never adjust the cached balance.
const InitialBalanceCategory = "Initial Balance"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Category is a user-defined label partitioning transactions.
type Category struct {
	CreatedAt time.Time
	Name      string // Label as first entered
	Slug      string // Normalized key, unique
	ID        int
}

// CategorySlug normalizes a category label: surrounding whitespace is dropped and
// every inner whitespace run becomes a single underscore.
func CategorySlug(label string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(label), "_")
}

// IsInitialBalanceCategory reports whether label names the opening-balance category.
func IsInitialBalanceCategory(label string) bool {
	return CategorySlug(label) == CategorySlug(InitialBalanceCategory)
}
