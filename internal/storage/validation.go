// Package storage provides the data persistence layer: the SQLite ledger of accounts,
// categories and transactions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/eling/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrNegativeBalance    = errors.New("opening balance cannot be negative")
	ErrInvalidKind        = errors.New("invalid transaction kind")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrReservedAccount    = errors.New("the Cash account cannot be renamed or deleted")
	ErrDuplicateAccount   = errors.New("account name already in use")
)

// reservedCategorySlugs name transaction fields; a category may not shadow them.
var reservedCategorySlugs = map[string]struct{}{
	"id":       {},
	"date":     {},
	"time":     {},
	"account":  {},
	"kind":     {},
	"amount":   {},
	"category": {},
	"note":     {},
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCategoryLabel normalizes a category label and rejects empty or reserved keys.
func validateCategoryLabel(label string) (string, error) {
	slug := model.CategorySlug(label)
	if slug == "" {
		return "", fmt.Errorf("%w: category name cannot be empty", ErrInvalidCategory)
	}
	if _, reserved := reservedCategorySlugs[strings.ToLower(slug)]; reserved {
		return "", fmt.Errorf("%w: %q is a reserved name", ErrInvalidCategory, slug)
	}
	return slug, nil
}

// validateTransactionInput checks every user-supplied field before anything is written.
func validateTransactionInput(in *model.TransactionInput) error {
	if in == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrInvalidTransaction)
	}
	if err := validateString(in.Account, "account"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if !in.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, in.Kind)
	}
	if _, err := validateCategoryLabel(in.Category); err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, in.Amount.String())
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}

// validatePeriod ensures a summary period is well formed.
func validatePeriod(p model.Period) error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: period bounds must be set", ErrInvalidDateRange)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDateRange, err)
	}
	return nil
}
