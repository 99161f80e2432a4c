package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PatternRule files imported transactions whose payee matches Pattern under Category.
type PatternRule struct {
	CreatedAt time.Time
	AmountMin *decimal.Decimal // Inclusive lower bound, nil for none
	AmountMax *decimal.Decimal // Inclusive upper bound, nil for none
	Name      string
	Pattern   string // Case-insensitive substring, or a regular expression when IsRegex
	Category  string
	Kind      Kind // Empty matches both kinds
	ID        int64
	Priority  int
	UseCount  int
	IsRegex   bool
}

// Validate checks the rule can be stored and compiled.
func (r *PatternRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return errors.New("rule pattern cannot be empty")
	}
	if strings.TrimSpace(r.Category) == "" {
		return errors.New("rule category cannot be empty")
	}
	if r.Kind != "" && !r.Kind.IsValid() {
		return fmt.Errorf("rule kind %q must be income or expense", r.Kind)
	}
	if r.IsRegex {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("rule pattern is not a valid regular expression: %w", err)
		}
	}
	if r.AmountMin != nil && r.AmountMin.IsNegative() {
		return errors.New("rule minimum amount cannot be negative")
	}
	if r.AmountMin != nil && r.AmountMax != nil && r.AmountMax.LessThan(*r.AmountMin) {
		return fmt.Errorf("rule maximum %s is below minimum %s", r.AmountMax, r.AmountMin)
	}
	return nil
}
