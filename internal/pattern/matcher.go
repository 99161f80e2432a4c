// Package pattern categorizes statement lines using user-defined payee rules.
package pattern

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/eling/internal/model"
)

// Matcher evaluates transactions against pattern rules.
type Matcher struct {
	compiledRegex map[int64]*regexp.Regexp
	rules         []model.PatternRule
}

// NewMatcher creates a matcher over rules, ordered by priority (highest
// first, then oldest first). Regex rules that fail to compile are skipped.
func NewMatcher(rules []model.PatternRule) *Matcher {
	m := &Matcher{
		compiledRegex: make(map[int64]*regexp.Regexp),
	}

	for _, rule := range rules {
		if rule.IsRegex {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				slog.Warn("skipping pattern rule with invalid regex", "id", rule.ID, "pattern", rule.Pattern, "error", err)
				continue
			}
			m.compiledRegex[rule.ID] = re
		}
		m.rules = append(m.rules, rule)
	}

	sort.SliceStable(m.rules, func(i, j int) bool {
		if m.rules[i].Priority != m.rules[j].Priority {
			return m.rules[i].Priority > m.rules[j].Priority
		}
		return m.rules[i].ID < m.rules[j].ID
	})

	return m
}

// Match returns the first rule the transaction satisfies, or nil.
func (m *Matcher) Match(in model.TransactionInput) *model.PatternRule {
	for i := range m.rules {
		if m.matchesRule(in, &m.rules[i]) {
			return &m.rules[i]
		}
	}
	return nil
}

// Apply recategorizes every input still filed under fallback. The result holds,
// per input, the id of the rule that claimed it or 0. Inputs with a more
// specific category are left alone.
func (m *Matcher) Apply(inputs []model.TransactionInput, fallback string) []int64 {
	claimed := make([]int64, len(inputs))
	fallbackSlug := model.CategorySlug(fallback)

	for i := range inputs {
		if model.CategorySlug(inputs[i].Category) != fallbackSlug {
			continue
		}
		rule := m.Match(inputs[i])
		if rule == nil {
			continue
		}
		inputs[i].Category = rule.Category
		claimed[i] = rule.ID
	}

	return claimed
}

func (m *Matcher) matchesRule(in model.TransactionInput, rule *model.PatternRule) bool {
	if rule.Kind != "" && in.Kind != rule.Kind {
		return false
	}
	if !matchesAmount(in, rule) {
		return false
	}
	return m.matchesPayee(in, rule)
}

func (m *Matcher) matchesPayee(in model.TransactionInput, rule *model.PatternRule) bool {
	if rule.IsRegex {
		re, ok := m.compiledRegex[rule.ID]
		return ok && re.MatchString(in.Note)
	}
	return strings.Contains(strings.ToLower(in.Note), strings.ToLower(rule.Pattern))
}

func matchesAmount(in model.TransactionInput, rule *model.PatternRule) bool {
	if rule.AmountMin != nil && in.Amount.LessThan(*rule.AmountMin) {
		return false
	}
	if rule.AmountMax != nil && in.Amount.GreaterThan(*rule.AmountMax) {
		return false
	}
	return true
}
