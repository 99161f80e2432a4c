package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

const patternRuleSelect = `
	SELECT r.id, r.name, r.pattern, r.is_regex, r.kind, r.amount_min, r.amount_max,
		c.name, r.priority, r.use_count, r.created_at
	FROM pattern_rules r
	JOIN categories c ON c.id = r.category_id`

// CreatePatternRule stores a new rule, creating its category if needed.
func (s *SQLiteStorage) CreatePatternRule(ctx context.Context, rule *model.PatternRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return errors.New("pattern rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	rule.Pattern = strings.TrimSpace(rule.Pattern)
	if strings.TrimSpace(rule.Name) == "" {
		rule.Name = rule.Pattern
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		cat, err := ensureCategory(ctx, tx, rule.Category)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO pattern_rules (name, pattern, is_regex, kind, amount_min, amount_max, category_id, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rule.Name, rule.Pattern, rule.IsRegex, string(rule.Kind),
			decimalToNullString(rule.AmountMin), decimalToNullString(rule.AmountMax),
			cat.ID, rule.Priority,
		)
		if err != nil {
			return fmt.Errorf("failed to create pattern rule: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get pattern rule ID: %w", err)
		}

		created, err := getPatternRule(ctx, tx, id)
		if err != nil {
			return err
		}
		*rule = *created

		slog.Info("created pattern rule", "id", rule.ID, "pattern", rule.Pattern, "category", rule.Category)
		return nil
	})
}

// GetPatternRule returns one rule.
func (s *SQLiteStorage) GetPatternRule(ctx context.Context, id int64) (*model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getPatternRule(ctx, s.db, id)
}

// GetPatternRules returns every rule, highest priority first.
func (s *SQLiteStorage) GetPatternRules(ctx context.Context) ([]model.PatternRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, patternRuleSelect+` ORDER BY r.priority DESC, r.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.PatternRule
	for rows.Next() {
		rule, err := scanPatternRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern rules: %w", err)
	}

	return rules, nil
}

// DeletePatternRule removes a rule. Transactions it categorized keep their category.
func (s *SQLiteStorage) DeletePatternRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM pattern_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		slog.Warn("pattern rule to delete does not exist", "id", id)
		return common.NotFound("pattern rule %d", id)
	}

	return nil
}

// IncrementPatternRuleUseCount adds n to the number of transactions a rule has categorized.
func (s *SQLiteStorage) IncrementPatternRuleUseCount(ctx context.Context, id int64, n int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE pattern_rules SET use_count = use_count + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("failed to increment pattern rule use count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.NotFound("pattern rule %d", id)
	}

	return nil
}

func getPatternRule(ctx context.Context, q querier, id int64) (*model.PatternRule, error) {
	rule, err := scanPatternRule(q.QueryRowContext(ctx, patternRuleSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("pattern rule %d", id)
	}
	return rule, err
}

func scanPatternRule(row rowScanner) (*model.PatternRule, error) {
	var (
		rule                 model.PatternRule
		kind                 string
		amountMin, amountMax sql.NullString
	)
	err := row.Scan(&rule.ID, &rule.Name, &rule.Pattern, &rule.IsRegex, &kind, &amountMin, &amountMax,
		&rule.Category, &rule.Priority, &rule.UseCount, &rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pattern rule: %w", err)
	}

	rule.Kind = model.Kind(kind)
	if rule.AmountMin, err = nullStringToDecimal(amountMin); err != nil {
		return nil, err
	}
	if rule.AmountMax, err = nullStringToDecimal(amountMax); err != nil {
		return nil, err
	}
	return &rule, nil
}

func decimalToNullString(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullStringToDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", s.String, err)
	}
	return &d, nil
}
