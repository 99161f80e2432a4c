package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

// EnsureCategory returns the category whose normalized label matches label,
// creating it on first use. Categories are never removed.
func (s *SQLiteStorage) EnsureCategory(ctx context.Context, label string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if _, err := validateCategoryLabel(label); err != nil {
		return nil, err
	}

	var cat *model.Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var ensureErr error
		cat, ensureErr = ensureCategory(ctx, tx, label)
		return ensureErr
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// GetCategories returns every category ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, created_at
		FROM categories
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns the category matching label after normalization.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, label string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	slug, err := validateCategoryLabel(label)
	if err != nil {
		return nil, err
	}
	return getCategoryBySlug(ctx, s.db, slug)
}

func getCategoryBySlug(ctx context.Context, q querier, slug string) (*model.Category, error) {
	var cat model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, slug, created_at
		FROM categories
		WHERE slug = ?`, slug).Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("category %q", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &cat, nil
}

// ensureCategory is the insert-if-absent step shared by every ledger write.
func ensureCategory(ctx context.Context, q querier, label string) (*model.Category, error) {
	slug, err := validateCategoryLabel(label)
	if err != nil {
		return nil, err
	}

	cat, err := getCategoryBySlug(ctx, q, slug)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	name := whitespaceCollapsed(label)
	result, err := q.ExecContext(ctx,
		`INSERT INTO categories (name, slug) VALUES (?, ?)`, name, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	slog.Info("created new category", "name", name, "slug", slug, "id", id)
	return getCategoryBySlug(ctx, q, slug)
}

// whitespaceCollapsed trims label and folds inner whitespace runs to one space.
func whitespaceCollapsed(label string) string {
	return strings.Join(strings.Fields(label), " ")
}
