// Package categories seeds ledger categories for tests through a fluent builder.
//
//	cats, err := categories.NewBuilder(t).
//		WithBasicCategories().
//		WithCategory("Kopi").
//		Build(ctx, ledger)
package categories

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/Veraticus/eling/internal/model"
	"github.com/Veraticus/eling/internal/service"
)

// CategoryName is a category label used by tests.
type CategoryName string

// String returns the string representation of the category name.
func (c CategoryName) String() string {
	return string(c)
}

// Common category names used across tests.
const (
	CategorySalary    CategoryName = "Gaji"
	CategoryBonus     CategoryName = "Bonus"
	CategoryFood      CategoryName = "Makanan"
	CategoryTransport CategoryName = "Transport"
	CategoryBills     CategoryName = "Tagihan"
	CategoryShopping  CategoryName = "Belanja"
	CategoryInterest  CategoryName = "Interest"
	CategoryBankFees  CategoryName = "Bank Fees"
)

// Fixture is a named, reusable set of categories.
type Fixture struct {
	Name       string
	Categories []CategoryName
}

// Predefined fixtures.
var (
	FixtureMinimal = Fixture{
		Name:       "Minimal",
		Categories: []CategoryName{CategorySalary, CategoryFood},
	}

	FixtureHousehold = Fixture{
		Name: "Household",
		Categories: []CategoryName{
			CategorySalary,
			CategoryBonus,
			CategoryFood,
			CategoryTransport,
			CategoryBills,
			CategoryShopping,
		},
	}

	FixtureBank = Fixture{
		Name:       "Bank statement",
		Categories: []CategoryName{CategoryInterest, CategoryBankFees},
	}
)

// Categories is a collection of created test categories.
type Categories []model.Category

// Find returns the category with the given name, or nil if not found.
func (c Categories) Find(name CategoryName) *model.Category {
	slug := model.CategorySlug(name.String())
	for i := range c {
		if c[i].Slug == slug {
			return &c[i]
		}
	}
	return nil
}

// MustFind returns the category with the given name, or fails the test if not found.
func (c Categories) MustFind(t *testing.T, name CategoryName) model.Category {
	t.Helper()
	cat := c.Find(name)
	if cat == nil {
		t.Fatalf("category %q not found in test data", name)
	}
	return *cat
}

// Names returns all category names.
func (c Categories) Names() []string {
	names := make([]string, len(c))
	for i, cat := range c {
		names[i] = cat.Name
	}
	return names
}

// Builder collects category names and creates them in a ledger.
type Builder struct {
	t          *testing.T
	categories map[CategoryName]struct{}
}

// NewBuilder creates a new category builder for the given test.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{
		t:          t,
		categories: make(map[CategoryName]struct{}),
	}
}

// WithCategory adds a single category.
func (b *Builder) WithCategory(name CategoryName) *Builder {
	b.categories[name] = struct{}{}
	return b
}

// WithCategories adds several categories.
func (b *Builder) WithCategories(names ...CategoryName) *Builder {
	for _, name := range names {
		b.WithCategory(name)
	}
	return b
}

// WithBasicCategories adds the household fixture.
func (b *Builder) WithBasicCategories() *Builder {
	return b.WithFixture(FixtureHousehold)
}

// WithFixture adds every category of fixture.
func (b *Builder) WithFixture(fixture Fixture) *Builder {
	return b.WithCategories(fixture.Categories...)
}

// Build ensures every collected category exists in ledger and returns them
// sorted by name.
func (b *Builder) Build(ctx context.Context, ledger service.Ledger) (Categories, error) {
	names := make([]string, 0, len(b.categories))
	for name := range b.categories {
		names = append(names, name.String())
	}
	sort.Strings(names)

	cats := make(Categories, 0, len(names))
	for _, name := range names {
		cat, err := ledger.EnsureCategory(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to seed category %q: %w", name, err)
		}
		cats = append(cats, *cat)
	}
	return cats, nil
}
