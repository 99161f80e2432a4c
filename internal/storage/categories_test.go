package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

func TestEnsureCategoryIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.EnsureCategory(ctx, "Makan  Siang")
	require.NoError(t, err)
	assert.Equal(t, "Makan Siang", first.Name)
	assert.Equal(t, "Makan_Siang", first.Slug)

	for _, label := range []string{"Makan Siang", " Makan\tSiang ", "Makan_Siang"} {
		again, err := store.EnsureCategory(ctx, label)
		require.NoError(t, err, label)
		assert.Equal(t, first.ID, again.ID, label)
	}

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2, "Initial Balance plus one")
}

func TestEnsureCategoryRejectsInvalidLabels(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{name: "empty", label: ""},
		{name: "whitespace", label: " \t "},
		{name: "reserved amount", label: "amount"},
		{name: "reserved mixed case", label: "Date"},
		{name: "reserved note", label: " note "},
	}

	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.EnsureCategory(context.Background(), tt.label)
			require.ErrorIs(t, err, ErrInvalidCategory)
		})
	}
}

func TestGetCategories(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	mustRecord(t, store, expense("Cash", "Transport", "10"))
	mustRecord(t, store, income("Cash", "Gaji", "10"))

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}
	assert.Equal(t, []string{"Gaji", model.InitialBalanceCategory, "Transport"}, names)

	_, err = store.GetCategoryByName(ctx, "Hiburan")
	require.ErrorIs(t, err, common.ErrNotFound)
}
