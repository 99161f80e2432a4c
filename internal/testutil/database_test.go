package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/eling/internal/model"
	"github.com/Veraticus/eling/internal/testutil/categories"
)

func TestSetupTestDBSeedsCategories(t *testing.T) {
	db := SetupTestDBWithBuilder(t, func(b *categories.Builder) *categories.Builder {
		return b.WithBasicCategories().WithFixture(categories.FixtureBank)
	})

	assert.Len(t, db.Categories, 8)
	fees := db.Categories.MustFind(t, categories.CategoryBankFees)
	assert.Equal(t, "Bank_Fees", fees.Slug)

	stored, err := db.Ledger.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 9, "fixture categories plus Initial Balance")
}

func TestRecordingHelpers(t *testing.T) {
	db := SetupTestDB(t, categories.CategorySalary, categories.CategoryFood)

	db.Income(model.CashAccountName, categories.CategorySalary, "10000000")
	food := db.Expense(model.CashAccountName, categories.CategoryFood, "2600000")
	assert.True(t, db.MustBalance(model.CashAccountName).Equal(Amount(t, "7400000")))

	db.Account("BCA", "500")
	assert.True(t, db.MustBalance("BCA").Equal(Amount(t, "500")))

	require.NoError(t, db.Ledger.DeleteTransaction(context.Background(), food.ID))
	assert.True(t, db.MustBalance(model.CashAccountName).Equal(Amount(t, "10000000")))
}
