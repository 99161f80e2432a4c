package pattern

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/eling/internal/model"
)

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func draft(note, amount string, kind model.Kind) model.TransactionInput {
	return model.TransactionInput{
		Amount:   decimal.RequireFromString(amount),
		Note:     note,
		Kind:     kind,
		Category: "Uncategorized",
	}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name   string
		rules  []model.PatternRule
		txn    model.TransactionInput
		wantID int64
	}{
		{
			name:   "substring match",
			rules:  []model.PatternRule{{ID: 1, Pattern: "gojek", Category: "Transport"}},
			txn:    draft("GOJEK *GORIDE JAKARTA", "25000", model.KindExpense),
			wantID: 1,
		},
		{
			name:   "case insensitive",
			rules:  []model.PatternRule{{ID: 1, Pattern: "Kopi Kenangan", Category: "Makanan"}},
			txn:    draft("KOPI KENANGAN SENAYAN", "35000", model.KindExpense),
			wantID: 1,
		},
		{
			name:  "no match",
			rules: []model.PatternRule{{ID: 1, Pattern: "gojek", Category: "Transport"}},
			txn:   draft("GRAB FOOD", "25000", model.KindExpense),
		},
		{
			name:   "regex",
			rules:  []model.PatternRule{{ID: 1, Pattern: `^(grab|gojek)\b`, IsRegex: true, Category: "Transport"}},
			txn:    draft("Grab Bike", "18000", model.KindExpense),
			wantID: 1,
		},
		{
			name:  "invalid regex is skipped",
			rules: []model.PatternRule{{ID: 1, Pattern: `(grab`, IsRegex: true, Category: "Transport"}},
			txn:   draft("(grab", "18000", model.KindExpense),
		},
		{
			name:  "kind must agree",
			rules: []model.PatternRule{{ID: 1, Pattern: "bca", Kind: model.KindIncome, Category: "Interest"}},
			txn:   draft("BCA ADMIN", "10000", model.KindExpense),
		},
		{
			name: "amount bounds are inclusive",
			rules: []model.PatternRule{
				{ID: 1, Pattern: "pln", Category: "Tagihan", AmountMin: amountPtr("100000"), AmountMax: amountPtr("500000")},
			},
			txn:    draft("PLN PREPAID", "500000", model.KindExpense),
			wantID: 1,
		},
		{
			name: "amount below minimum",
			rules: []model.PatternRule{
				{ID: 1, Pattern: "pln", Category: "Tagihan", AmountMin: amountPtr("100000")},
			},
			txn: draft("PLN PREPAID", "99999", model.KindExpense),
		},
		{
			name: "higher priority wins",
			rules: []model.PatternRule{
				{ID: 1, Pattern: "tokopedia", Category: "Belanja", Priority: 1},
				{ID: 2, Pattern: "tokopedia pulsa", Category: "Tagihan", Priority: 10},
			},
			txn:    draft("TOKOPEDIA PULSA 0812", "50000", model.KindExpense),
			wantID: 2,
		},
		{
			name: "older rule wins a tie",
			rules: []model.PatternRule{
				{ID: 7, Pattern: "alfamart", Category: "Makanan"},
				{ID: 3, Pattern: "alfa", Category: "Belanja"},
			},
			txn:    draft("ALFAMART CIPUTAT", "42000", model.KindExpense),
			wantID: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMatcher(tt.rules).Match(tt.txn)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMatcher_Apply(t *testing.T) {
	m := NewMatcher([]model.PatternRule{
		{ID: 1, Pattern: "gojek", Category: "Transport"},
		{ID: 2, Pattern: "indomaret", Category: "Belanja"},
	})

	inputs := []model.TransactionInput{
		draft("GOJEK GORIDE", "20000", model.KindExpense),
		draft("GOJEK GOFOOD", "55000", model.KindExpense),
		draft("INDOMARET 123", "15000", model.KindExpense),
		draft("UNKNOWN MERCHANT", "10000", model.KindExpense),
		{Note: "GOJEK ADMIN", Category: "Bank Fees", Amount: decimal.NewFromInt(1000), Kind: model.KindExpense},
	}

	claimed := m.Apply(inputs, "Uncategorized")

	assert.Equal(t, []int64{1, 1, 2, 0, 0}, claimed)
	assert.Equal(t, "Transport", inputs[0].Category)
	assert.Equal(t, "Transport", inputs[1].Category)
	assert.Equal(t, "Belanja", inputs[2].Category)
	assert.Equal(t, "Uncategorized", inputs[3].Category)
	assert.Equal(t, "Bank Fees", inputs[4].Category, "specific categories are kept")
}

func TestMatcher_Empty(t *testing.T) {
	m := NewMatcher(nil)
	assert.Nil(t, m.Match(draft("anything", "1", model.KindIncome)))

	inputs := []model.TransactionInput{draft("anything", "1", model.KindIncome)}
	assert.Equal(t, []int64{0}, m.Apply(inputs, "Uncategorized"))
}
