package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

func TestLedgerScenario(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	mustRecord(t, store, income("Cash", "Gaji", "10000000"))
	assertBalance(t, store, "Cash", "10000000")

	food := mustRecord(t, store, expense("Cash", "Makanan", "2600000"))
	assertBalance(t, store, "Cash", "7400000")

	edit := expense("Cash", "Makanan", "2000000")
	_, err := store.EditTransaction(ctx, food.ID, edit)
	require.NoError(t, err)
	assertBalance(t, store, "Cash", "8000000")

	require.NoError(t, store.DeleteTransaction(ctx, food.ID))
	assertBalance(t, store, "Cash", "10000000")

	assertReconciled(t, store)
}

func TestRecordTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unknown account and category on first use", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		txn := mustRecord(t, store, expense("BCA", "Makan Siang", "45000"))
		assert.Equal(t, "BCA", txn.AccountName)
		assert.Equal(t, "Makan Siang", txn.Category)
		assert.Equal(t, model.KindExpense, txn.Kind)
		assert.Equal(t, "2024-05-01", txn.Date.Format(model.DateLayout))
		assert.Equal(t, "08:00", txn.Date.Format(model.TimeLayout))

		assertBalance(t, store, "BCA", "-45000")

		cat, err := store.GetCategoryByName(ctx, "Makan_Siang")
		require.NoError(t, err)
		assert.Equal(t, txn.CategoryID, cat.ID)
	})

	t.Run("initial balance category leaves balance alone", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		mustRecord(t, store, income("Cash", model.InitialBalanceCategory, "750"))
		assertBalance(t, store, "Cash", "0")
	})

	t.Run("income and expense wrappers fix the kind", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		in := income("Cash", "Bonus", "300")
		in.Kind = model.KindExpense
		got, err := store.RecordIncome(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, model.KindIncome, got.Kind)

		got, err = store.RecordExpense(ctx, income("Cash", "Pulsa", "100"))
		require.NoError(t, err)
		assert.Equal(t, model.KindExpense, got.Kind)

		assertBalance(t, store, "Cash", "200")
	})

	t.Run("keeps decimal precision", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		mustRecord(t, store, income("Cash", "Refund", "0.10"))
		mustRecord(t, store, income("Cash", "Refund", "0.20"))
		assertBalance(t, store, "Cash", "0.3")
	})
}

func TestRecordTransactionRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		mutate  func(*model.TransactionInput)
		wantErr error
		name    string
	}{
		{name: "zero amount", mutate: func(in *model.TransactionInput) { in.Amount = dec("0") }, wantErr: ErrInvalidAmount},
		{name: "negative amount", mutate: func(in *model.TransactionInput) { in.Amount = dec("-5") }, wantErr: ErrInvalidAmount},
		{name: "empty account", mutate: func(in *model.TransactionInput) { in.Account = " " }, wantErr: ErrInvalidTransaction},
		{name: "empty category", mutate: func(in *model.TransactionInput) { in.Category = "" }, wantErr: ErrInvalidCategory},
		{name: "reserved category", mutate: func(in *model.TransactionInput) { in.Category = "Amount" }, wantErr: ErrInvalidCategory},
		{name: "unknown kind", mutate: func(in *model.TransactionInput) { in.Kind = "transfer" }, wantErr: ErrInvalidKind},
		{name: "missing date", mutate: func(in *model.TransactionInput) { in.Date = at("0001-01-01 00:00") }, wantErr: ErrInvalidTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			in := income("Fresh Account", "Gaji", "100")
			tt.mutate(&in)

			_, err := store.RecordTransaction(ctx, in)
			require.ErrorIs(t, err, tt.wantErr)

			// No partial writes: neither the account nor a row appeared.
			exists, err := store.AccountExists(ctx, "Fresh Account")
			require.NoError(t, err)
			assert.False(t, exists)

			txns, err := store.GetTransactions(ctx, model.TransactionFilter{})
			require.NoError(t, err)
			assert.Empty(t, txns)
		})
	}
}

func TestEditTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("amount change is reversible", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		mustRecord(t, store, income("Cash", "Gaji", "1000"))
		txn := mustRecord(t, store, expense("Cash", "Kopi", "30"))
		before := balanceOf(t, store, "Cash")

		_, err := store.EditTransaction(ctx, txn.ID, expense("Cash", "Kopi", "45"))
		require.NoError(t, err)
		assert.True(t, balanceOf(t, store, "Cash").Equal(before.Sub(dec("15"))))

		_, err = store.EditTransaction(ctx, txn.ID, expense("Cash", "Kopi", "30"))
		require.NoError(t, err)
		assert.True(t, balanceOf(t, store, "Cash").Equal(before))
	})

	t.Run("moving accounts moves the whole effect", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		txn := mustRecord(t, store, income("A", "Gaji", "500"))
		mustRecord(t, store, income("B", "Gaji", "100"))

		moved, err := store.EditTransaction(ctx, txn.ID, income("B", "Gaji", "700"))
		require.NoError(t, err)
		assert.Equal(t, "B", moved.AccountName)

		assertBalance(t, store, "A", "0")
		assertBalance(t, store, "B", "800")
		assertReconciled(t, store)
	})

	t.Run("moving onto an account that has the external id", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		onA := income("A", "Gaji", "500")
		onA.ExternalID = "FIT1"
		onB := onA
		onB.Account = "B"
		txn := mustRecord(t, store, onA)
		mustRecord(t, store, onB)

		moved, err := store.EditTransaction(ctx, txn.ID, income("B", "Gaji", "500"))
		require.NoError(t, err)
		assert.Equal(t, "B", moved.AccountName)
		assert.Empty(t, moved.ExternalID)

		assertBalance(t, store, "A", "0")
		assertBalance(t, store, "B", "1000")
		assertReconciled(t, store)
	})

	t.Run("editing in place keeps the external id", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		in := expense("A", "Kopi", "30")
		in.ExternalID = "FIT9"
		txn := mustRecord(t, store, in)

		edited, err := store.EditTransaction(ctx, txn.ID, expense("A", "Kopi", "35"))
		require.NoError(t, err)
		assert.Equal(t, "FIT9", edited.ExternalID)
	})

	t.Run("changing kind and category", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		txn := mustRecord(t, store, income("Cash", "Gaji", "200"))
		edited, err := store.EditTransaction(ctx, txn.ID, expense("Cash", "Listrik", "50"))
		require.NoError(t, err)
		assert.Equal(t, "Listrik", edited.Category)
		assert.Equal(t, model.KindExpense, edited.Kind)
		assertBalance(t, store, "Cash", "-50")
	})

	t.Run("initial balance transactions neither reverse nor apply", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		acc, err := store.CreateAccount(ctx, "Mandiri", dec("1000"), at("2024-01-01 09:00"))
		require.NoError(t, err)

		txns, err := store.GetTransactions(ctx, model.TransactionFilter{Account: acc.Name})
		require.NoError(t, err)
		require.Len(t, txns, 1)

		in := income("Mandiri", model.InitialBalanceCategory, "1500")
		_, err = store.EditTransaction(ctx, txns[0].ID, in)
		require.NoError(t, err)
		assertBalance(t, store, "Mandiri", "1000")
	})

	t.Run("rejected input changes nothing", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		txn := mustRecord(t, store, expense("Cash", "Kopi", "30"))
		bad := expense("Cash", "", "30")
		_, err := store.EditTransaction(ctx, txn.ID, bad)
		require.ErrorIs(t, err, ErrInvalidCategory)

		bad = expense("Cash", "Kopi", "0")
		_, err = store.EditTransaction(ctx, txn.ID, bad)
		require.ErrorIs(t, err, ErrInvalidAmount)

		got, err := store.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(dec("30")))
		assertBalance(t, store, "Cash", "-30")
	})

	t.Run("missing transaction is not found", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		_, err := store.EditTransaction(ctx, 404, expense("Cash", "Kopi", "30"))
		require.ErrorIs(t, err, common.ErrNotFound)

		exists, err := store.AccountExists(ctx, "Cash")
		require.NoError(t, err)
		assert.True(t, exists)
		assertBalance(t, store, "Cash", "0")
	})
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	keep := mustRecord(t, store, income("Cash", "Gaji", "900"))
	gone := mustRecord(t, store, expense("Cash", "Pajak", "90"))
	assertBalance(t, store, "Cash", "810")

	require.NoError(t, store.DeleteTransaction(ctx, gone.ID))
	assertBalance(t, store, "Cash", "900")

	_, err := store.GetTransaction(ctx, gone.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	err = store.DeleteTransaction(ctx, gone.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	assertBalance(t, store, "Cash", "900")

	_, err = store.GetTransaction(ctx, keep.ID)
	require.NoError(t, err)
}

func TestGetTransactionsFilter(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	early := income("Cash", "Gaji", "100")
	early.Date = at("2024-04-30 10:00")
	mustRecord(t, store, early)

	morning := expense("BCA", "Makanan", "20")
	morning.Date = at("2024-05-02 07:30")
	mustRecord(t, store, morning)

	evening := expense("Cash", "Makanan", "30")
	evening.Date = at("2024-05-02 19:15")
	mustRecord(t, store, evening)

	all, err := store.GetTransactions(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "19:15", all[0].Date.Format(model.TimeLayout), "newest first")
	assert.Equal(t, "2024-04-30", all[2].Date.Format(model.DateLayout))

	start := at("2024-05-01 00:00")
	inMay, err := store.GetTransactions(ctx, model.TransactionFilter{StartDate: &start})
	require.NoError(t, err)
	assert.Len(t, inMay, 2)

	cash, err := store.GetTransactions(ctx, model.TransactionFilter{Account: "Cash", Kind: model.KindExpense})
	require.NoError(t, err)
	require.Len(t, cash, 1)
	assert.True(t, cash[0].Amount.Equal(dec("30")))

	food, err := store.GetTransactions(ctx, model.TransactionFilter{Category: "Makanan"})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	page, err := store.GetTransactions(ctx, model.TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "07:30", page[0].Date.Format(model.TimeLayout))

	end := at("2024-04-01 00:00")
	_, err = store.GetTransactions(ctx, model.TransactionFilter{StartDate: &start, EndDate: &end})
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestBalanceInvariantAcrossOperations(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.CreateAccount(ctx, "BCA", dec("5000"), at("2024-01-01 00:00"))
	require.NoError(t, err)

	a := mustRecord(t, store, income("BCA", "Gaji", "3000"))
	b := mustRecord(t, store, expense("BCA", "Sewa", "1200"))
	c := mustRecord(t, store, expense("Cash", "Makanan", "75"))
	mustRecord(t, store, income("Cash", "Hadiah", "250"))

	_, err = store.EditTransaction(ctx, a.ID, income("BCA", "Gaji", "3500"))
	require.NoError(t, err)
	_, err = store.EditTransaction(ctx, c.ID, expense("BCA", "Makanan", "80"))
	require.NoError(t, err)
	require.NoError(t, store.DeleteTransaction(ctx, b.ID))

	// opening + income - expense
	assertBalance(t, store, "BCA", "8420")
	assertBalance(t, store, "Cash", "250")

	derived, err := store.DerivedBalances(ctx)
	require.NoError(t, err)
	bca, err := store.GetAccountByName(ctx, "BCA")
	require.NoError(t, err)
	assert.True(t, derived[bca.ID].Equal(dec("8420")))
	assertReconciled(t, store)
}
