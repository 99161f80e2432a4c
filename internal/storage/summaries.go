package storage

import (
	"context"
	"sort"

	"github.com/Veraticus/eling/internal/model"
	"github.com/shopspring/decimal"
)

// Opening balances are not income: every summary below leaves Initial Balance
// transactions out of its totals.

// DailySummaries groups the transactions of a period by calendar day, newest
// day first, with each day's income and expense totals.
func (s *SQLiteStorage) DailySummaries(ctx context.Context, period model.Period) ([]model.DailySummary, error) {
	txns, err := s.periodTransactions(ctx, period)
	if err != nil {
		return nil, err
	}

	var days []model.DailySummary
	index := make(map[string]int)
	for _, txn := range txns {
		key := txn.Date.Format(model.DateLayout)
		i, ok := index[key]
		if !ok {
			day := model.DayPeriod(txn.Date)
			days = append(days, model.DailySummary{
				Date:    day.Start,
				Income:  decimal.Zero,
				Expense: decimal.Zero,
			})
			i = len(days) - 1
			index[key] = i
		}

		days[i].Transactions = append(days[i].Transactions, txn)
		if txn.IsInitialBalance() {
			continue
		}
		switch txn.Kind {
		case model.KindIncome:
			days[i].Income = days[i].Income.Add(txn.Amount)
		case model.KindExpense:
			days[i].Expense = days[i].Expense.Add(txn.Amount)
		}
	}

	sort.SliceStable(days, func(a, b int) bool {
		return days[a].Date.After(days[b].Date)
	})
	return days, nil
}

// CategorySummary totals each category per kind over a period, largest first.
// Share is the category's fraction of its kind's total.
func (s *SQLiteStorage) CategorySummary(ctx context.Context, period model.Period) ([]model.CategoryTotal, error) {
	txns, err := s.periodTransactions(ctx, period)
	if err != nil {
		return nil, err
	}

	type key struct {
		category string
		kind     model.Kind
	}
	totals := make(map[key]*model.CategoryTotal)
	kindTotals := make(map[model.Kind]decimal.Decimal)

	for _, txn := range txns {
		if txn.IsInitialBalance() {
			continue
		}
		k := key{category: txn.Category, kind: txn.Kind}
		ct, ok := totals[k]
		if !ok {
			ct = &model.CategoryTotal{Category: txn.Category, Kind: txn.Kind, Total: decimal.Zero}
			totals[k] = ct
		}
		ct.Total = ct.Total.Add(txn.Amount)
		ct.Count++
		kindTotals[txn.Kind] = kindTotals[txn.Kind].Add(txn.Amount)
	}

	result := make([]model.CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		ct.Share = decimal.Zero
		if whole := kindTotals[ct.Kind]; whole.IsPositive() {
			ct.Share = ct.Total.DivRound(whole, 4)
		}
		result = append(result, *ct)
	}

	sort.Slice(result, func(a, b int) bool {
		if !result[a].Total.Equal(result[b].Total) {
			return result[a].Total.GreaterThan(result[b].Total)
		}
		if result[a].Kind != result[b].Kind {
			return result[a].Kind < result[b].Kind
		}
		return result[a].Category < result[b].Category
	})
	return result, nil
}

// PeriodTotals sums income and expense over a period.
func (s *SQLiteStorage) PeriodTotals(ctx context.Context, period model.Period) (*model.PeriodTotals, error) {
	txns, err := s.periodTransactions(ctx, period)
	if err != nil {
		return nil, err
	}

	totals := &model.PeriodTotals{Period: period, Income: decimal.Zero, Expense: decimal.Zero}
	for _, txn := range txns {
		if txn.IsInitialBalance() {
			continue
		}
		totals.Count++
		switch txn.Kind {
		case model.KindIncome:
			totals.Income = totals.Income.Add(txn.Amount)
		case model.KindExpense:
			totals.Expense = totals.Expense.Add(txn.Amount)
		}
	}
	return totals, nil
}

func (s *SQLiteStorage) periodTransactions(ctx context.Context, period model.Period) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	start, end := period.Start, period.End
	return queryTransactions(ctx, s.db, model.TransactionFilter{StartDate: &start, EndDate: &end})
}
