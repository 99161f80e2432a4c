package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Period is an inclusive range of calendar dates.
type Period struct {
	Start time.Time
	End   time.Time
}

// DayPeriod covers the single calendar day of t.
func DayPeriod(t time.Time) Period {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Period{Start: d, End: d}
}

// MonthPeriod covers every day of the given month.
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// YearPeriod covers January 1st through December 31st of year.
func YearPeriod(year int) Period {
	return Period{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Validate ensures the period is not inverted.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("period end %s is before start %s", p.End.Format(DateLayout), p.Start.Format(DateLayout))
	}
	return nil
}

// Contains reports whether the calendar date of t lies within the period.
func (p Period) Contains(t time.Time) bool {
	d := t.Format(DateLayout)
	return d >= p.Start.Format(DateLayout) && d <= p.End.Format(DateLayout)
}

// String renders the period as "start..end".
func (p Period) String() string {
	return p.Start.Format(DateLayout) + ".." + p.End.Format(DateLayout)
}

// DailySummary groups one calendar day of transactions with its totals.
type DailySummary struct {
	Date         time.Time
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Transactions []Transaction
}

// Net returns income minus expense for the day.
func (d DailySummary) Net() decimal.Decimal {
	return d.Income.Sub(d.Expense)
}

// CategoryTotal is the sum of one category's transactions of one kind within a period.
type CategoryTotal struct {
	Total    decimal.Decimal
	Share    decimal.Decimal // Fraction of the kind's total, 0..1
	Category string
	Kind     Kind
	Count    int
}

// PeriodTotals sums income and expense over a period.
type PeriodTotals struct {
	Period  Period
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// Net returns income minus expense for the period.
func (p PeriodTotals) Net() decimal.Decimal {
	return p.Income.Sub(p.Expense)
}
