package cli

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/eling/internal/model"
)

// FormatMoney renders an amount the Indonesian way: "." between thousands and
// "," before cents, which are shown only when present. currency, if set,
// prefixes the number.
func FormatMoney(amount decimal.Decimal, currency string) string {
	negative := amount.IsNegative()
	abs := amount.Abs()

	whole := abs.Truncate(0)
	cents := abs.Sub(whole)

	out := groupThousands(whole.String())
	if !cents.IsZero() {
		out += "," + abs.StringFixed(2)[len(whole.String())+1:]
	}

	if currency != "" {
		out = currency + " " + out
	}
	if negative {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatSigned renders a transaction amount with its direction: "+" and the
// income color for income, "-" and the expense color for expenses.
func FormatSigned(kind model.Kind, amount decimal.Decimal, currency string) string {
	sign := "+"
	if kind == model.KindExpense {
		sign = "-"
	}
	return KindStyle(kind).Render(sign + FormatMoney(amount.Abs(), currency))
}

// FormatBalance colors a balance by sign.
func FormatBalance(amount decimal.Decimal, currency string) string {
	text := FormatMoney(amount, currency)
	if amount.IsNegative() {
		return ExpenseStyle.Render(text)
	}
	return text
}
