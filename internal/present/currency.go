// Package present turns controller state into display values and renders
// them for a terminal.
package present

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyFormatter renders amounts with two decimals and thousands
// separators. With a Symbol the result looks like "$1,234.50"; without one the
// ISO code is used as a prefix, "MAD 1,234.50".
type CurrencyFormatter struct {
	Code   string
	Symbol string
}

// NewCurrencyFormatter formats with symbol when set, otherwise with the ISO code.
func NewCurrencyFormatter(code, symbol string) CurrencyFormatter {
	return CurrencyFormatter{Code: strings.ToUpper(strings.TrimSpace(code)), Symbol: symbol}
}

// Format renders amount with two decimals and grouped thousands.
func (f CurrencyFormatter) Format(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	s := groupThousands(amount.Abs().StringFixed(2))

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	switch {
	case f.Symbol != "":
		b.WriteString(f.Symbol)
	case f.Code != "":
		b.WriteString(f.Code)
		b.WriteByte(' ')
	}
	b.WriteString(s)
	return b.String()
}

func groupThousands(fixed string) string {
	intPart, frac, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return fixed
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
