package reports

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no ledger currency is configured.
const DefaultCurrency = money.IDR

// FormatAmount renders amount with the symbol, separators and fraction digits of currency.
// Amounts are grouped from their decimal digits so values beyond the int64 minor-unit range
// keep every digit.
func FormatAmount(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	f := money.New(0, currency).Currency().Formatter()
	minor := amount.Shift(int32(f.Fraction)).Round(0)
	return format(f, minor.Abs().String(), minor.Sign() < 0)
}

// format applies the layout of money.Formatter.Format to a string of minor-unit digits.
func format(f *money.Formatter, digits string, negative bool) string {
	if len(digits) <= f.Fraction {
		digits = strings.Repeat("0", f.Fraction-len(digits)+1) + digits
	}
	if f.Thousand != "" {
		for i := len(digits) - f.Fraction - 3; i > 0; i -= 3 {
			digits = digits[:i] + f.Thousand + digits[i:]
		}
	}
	if f.Fraction > 0 {
		digits = digits[:len(digits)-f.Fraction] + f.Decimal + digits[len(digits)-f.Fraction:]
	}
	out := strings.Replace(f.Template, "1", digits, 1)
	out = strings.Replace(out, "$", f.Grapheme, 1)
	if negative {
		out = "-" + out
	}
	return out
}
