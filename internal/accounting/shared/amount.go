package shared

import "github.com/shopspring/decimal"

// AmountScale is the number of decimal places kept on stored amounts.
const AmountScale = 2

// RoundAmount rounds half away from zero to AmountScale places.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// SumAmounts adds the supplied amounts.
func SumAmounts(values ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, values...)
}
