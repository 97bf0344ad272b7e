package assets

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// SourceDepreciation tags depreciation journals.
const SourceDepreciation = "ASSET_DEPRECIATION"

// MonthlyAmount computes the depreciation for the next period of a, given how many periods are
// already recorded. Straight-line amounts are rounded to cents and the final useful-life month
// takes the exact remainder. Declining balance applies 2/life to the current book value.
// Both are clamped to book value minus residual value.
func MonthlyAmount(a Asset, recorded int) (decimal.Decimal, error) {
	remaining := a.Depreciable()
	if !remaining.IsPositive() {
		return decimal.Zero, shared.Invalid("asset", a.Number, shared.ErrFullyDepreciated, "book value %s", a.BookValue.StringFixed(shared.AmountScale))
	}
	life := decimal.NewFromInt(int64(a.UsefulLifeMonths))
	var amount decimal.Decimal
	switch a.Method {
	case MethodStraightLine:
		if recorded+1 >= a.UsefulLifeMonths {
			return remaining, nil
		}
		amount = shared.RoundAmount(a.PurchasePrice.Sub(a.ResidualValue).Div(life))
	case MethodDecliningBalance:
		rate := decimal.NewFromInt(2).Div(life)
		amount = shared.RoundAmount(a.BookValue.Mul(rate))
	default:
		return decimal.Zero, shared.Invalid("asset", a.Number, shared.ErrInvalidInput, "unknown method %s", a.Method)
	}
	if amount.GreaterThan(remaining) {
		amount = remaining
	}
	if !amount.IsPositive() {
		return decimal.Zero, shared.Invalid("asset", a.Number, shared.ErrFullyDepreciated, "amount rounds to zero")
	}
	return amount, nil
}

// ScheduleLine is one projected month of an asset's depreciation.
type ScheduleLine struct {
	Period      periods.Key     `json:"period"`
	Amount      decimal.Decimal `json:"amount"`
	Accumulated decimal.Decimal `json:"accumulated"`
	BookValue   decimal.Decimal `json:"book_value"`
}

// ProjectSchedule lists the remaining depreciation of a from the month after last, or from the
// purchase month when nothing is recorded yet. The projection stops at residual value.
func ProjectSchedule(a Asset, recorded int, last *periods.Key) []ScheduleLine {
	key := a.StartKey()
	if last != nil {
		key = nextMonth(*last)
	}
	var lines []ScheduleLine
	for a.Status == StatusActive && len(lines) < a.UsefulLifeMonths*4 {
		amount, err := MonthlyAmount(a, recorded)
		if err != nil {
			break
		}
		a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(amount)
		a.BookValue = a.PurchasePrice.Sub(a.AccumulatedDepreciation)
		recorded++
		lines = append(lines, ScheduleLine{
			Period:      key,
			Amount:      amount,
			Accumulated: a.AccumulatedDepreciation,
			BookValue:   a.BookValue,
		})
		key = nextMonth(key)
	}
	return lines
}

// depreciationInput builds the posting Dr expense / Cr accumulated depreciation dated at the
// last day of the period.
func depreciationInput(a Asset, key periods.Key, amount decimal.Decimal) (journals.CreateInput, journals.Meta) {
	_, end := key.Bounds()
	memo := fmt.Sprintf("Depreciation %s %s", a.Number, key)
	return journals.CreateInput{
			Date:        end,
			Description: memo,
			ReferenceNo: a.Number,
			Entries: []journals.EntryInput{
				{AccountID: a.ExpenseAccountID, Debit: amount, Description: memo},
				{AccountID: a.AccumulatedAccountID, Credit: amount, Description: memo},
			},
		}, journals.Meta{
			SourceType: SourceDepreciation,
			SourceID:   fmt.Sprintf("%d:%s", a.ID, key),
		}
}

func nextMonth(k periods.Key) periods.Key {
	if k.Month >= 12 {
		return periods.MonthKey(k.Year+1, 1)
	}
	return periods.MonthKey(k.Year, k.Month+1)
}

func before(a, b periods.Key) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.Month < b.Month
}
