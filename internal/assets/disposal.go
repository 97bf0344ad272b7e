package assets

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
)

// SourceDisposal tags disposal journals.
const SourceDisposal = "ASSET_DISPOSAL"

// disposalInput derives the disposal posting. Proceeds and accumulated depreciation are debited
// when non-zero, the asset is credited at cost, and the difference to book value is booked as a
// gain (credit) or loss (debit).
func disposalInput(a Asset, in DisposeInput, cashAccountID, gainLossAccountID int64) (journals.CreateInput, decimal.Decimal) {
	memo := fmt.Sprintf("Disposal %s", a.Number)
	gainLoss := in.Proceeds.Sub(a.BookValue)
	var entries []journals.EntryInput
	if in.Proceeds.IsPositive() {
		entries = append(entries, journals.EntryInput{AccountID: cashAccountID, Debit: in.Proceeds, Description: memo})
	}
	if a.AccumulatedDepreciation.IsPositive() {
		entries = append(entries, journals.EntryInput{AccountID: a.AccumulatedAccountID, Debit: a.AccumulatedDepreciation, Description: memo})
	}
	entries = append(entries, journals.EntryInput{AccountID: a.AssetAccountID, Credit: a.PurchasePrice, Description: memo})
	switch {
	case gainLoss.IsPositive():
		entries = append(entries, journals.EntryInput{AccountID: gainLossAccountID, Credit: gainLoss, Description: "Gain on " + memo})
	case gainLoss.IsNegative():
		entries = append(entries, journals.EntryInput{AccountID: gainLossAccountID, Debit: gainLoss.Neg(), Description: "Loss on " + memo})
	}
	return journals.CreateInput{
		Date:        in.Date,
		Description: memo,
		ReferenceNo: a.Number,
		Entries:     entries,
	}, gainLoss
}
