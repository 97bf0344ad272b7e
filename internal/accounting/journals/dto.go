package journals

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// EntryInput describes a journal line.
type EntryInput struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty" validate:"max=500"`
}

// CreateInput groups fields required to create a journal.
type CreateInput struct {
	Date        time.Time    `json:"date" validate:"required"`
	Description string       `json:"description" validate:"max=500"`
	ReferenceNo string       `json:"reference_no,omitempty" validate:"max=100"`
	Entries     []EntryInput `json:"entries" validate:"dive"`
}

// Meta tags a journal with the document that produced it.
type Meta struct {
	SourceType string `json:"source_type,omitempty" validate:"max=50"`
	SourceID   string `json:"source_id,omitempty" validate:"max=100"`
}

// Linked reports whether the journal carries a source reference.
func (m Meta) Linked() bool {
	return m.SourceType != "" && m.SourceID != ""
}

// Validate ensures the input satisfies the double-entry rules that need no store access.
func (in CreateInput) Validate() error {
	if err := shared.ValidateStruct("journal", in); err != nil {
		return err
	}
	if len(in.Entries) < 2 {
		return shared.Invalid("journal", nil, shared.ErrTooFewLines, "got %d", len(in.Entries))
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, e := range in.Entries {
		line := idx + 1
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return shared.Invalid("journal", nil, shared.ErrInvalidLine, "line %d negative amount", line)
		}
		if e.Debit.IsPositive() == e.Credit.IsPositive() {
			return shared.Invalid("journal", nil, shared.ErrInvalidLine, "line %d needs exactly one of debit or credit", line)
		}
		if !e.Debit.Equal(shared.RoundAmount(e.Debit)) || !e.Credit.Equal(shared.RoundAmount(e.Credit)) {
			return shared.Invalid("journal", nil, shared.ErrInvalidLine, "line %d has more than %d decimals", line, shared.AmountScale)
		}
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	if !debit.Equal(credit) {
		return shared.Invalid("journal", nil, shared.ErrUnbalanced, "debit %s credit %s", debit.StringFixed(shared.AmountScale), credit.StringFixed(shared.AmountScale))
	}
	return nil
}

// Validate checks field lengths.
func (m Meta) Validate() error {
	if (m.SourceType == "") != (m.SourceID == "") {
		return shared.Invalid("journal", nil, shared.ErrInvalidInput, "source type and id go together")
	}
	return shared.ValidateStruct("journal", m)
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	// Date of the reversing journal; the original date, moved to the next open month, when nil.
	Date *time.Time `json:"date,omitempty"`
	Memo string     `json:"memo,omitempty" validate:"max=500"`
}

// PostOptions tunes PostInTx for callers that own the surrounding transaction.
type PostOptions struct {
	Meta Meta
	// SkipPeriodGuard lets year-end closing post into a closed December.
	SkipPeriodGuard bool
}
