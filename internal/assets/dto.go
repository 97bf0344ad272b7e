package assets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// RegisterInput describes a newly acquired asset.
type RegisterInput struct {
	Name                 string          `json:"name" validate:"required,max=200"`
	Category             string          `json:"category,omitempty" validate:"max=100"`
	PurchaseDate         time.Time       `json:"purchase_date" validate:"required"`
	PurchasePrice        decimal.Decimal `json:"purchase_price"`
	ResidualValue        decimal.Decimal `json:"residual_value"`
	UsefulLifeMonths     int             `json:"useful_life_months" validate:"required,gt=0,lte=1200"`
	Method               Method          `json:"method" validate:"required,oneof=STRAIGHT_LINE DECLINING_BALANCE"`
	AssetAccountID       int64           `json:"asset_account_id" validate:"required,gt=0"`
	ExpenseAccountID     int64           `json:"expense_account_id" validate:"required,gt=0"`
	AccumulatedAccountID int64           `json:"accumulated_account_id" validate:"required,gt=0"`
}

// Validate checks field and amount rules.
func (in RegisterInput) Validate() error {
	if err := shared.ValidateStruct("asset", in); err != nil {
		return err
	}
	if !in.PurchasePrice.IsPositive() {
		return shared.Invalid("asset", nil, shared.ErrInvalidInput, "purchase price must be positive")
	}
	if in.ResidualValue.IsNegative() || in.ResidualValue.GreaterThanOrEqual(in.PurchasePrice) {
		return shared.Invalid("asset", nil, shared.ErrInvalidInput, "residual value must be within [0, purchase price)")
	}
	if !in.PurchasePrice.Equal(shared.RoundAmount(in.PurchasePrice)) || !in.ResidualValue.Equal(shared.RoundAmount(in.ResidualValue)) {
		return shared.Invalid("asset", nil, shared.ErrInvalidInput, "amounts carry at most %d decimals", shared.AmountScale)
	}
	return nil
}

// DisposeInput describes the sale or write-off of an asset.
type DisposeInput struct {
	Date     time.Time       `json:"date" validate:"required"`
	Proceeds decimal.Decimal `json:"proceeds"`
	// CashAccountID receives the proceeds; the CASH mapping when zero.
	CashAccountID int64 `json:"cash_account_id,omitempty" validate:"gte=0"`
	// GainLossAccountID books the result; the ASSET_DISPOSAL mapping when zero.
	GainLossAccountID int64 `json:"gain_loss_account_id,omitempty" validate:"gte=0"`
}

// Validate checks field and amount rules.
func (in DisposeInput) Validate() error {
	if err := shared.ValidateStruct("asset", in); err != nil {
		return err
	}
	if in.Proceeds.IsNegative() || !in.Proceeds.Equal(shared.RoundAmount(in.Proceeds)) {
		return shared.Invalid("asset", nil, shared.ErrInvalidInput, "proceeds must be a non-negative amount with at most %d decimals", shared.AmountScale)
	}
	return nil
}
