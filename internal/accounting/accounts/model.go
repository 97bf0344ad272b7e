package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeCOGS      AccountType = "COGS"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountTypes lists every type in statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeCOGS,
	AccountTypeExpense,
}

// Valid reports whether t is a known type.
func (t AccountType) Valid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DebitNormal reports whether the type increases on the debit side.
func (t AccountType) DebitNormal() bool {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeCOGS:
		return true
	default:
		return false
	}
}

// IncomeStatement reports whether the type is period scoped and zeroed by year-end closing.
func (t AccountType) IncomeStatement() bool {
	switch t {
	case AccountTypeRevenue, AccountTypeCOGS, AccountTypeExpense:
		return true
	default:
		return false
	}
}

// NormalBalance nets debit and credit on the normal side of the type.
func (t AccountType) NormalBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Account models a chart of accounts node.
type Account struct {
	ID        int64           `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Category  string          `json:"category,omitempty"`
	ParentID  *int64          `json:"parent_id,omitempty"`
	IsSystem  bool            `json:"is_system"`
	IsActive  bool            `json:"is_active"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Totals carries aggregated posted debit and credit for one account.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Balance is the computed normal-side balance of an account.
type Balance struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Type      AccountType     `json:"type"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
	AsOf      *time.Time      `json:"as_of,omitempty"`
}

// ListFilter narrows account listings.
type ListFilter struct {
	Type       AccountType
	ActiveOnly bool
}
