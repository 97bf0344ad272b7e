package assets

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
)

// Method enumerates depreciation methods.
type Method string

const (
	MethodStraightLine     Method = "STRAIGHT_LINE"
	MethodDecliningBalance Method = "DECLINING_BALANCE"
)

// Status enumerates asset lifecycle values.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDisposed Status = "DISPOSED"
)

// Asset is a fixed asset depreciated over its useful life.
type Asset struct {
	ID                      int64            `json:"id"`
	TenantID                uuid.UUID        `json:"tenant_id"`
	Number                  string           `json:"number"`
	Name                    string           `json:"name"`
	Category                string           `json:"category,omitempty"`
	PurchaseDate            time.Time        `json:"purchase_date"`
	PurchasePrice           decimal.Decimal  `json:"purchase_price"`
	ResidualValue           decimal.Decimal  `json:"residual_value"`
	UsefulLifeMonths        int              `json:"useful_life_months"`
	Method                  Method           `json:"method"`
	AssetAccountID          int64            `json:"asset_account_id"`
	ExpenseAccountID        int64            `json:"expense_account_id"`
	AccumulatedAccountID    int64            `json:"accumulated_account_id"`
	AccumulatedDepreciation decimal.Decimal  `json:"accumulated_depreciation"`
	BookValue               decimal.Decimal  `json:"book_value"`
	Status                  Status           `json:"status"`
	DisposalDate            *time.Time       `json:"disposal_date,omitempty"`
	DisposalAmount          *decimal.Decimal `json:"disposal_amount,omitempty"`
	DisposalJournalID       *int64           `json:"disposal_journal_id,omitempty"`
	CreatedBy               int64            `json:"created_by"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// Depreciable returns the book value still above residual value.
func (a Asset) Depreciable() decimal.Decimal {
	return a.BookValue.Sub(a.ResidualValue)
}

// StartKey is the first depreciable period, the purchase month.
func (a Asset) StartKey() periods.Key {
	return periods.KeyFor(a.PurchaseDate)
}

// Depreciation records the amount expensed for one asset in one calendar month.
type Depreciation struct {
	ID        int64           `json:"id"`
	AssetID   int64           `json:"asset_id"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
	JournalID int64           `json:"journal_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// Key returns the calendar period of the row.
func (d Depreciation) Key() periods.Key {
	return periods.MonthKey(d.Year, d.Month)
}

// DisposalResult describes a completed disposal.
type DisposalResult struct {
	Asset    Asset            `json:"asset"`
	Journal  journals.Journal `json:"journal"`
	GainLoss decimal.Decimal  `json:"gain_loss"`
}

// RunFailure reports an asset the bulk run could not depreciate.
type RunFailure struct {
	AssetID int64  `json:"asset_id"`
	Number  string `json:"number"`
	Error   string `json:"error"`
}

// RunResult summarises a bulk depreciation run for one period.
type RunResult struct {
	Period      periods.Key     `json:"period"`
	Recorded    []Depreciation  `json:"recorded"`
	Skipped     int             `json:"skipped"`
	Failed      []RunFailure    `json:"failed,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ListFilter narrows asset listings.
type ListFilter struct {
	Status Status
}

// FormatNumber renders the human-readable asset number.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("FA/%04d/%04d", year, seq)
}
