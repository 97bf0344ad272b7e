package close

import (
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
)

// SourceYearEnd tags year-end closing journals; the source id is the closed year.
const SourceYearEnd = "YEAR_END_CLOSING"

// YearEndResult describes a completed year-end close.
type YearEndResult struct {
	Year      int             `json:"year"`
	NetIncome decimal.Decimal `json:"net_income"`
	// Journal is nil when no income statement account carried a balance.
	Journal *journals.Journal `json:"journal,omitempty"`
	Periods []periods.Period  `json:"periods"`
}
