package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
)

// ProfitAndLossAccount represents a revenue, COGS or expense account summary.
type ProfitAndLossAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	StartDate   time.Time            `json:"start_date"`
	EndDate     time.Time            `json:"end_date"`
	Revenue     ProfitAndLossSection `json:"revenue"`
	COGS        ProfitAndLossSection `json:"cogs"`
	Expense     ProfitAndLossSection `json:"expense"`
	GrossProfit decimal.Decimal      `json:"gross_profit"`
	NetIncome   decimal.Decimal      `json:"net_income"`
}

// BuildProfitAndLoss aggregates period-scoped balances into revenue, COGS and expense sections.
func BuildProfitAndLoss(start, end time.Time, balances []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue", Total: decimal.Zero}
	cogs := ProfitAndLossSection{Label: "Cost of Goods Sold", Total: decimal.Zero}
	expense := ProfitAndLossSection{Label: "Expense", Total: decimal.Zero}

	for _, acc := range balances {
		row := ProfitAndLossAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Amount: acc.Net()}
		var section *ProfitAndLossSection
		switch acc.Type {
		case accounts.AccountTypeRevenue:
			section = &revenue
		case accounts.AccountTypeCOGS:
			section = &cogs
		case accounts.AccountTypeExpense:
			section = &expense
		default:
			continue
		}
		section.Accounts = append(section.Accounts, row)
		section.Total = section.Total.Add(row.Amount)
	}

	for _, section := range []*ProfitAndLossSection{&revenue, &cogs, &expense} {
		rows := section.Accounts
		sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	}

	gross := revenue.Total.Sub(cogs.Total)
	return ProfitAndLoss{
		StartDate:   start,
		EndDate:     end,
		Revenue:     revenue,
		COGS:        cogs,
		Expense:     expense,
		GrossProfit: gross,
		NetIncome:   gross.Sub(expense.Total),
	}
}

// NetIncome returns revenue minus COGS and expense over the balances.
func NetIncome(balances []AccountBalance) decimal.Decimal {
	total := decimal.Zero
	for _, acc := range balances {
		switch acc.Type {
		case accounts.AccountTypeRevenue:
			total = total.Add(acc.Net())
		case accounts.AccountTypeCOGS, accounts.AccountTypeExpense:
			total = total.Sub(acc.Net())
		}
	}
	return total
}
