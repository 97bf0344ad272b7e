package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	AsOf        time.Time           `json:"as_of"`
	Assets      BalanceSheetSection `json:"assets"`
	Liabilities BalanceSheetSection `json:"liabilities"`
	Equity      BalanceSheetSection `json:"equity"`
	// UnclosedEarnings is the income statement result not yet moved to retained earnings.
	UnclosedEarnings          decimal.Decimal `json:"unclosed_earnings"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	IsBalanced                bool            `json:"is_balanced"`
}

// BuildBalanceSheet aggregates cumulative balances into assets, liabilities, and equity. Income
// statement accounts are not listed; their net result is reported as unclosed earnings inside equity.
func BuildBalanceSheet(asOf time.Time, balances []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}

	for _, acc := range balances {
		row := BalanceSheetAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Balance: acc.Net()}
		var section *BalanceSheetSection
		switch acc.Type {
		case accounts.AccountTypeAsset:
			section = &assets
		case accounts.AccountTypeLiability:
			section = &liabilities
		case accounts.AccountTypeEquity:
			section = &equity
		default:
			continue
		}
		section.Accounts = append(section.Accounts, row)
		section.Total = section.Total.Add(row.Balance)
	}

	for _, section := range []*BalanceSheetSection{&assets, &liabilities, &equity} {
		rows := section.Accounts
		sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	}

	earnings := NetIncome(balances)
	equity.Total = equity.Total.Add(earnings)
	total := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		AsOf:                      asOf,
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		UnclosedEarnings:          earnings,
		TotalLiabilitiesAndEquity: total,
		IsBalanced:                assets.Total.Equal(total),
	}
}
