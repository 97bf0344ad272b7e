package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
)

// Aggregation modes of a trial balance.
const (
	ModeRange = "range"
	ModeAsOf  = "as_of"
)

// TrialBalanceLine is one account row of the trial balance.
type TrialBalanceLine struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"type"`
	Debit     decimal.Decimal      `json:"debit"`
	Credit    decimal.Decimal      `json:"credit"`
	Balance   decimal.Decimal      `json:"balance"`
}

// TrialBalanceGroup aggregates lines sharing the leading code segment.
type TrialBalanceGroup struct {
	Key    string          `json:"key"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalance lists every account with posted activity.
type TrialBalance struct {
	Mode        string              `json:"mode"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     time.Time           `json:"end_date"`
	Accounts    []TrialBalanceLine  `json:"accounts"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	IsBalanced  bool                `json:"is_balanced"`
}

// Line returns the row of accountID.
func (tb TrialBalance) Line(accountID int64) (TrialBalanceLine, bool) {
	for _, line := range tb.Accounts {
		if line.AccountID == accountID {
			return line, true
		}
	}
	return TrialBalanceLine{}, false
}

// GroupKey returns the leading segment of a hierarchical code such as "1-1100".
func GroupKey(code string) string {
	if idx := strings.IndexAny(code, "-."); idx > 0 {
		return code[:idx]
	}
	return code
}

// BuildTrialBalance converts account balances into trial balance data.
func BuildTrialBalance(mode string, start *time.Time, end time.Time, balances []AccountBalance) TrialBalance {
	tb := TrialBalance{
		Mode:        mode,
		StartDate:   start,
		EndDate:     end,
		Accounts:    make([]TrialBalanceLine, 0, len(balances)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	groups := make(map[string]*TrialBalanceGroup)
	var keys []string
	for _, acc := range balances {
		tb.Accounts = append(tb.Accounts, TrialBalanceLine{
			AccountID: acc.AccountID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      acc.Type,
			Debit:     acc.Debit,
			Credit:    acc.Credit,
			Balance:   acc.Net(),
		})
		tb.TotalDebit = tb.TotalDebit.Add(acc.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(acc.Credit)

		key := GroupKey(acc.Code)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Debit = grp.Debit.Add(acc.Debit)
		grp.Credit = grp.Credit.Add(acc.Credit)
	}
	sort.Slice(tb.Accounts, func(i, j int) bool { return tb.Accounts[i].Code < tb.Accounts[j].Code })
	sort.Strings(keys)
	for _, key := range keys {
		tb.Groups = append(tb.Groups, *groups[key])
	}
	tb.IsBalanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb
}
