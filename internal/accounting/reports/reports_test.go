package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	_ "github.com/rasyiqi-code/Counting-sub001/testing"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestBuildTrialBalance(t *testing.T) {
	balances := []AccountBalance{
		{AccountID: 2, Code: "1-1200", Name: "Bank", Type: accounts.AccountTypeAsset, Debit: d("100"), Credit: d("50")},
		{AccountID: 1, Code: "1-1100", Name: "Kas", Type: accounts.AccountTypeAsset, Debit: d("200"), Credit: d("150")},
		{AccountID: 3, Code: "2-1000", Name: "Accounts Payable", Type: accounts.AccountTypeLiability, Debit: d("10"), Credit: d("110")},
	}
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tb := BuildTrialBalance(ModeAsOf, nil, end, balances)
	if len(tb.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tb.Groups))
	}
	if tb.Accounts[0].Code != "1-1100" {
		t.Fatalf("expected accounts ordered by code, got %s first", tb.Accounts[0].Code)
	}
	if !tb.TotalDebit.Equal(d("310")) {
		t.Fatalf("unexpected total debit: %v", tb.TotalDebit)
	}
	if !tb.TotalCredit.Equal(d("310")) {
		t.Fatalf("unexpected total credit: %v", tb.TotalCredit)
	}
	if !tb.IsBalanced {
		t.Fatalf("expected balanced trial balance")
	}
	line, ok := tb.Line(3)
	if !ok || !line.Balance.Equal(d("100")) {
		t.Fatalf("expected credit-normal payable balance 100, got %v", line.Balance)
	}
}

func TestBuildTrialBalanceDetectsImbalance(t *testing.T) {
	balances := []AccountBalance{
		{AccountID: 1, Code: "1-1100", Type: accounts.AccountTypeAsset, Debit: d("0.10"), Credit: d("0")},
		{AccountID: 2, Code: "3-1000", Type: accounts.AccountTypeEquity, Debit: d("0"), Credit: d("0.1")},
		{AccountID: 3, Code: "3-2000", Type: accounts.AccountTypeEquity, Debit: d("0"), Credit: d("0.01")},
	}
	tb := BuildTrialBalance(ModeRange, nil, time.Now(), balances)
	if tb.IsBalanced {
		t.Fatalf("expected imbalance of 0.01 to be detected")
	}
}

func TestBuildProfitAndLoss(t *testing.T) {
	balances := []AccountBalance{
		{Code: "4-1000", Name: "Sales", Type: accounts.AccountTypeRevenue, Debit: d("0"), Credit: d("1200")},
		{Code: "5-1000", Name: "COGS", Type: accounts.AccountTypeCOGS, Debit: d("300"), Credit: d("0")},
		{Code: "6-1000", Name: "Marketing", Type: accounts.AccountTypeExpense, Debit: d("250"), Credit: d("50")},
		{Code: "1-1100", Name: "Kas", Type: accounts.AccountTypeAsset, Debit: d("1200"), Credit: d("0")},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	pl := BuildProfitAndLoss(start, start.AddDate(0, 1, -1), balances)
	if !pl.Revenue.Total.Equal(d("1200")) {
		t.Fatalf("expected revenue total 1200 got %v", pl.Revenue.Total)
	}
	if !pl.GrossProfit.Equal(d("900")) {
		t.Fatalf("expected gross profit 900 got %v", pl.GrossProfit)
	}
	if !pl.Expense.Total.Equal(d("200")) {
		t.Fatalf("expected expense total 200 got %v", pl.Expense.Total)
	}
	if !pl.NetIncome.Equal(d("700")) {
		t.Fatalf("expected net income 700 got %v", pl.NetIncome)
	}
	if !NetIncome(balances).Equal(pl.NetIncome) {
		t.Fatalf("NetIncome disagrees with profit and loss")
	}
}

func TestBuildBalanceSheetFoldsUnclosedEarnings(t *testing.T) {
	balances := []AccountBalance{
		{Code: "1-1100", Name: "Kas", Type: accounts.AccountTypeAsset, Debit: d("1700"), Credit: d("0")},
		{Code: "2-1000", Name: "AP", Type: accounts.AccountTypeLiability, Debit: d("0"), Credit: d("200")},
		{Code: "3-1000", Name: "Modal", Type: accounts.AccountTypeEquity, Debit: d("0"), Credit: d("1000")},
		{Code: "4-1000", Name: "Sales", Type: accounts.AccountTypeRevenue, Debit: d("0"), Credit: d("700")},
		{Code: "6-1000", Name: "Rent", Type: accounts.AccountTypeExpense, Debit: d("200"), Credit: d("0")},
	}

	bs := BuildBalanceSheet(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), balances)
	if !bs.Assets.Total.Equal(d("1700")) {
		t.Fatalf("expected assets 1700 got %v", bs.Assets.Total)
	}
	if !bs.UnclosedEarnings.Equal(d("500")) {
		t.Fatalf("expected unclosed earnings 500 got %v", bs.UnclosedEarnings)
	}
	if !bs.Equity.Total.Equal(d("1500")) {
		t.Fatalf("expected equity 1500 got %v", bs.Equity.Total)
	}
	if !bs.IsBalanced {
		t.Fatalf("expected balance sheet to balance, L+E %v", bs.TotalLiabilitiesAndEquity)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(d("1234.5"), "USD"); got != "$1,234.50" {
		t.Fatalf("unexpected USD format %q", got)
	}
	if got := FormatAmount(d("-10"), "EUR"); got != "-10.00 €" && got != "-€10.00" {
		t.Fatalf("unexpected EUR format %q", got)
	}
	if got := FormatAmount(d("123456789012345678.90"), "USD"); got != "$123,456,789,012,345,678.90" {
		t.Fatalf("unexpected format beyond int64 minor units %q", got)
	}
	if got := FormatAmount(d("-98765432109876543210"), "USD"); got != "-$98,765,432,109,876,543,210.00" {
		t.Fatalf("unexpected negative format beyond int64 minor units %q", got)
	}
	if got := FormatAmount(d("0.004"), "USD"); got != "$0.00" {
		t.Fatalf("unexpected rounding %q", got)
	}
}
