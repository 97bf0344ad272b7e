package journals_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/testing/ledgertest"
)

type line = ledgertest.Line

func capital(amount string) []line {
	return []line{{Code: "1-1000", Debit: amount}, {Code: "3-1000", Credit: amount}}
}

func TestCapitalInjectionBalancesTrialBalance(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	j := l.Post(t, ledgertest.Date(2024, time.January, 2), "Setoran modal", capital("1000000")...)
	assert.Equal(t, journals.JournalStatusPosted, j.Status)
	assert.Equal(t, "JV/2024/00001", j.Number)

	tb, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	assert.True(t, tb.TotalDebit.Equal(ledgertest.Amount("1000000")))
	assert.True(t, tb.TotalCredit.Equal(ledgertest.Amount("1000000")))

	kas, err := l.Accounts.Get(ctx, l.Scope, l.ID(t, "1-1000"))
	require.NoError(t, err)
	assert.True(t, kas.Balance.Equal(ledgertest.Amount("1000000")))
	modal, err := l.Accounts.Get(ctx, l.Scope, l.ID(t, "3-1000"))
	require.NoError(t, err)
	assert.True(t, modal.Balance.Equal(ledgertest.Amount("1000000")))

	balance, err := l.Accounts.Balance(ctx, l.Scope, l.ID(t, "1-1000"), nil)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(kas.Balance))
}

func TestPostTwiceFails(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	draft, err := l.Journals.Create(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.May, 3), "draft", capital("500")...), journals.Meta{})
	require.NoError(t, err)
	assert.Equal(t, journals.JournalStatusDraft, draft.Status)

	_, err = l.Journals.Post(ctx, l.Scope, draft.ID)
	require.NoError(t, err)

	_, err = l.Journals.Post(ctx, l.Scope, draft.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrState)
	assert.ErrorIs(t, err, shared.ErrJournalNotDraft)

	kas, err := l.Accounts.Get(ctx, l.Scope, l.ID(t, "1-1000"))
	require.NoError(t, err)
	assert.True(t, kas.Balance.Equal(ledgertest.Amount("500")))
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	date := ledgertest.Date(2024, time.May, 3)

	cases := []struct {
		name  string
		lines []line
		rule  error
	}{
		{"unbalanced", []line{{Code: "1-1000", Debit: "100"}, {Code: "3-1000", Credit: "90"}}, shared.ErrUnbalanced},
		{"single line", []line{{Code: "1-1000", Debit: "100"}}, shared.ErrTooFewLines},
		{"both sides", []line{{Code: "1-1000", Debit: "100", Credit: "100"}, {Code: "3-1000", Credit: "100"}}, shared.ErrInvalidLine},
		{"empty line", []line{{Code: "1-1000"}, {Code: "3-1000"}}, shared.ErrInvalidLine},
		{"negative", []line{{Code: "1-1000", Debit: "-100"}, {Code: "3-1000", Credit: "-100"}}, shared.ErrInvalidLine},
		{"three decimals", []line{{Code: "1-1000", Debit: "10.005"}, {Code: "3-1000", Credit: "10.005"}}, shared.ErrInvalidLine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Journals.Create(ctx, l.Scope, l.Input(t, date, tc.name, tc.lines...), journals.Meta{})
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.ErrorIs(t, err, tc.rule)
		})
	}

	list, err := l.Journals.List(ctx, l.Scope, journals.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRejectsUnknownAndInactiveAccounts(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	date := ledgertest.Date(2024, time.May, 3)

	in := l.Input(t, date, "unknown", capital("100")...)
	in.Entries[1].AccountID = 9999
	_, err := l.Journals.Create(ctx, l.Scope, in, journals.Meta{})
	assert.ErrorIs(t, err, shared.ErrAccountNotFound)

	inactive := false
	_, err = l.Accounts.Update(ctx, l.Scope, l.ID(t, "6-1000"), accounts.UpdateInput{IsActive: &inactive})
	require.NoError(t, err)
	_, err = l.Journals.Create(ctx, l.Scope, l.Input(t, date, "gaji",
		line{Code: "6-1000", Debit: "100"}, line{Code: "1-1000", Credit: "100"}), journals.Meta{})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestOnlyPostedJournalsReachReports(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	date := ledgertest.Date(2024, time.February, 1)

	l.Post(t, date, "modal", capital("1000")...)
	_, err := l.Journals.Create(ctx, l.Scope, l.Input(t, date, "draft", capital("300")...), journals.Meta{})
	require.NoError(t, err)
	voided := l.Post(t, date, "salah input", capital("200")...)
	_, err = l.Journals.Void(ctx, l.Scope, voided.ID, "duplicate")
	require.NoError(t, err)

	tb, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	kas, ok := tb.Line(l.ID(t, "1-1000"))
	require.True(t, ok)
	assert.True(t, kas.Debit.Equal(ledgertest.Amount("1000")))
	assert.True(t, kas.Balance.Equal(ledgertest.Amount("1000")))

	account, err := l.Accounts.Get(ctx, l.Scope, l.ID(t, "1-1000"))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(ledgertest.Amount("1000")))

	stored, err := l.Journals.Get(ctx, l.Scope, voided.ID)
	require.NoError(t, err)
	assert.Equal(t, journals.JournalStatusVoid, stored.Status)
	assert.Equal(t, "duplicate", stored.VoidReason)
	require.NotNil(t, stored.VoidedBy)
	assert.Equal(t, l.Scope.ActorID, *stored.VoidedBy)
}

func TestVoidRequiresPosted(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	draft, err := l.Journals.Create(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.May, 3), "draft", capital("100")...), journals.Meta{})
	require.NoError(t, err)
	_, err = l.Journals.Void(ctx, l.Scope, draft.ID, "")
	assert.ErrorIs(t, err, shared.ErrState)
	assert.ErrorIs(t, err, shared.ErrJournalNotPosted)

	_, err = l.Journals.Void(ctx, l.Scope, 4242, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReverseSwapsSidesOnce(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	original := l.Post(t, ledgertest.Date(2024, time.May, 10), "gaji", line{Code: "6-1000", Debit: "250"}, line{Code: "1-1000", Credit: "250"})
	reversal, err := l.Journals.Reverse(ctx, l.Scope, original.ID, journals.ReverseInput{})
	require.NoError(t, err)

	assert.Equal(t, journals.JournalStatusPosted, reversal.Status)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, original.ID, *reversal.ReversalOf)
	assert.Equal(t, original.Date, reversal.Date)
	assert.Equal(t, "Reversal of "+original.Number, reversal.Description)
	require.Len(t, reversal.Entries, 2)
	assert.Equal(t, l.ID(t, "6-1000"), reversal.Entries[0].AccountID)
	assert.True(t, reversal.Entries[0].Credit.Equal(ledgertest.Amount("250")))
	assert.True(t, reversal.Entries[1].Debit.Equal(ledgertest.Amount("250")))

	stored, err := l.Journals.Get(ctx, l.Scope, original.ID)
	require.NoError(t, err)
	assert.Equal(t, journals.JournalStatusPosted, stored.Status)

	gaji, err := l.Accounts.Get(ctx, l.Scope, l.ID(t, "6-1000"))
	require.NoError(t, err)
	assert.True(t, gaji.Balance.IsZero())

	_, err = l.Journals.Reverse(ctx, l.Scope, original.ID, journals.ReverseInput{})
	assert.ErrorIs(t, err, shared.ErrState)
	assert.ErrorIs(t, err, shared.ErrJournalReversed)
}

func TestReverseOutOfClosedMonthMovesForward(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	original := l.Post(t, ledgertest.Date(2024, time.March, 20), "gaji", line{Code: "6-1000", Debit: "250"}, line{Code: "1-1000", Credit: "250"})
	_, err := l.Close.CloseMonth(ctx, l.Scope, 2024, 3)
	require.NoError(t, err)

	reversal, err := l.Journals.Reverse(ctx, l.Scope, original.ID, journals.ReverseInput{Memo: "koreksi"})
	require.NoError(t, err)
	assert.Equal(t, ledgertest.Date(2024, time.April, 1), reversal.Date)
	assert.Equal(t, "koreksi", reversal.Description)

	march := ledgertest.Date(2024, time.March, 31)
	_, err = l.Journals.Reverse(ctx, l.Scope, reversal.ID, journals.ReverseInput{Date: &march})
	assert.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestClosedPeriodRejectsJournals(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	draft, err := l.Journals.Create(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.April, 5), "draft", capital("100")...), journals.Meta{})
	require.NoError(t, err)
	_, err = l.Journals.Post(ctx, l.Scope, draft.ID)
	require.NoError(t, err)
	_, err = l.Close.CloseMonth(ctx, l.Scope, 2024, 4)
	require.NoError(t, err)

	_, err = l.Journals.Create(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.April, 30), "late", capital("100")...), journals.Meta{})
	assert.ErrorIs(t, err, shared.ErrState)
	assert.ErrorIs(t, err, shared.ErrPeriodClosed)

	_, err = l.Journals.Void(ctx, l.Scope, draft.ID, "")
	assert.ErrorIs(t, err, shared.ErrPeriodClosed)

	_, err = l.Journals.CreateAndPost(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.May, 1), "next month", capital("100")...), journals.Meta{})
	assert.NoError(t, err)
}

func TestNumberingPerYear(t *testing.T) {
	l := ledgertest.New(t)

	first := l.Post(t, ledgertest.Date(2023, time.December, 30), "a", capital("1")...)
	second := l.Post(t, ledgertest.Date(2023, time.December, 31), "b", capital("1")...)
	third := l.Post(t, ledgertest.Date(2024, time.January, 1), "c", capital("1")...)

	assert.Equal(t, "JV/2023/00001", first.Number)
	assert.Equal(t, "JV/2023/00002", second.Number)
	assert.Equal(t, "JV/2024/00001", third.Number)
}

func TestConcurrentCreateAllocatesUniqueNumbers(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	const workers = 16

	numbers := make([]string, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			j, err := l.Journals.Create(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.June, 1), "paralel", capital("10")...), journals.Meta{})
			if err != nil {
				return err
			}
			numbers[i] = j.Number
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]struct{}, workers)
	for _, n := range numbers {
		_, dup := seen[n]
		require.False(t, dup, "duplicate number %s", n)
		seen[n] = struct{}{}
	}
	assert.Len(t, seen, workers)
}

func TestSourceLinkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	meta := journals.Meta{SourceType: "SALES_INVOICE", SourceID: "INV-001"}
	date := ledgertest.Date(2024, time.June, 3)

	first, err := l.Journals.CreateAndPost(ctx, l.Scope, l.Input(t, date, "faktur", line{Code: "1-1000", Debit: "100"}, line{Code: "4-1000", Credit: "100"}), meta)
	require.NoError(t, err)
	assert.Equal(t, "SALES_INVOICE", first.SourceType)

	_, err = l.Journals.CreateAndPost(ctx, l.Scope, l.Input(t, date, "faktur", line{Code: "1-1000", Debit: "100"}, line{Code: "4-1000", Credit: "100"}), meta)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)

	_, err = l.Journals.Void(ctx, l.Scope, first.ID, "batal")
	require.NoError(t, err)
	_, err = l.Journals.CreateAndPost(ctx, l.Scope, l.Input(t, date, "faktur ulang", line{Code: "1-1000", Debit: "100"}, line{Code: "4-1000", Credit: "100"}), meta)
	assert.NoError(t, err)

	_, err = l.Journals.Create(ctx, l.Scope, l.Input(t, date, "half", capital("1")...), journals.Meta{SourceType: "SALES_INVOICE"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestPostRollsBackOnBalanceFailure(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	boom := errors.New("disk full")

	l.Store.Fail("accounts.AdjustBalance", boom)
	_, err := l.Journals.CreateAndPost(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.June, 3), "modal", capital("1000")...), journals.Meta{})
	require.ErrorIs(t, err, boom)

	list, err := l.Journals.List(ctx, l.Scope, journals.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	kas, err := l.Accounts.Get(ctx, l.Scope, l.ID(t, "1-1000"))
	require.NoError(t, err)
	assert.True(t, kas.Balance.IsZero())

	j := l.Post(t, ledgertest.Date(2024, time.June, 3), "modal", capital("1000")...)
	assert.Equal(t, "JV/2024/00001", j.Number)
}

func TestListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	older := l.Post(t, ledgertest.Date(2024, time.January, 5), "a", capital("1")...)
	newer := l.Post(t, ledgertest.Date(2024, time.February, 5), "b", capital("1")...)
	_, err := l.Journals.Create(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.March, 5), "c", capital("1")...), journals.Meta{})
	require.NoError(t, err)

	posted, err := l.Journals.List(ctx, l.Scope, journals.ListFilter{Status: journals.JournalStatusPosted})
	require.NoError(t, err)
	require.Len(t, posted, 2)
	assert.Equal(t, newer.ID, posted[0].ID)
	assert.Equal(t, older.ID, posted[1].ID)

	from := ledgertest.Date(2024, time.February, 1)
	ranged, err := l.Journals.List(ctx, l.Scope, journals.ListFilter{From: &from, Limit: 1})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, journals.JournalStatusDraft, ranged[0].Status)
}

func TestTransitionsAreAudited(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	j := l.Post(t, ledgertest.Date(2024, time.June, 3), "modal", capital("1000")...)
	_, err := l.Journals.Void(ctx, l.Scope, j.ID, "salah")
	require.NoError(t, err)

	var actions []string
	for _, log := range l.Store.AuditLogs() {
		if log.Entity == "journal" {
			actions = append(actions, log.Action)
			assert.Equal(t, l.Scope.TenantID, log.TenantID)
		}
	}
	assert.Equal(t, []string{"journal.post", "journal.void"}, actions)
}

func TestScopeIsRequired(t *testing.T) {
	l := ledgertest.New(t)
	_, err := l.Journals.Create(context.Background(), shared.Scope{}, l.Input(t, ledgertest.Date(2024, time.June, 3), "x", capital("1")...), journals.Meta{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestJournalTotals(t *testing.T) {
	j := journals.Journal{Entries: []journals.JournalEntry{
		{Debit: decimal.RequireFromString("10.50"), Credit: decimal.Zero},
		{Debit: decimal.Zero, Credit: decimal.RequireFromString("10.5")},
	}}
	debit, credit := j.Totals()
	assert.True(t, debit.Equal(credit))
	assert.True(t, j.Balanced())
	assert.Equal(t, "JV/2024/00042", journals.FormatNumber(2024, 42))
}

func TestManagedSourcesCannotBeVoidedOrReversed(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	l.Journals.Manage("PAYROLL_RUN")
	date := ledgertest.Date(2024, time.April, 25)

	payroll, err := l.Journals.CreateAndPost(ctx, l.Scope, l.Input(t, date, "gaji april", capital("500")...), journals.Meta{SourceType: "PAYROLL_RUN", SourceID: "2024-04"})
	require.NoError(t, err)
	_, err = l.Journals.Void(ctx, l.Scope, payroll.ID, "")
	assert.ErrorIs(t, err, shared.ErrState)
	assert.ErrorIs(t, err, shared.ErrJournalManaged)
	_, err = l.Journals.Reverse(ctx, l.Scope, payroll.ID, journals.ReverseInput{})
	assert.ErrorIs(t, err, shared.ErrJournalManaged)

	manual, err := l.Journals.CreateAndPost(ctx, l.Scope, l.Input(t, date, "manual", capital("100")...), journals.Meta{SourceType: "MANUAL", SourceID: "m-1"})
	require.NoError(t, err)
	_, err = l.Journals.Void(ctx, l.Scope, manual.ID, "")
	assert.NoError(t, err)
}
