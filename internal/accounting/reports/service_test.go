package reports_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/testing/ledgertest"
)

type line = ledgertest.Line

func newCachedLedger(t *testing.T) (*ledgertest.Ledger, *reports.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := reports.NewCache(client, time.Minute)
	return ledgertest.NewWithCache(t, cache), cache, mr
}

func cachedKey(t *testing.T, mr *miniredis.Miniredis, report string) string {
	t.Helper()
	for _, key := range mr.Keys() {
		if strings.Contains(key, ":"+report+":") {
			return key
		}
	}
	t.Fatalf("no cached %s report", report)
	return ""
}

func TestTrialBalanceServedFromCache(t *testing.T) {
	ctx := context.Background()
	l, _, mr := newCachedLedger(t)
	l.Post(t, ledgertest.Date(2024, time.January, 2), "modal", line{Code: "1-1000", Debit: "1000"}, line{Code: "3-1000", Credit: "1000"})

	first, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	assert.True(t, first.TotalDebit.Equal(ledgertest.Amount("1000")))

	key := cachedKey(t, mr, "tb")
	require.NoError(t, mr.Set(key, `{"mode":"as_of","total_debit":"1","total_credit":"1","is_balanced":true}`))

	second, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	assert.True(t, second.TotalDebit.Equal(ledgertest.Amount("1")))
}

func TestPostingInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	l, cache, _ := newCachedLedger(t)
	l.Post(t, ledgertest.Date(2024, time.January, 2), "modal", line{Code: "1-1000", Debit: "1000"}, line{Code: "3-1000", Credit: "1000"})

	_, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	before, err := cache.Version(ctx, l.Scope.TenantID)
	require.NoError(t, err)

	_, err = l.Journals.Create(ctx, l.Scope, l.Input(t, ledgertest.Date(2024, time.January, 3), "draft", line{Code: "1-1000", Debit: "5"}, line{Code: "3-1000", Credit: "5"}), journals.Meta{})
	require.NoError(t, err)
	unchanged, err := cache.Version(ctx, l.Scope.TenantID)
	require.NoError(t, err)
	assert.Equal(t, before, unchanged)

	l.Post(t, ledgertest.Date(2024, time.January, 4), "tambahan", line{Code: "1-1000", Debit: "500"}, line{Code: "3-1000", Credit: "500"})
	after, err := cache.Version(ctx, l.Scope.TenantID)
	require.NoError(t, err)
	assert.Greater(t, after, before)

	tb, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	assert.True(t, tb.TotalDebit.Equal(ledgertest.Amount("1500")))
}

func TestProfitAndLossAndBalanceSheet(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	l.Post(t, ledgertest.Date(2024, time.January, 2), "modal", line{Code: "1-1000", Debit: "10000"}, line{Code: "3-1000", Credit: "10000"})
	l.Post(t, ledgertest.Date(2024, time.February, 10), "penjualan", line{Code: "1-1000", Debit: "5000"}, line{Code: "4-1000", Credit: "5000"})
	l.Post(t, ledgertest.Date(2024, time.February, 11), "hpp", line{Code: "5-1000", Debit: "2000"}, line{Code: "1-1000", Credit: "2000"})
	l.Post(t, ledgertest.Date(2024, time.March, 1), "gaji", line{Code: "6-1000", Debit: "1000"}, line{Code: "1-1000", Credit: "1000"})

	pl, err := l.Reports.ProfitAndLoss(ctx, l.Scope, ledgertest.Date(2024, time.February, 1), ledgertest.Date(2024, time.February, 29))
	require.NoError(t, err)
	assert.True(t, pl.Revenue.Total.Equal(ledgertest.Amount("5000")))
	assert.True(t, pl.COGS.Total.Equal(ledgertest.Amount("2000")))
	assert.True(t, pl.GrossProfit.Equal(ledgertest.Amount("3000")))
	assert.True(t, pl.Expense.Total.IsZero())
	assert.True(t, pl.NetIncome.Equal(ledgertest.Amount("3000")))

	bs, err := l.Reports.BalanceSheet(ctx, l.Scope, ledgertest.Date(2024, time.March, 31))
	require.NoError(t, err)
	assert.True(t, bs.IsBalanced)
	assert.True(t, bs.Assets.Total.Equal(ledgertest.Amount("12000")))
	assert.True(t, bs.UnclosedEarnings.Equal(ledgertest.Amount("2000")))
	assert.True(t, bs.TotalLiabilitiesAndEquity.Equal(ledgertest.Amount("12000")))

	from := ledgertest.Date(2024, time.March, 1)
	to := ledgertest.Date(2024, time.March, 31)
	ranged, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{Start: &from, End: &to})
	require.NoError(t, err)
	assert.Equal(t, reports.ModeRange, ranged.Mode)
	assert.True(t, ranged.TotalDebit.Equal(ledgertest.Amount("1000")))
	assert.True(t, ranged.IsBalanced)
}

func TestFailedInvalidationBypassesCacheUntilRedisRecovers(t *testing.T) {
	ctx := context.Background()
	l, cache, mr := newCachedLedger(t)
	l.Post(t, ledgertest.Date(2024, time.January, 2), "modal", line{Code: "1-1000", Debit: "1000"}, line{Code: "3-1000", Credit: "1000"})

	first, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	require.True(t, first.TotalDebit.Equal(ledgertest.Amount("1000")))

	mr.SetError("LOADING Redis is loading the dataset in memory")
	l.Post(t, ledgertest.Date(2024, time.January, 3), "tambahan", line{Code: "1-1000", Debit: "500"}, line{Code: "3-1000", Credit: "500"})
	assert.False(t, cache.Usable(ctx, l.Scope.TenantID))

	during, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	assert.True(t, during.TotalDebit.Equal(ledgertest.Amount("1500")), "during outage %s", during.TotalDebit)

	mr.SetError("")
	after, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{})
	require.NoError(t, err)
	assert.True(t, after.TotalDebit.Equal(ledgertest.Amount("1500")), "after recovery %s", after.TotalDebit)
	assert.True(t, cache.Usable(ctx, l.Scope.TenantID))
}

// gatedReader holds the first aggregation until released.
type gatedReader struct {
	inner   reports.Reader
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedReader) SumEntries(ctx context.Context, tenantID uuid.UUID, filter reports.EntryFilter) ([]reports.AccountBalance, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.inner.SumEntries(ctx, tenantID, filter)
}

func TestCollapsedReadSurvivesFirstCallerCancel(t *testing.T) {
	l := ledgertest.New(t)
	l.Post(t, ledgertest.Date(2024, time.January, 2), "modal", line{Code: "1-1000", Debit: "1000"}, line{Code: "3-1000", Credit: "1000"})

	gate := &gatedReader{inner: l.Store.Reader(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := reports.NewService(gate, nil)
	svc.WithNow(l.Clock.Now)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.TrialBalance(firstCtx, l.Scope, reports.Filter{})
		firstErr <- err
	}()
	<-gate.entered

	type outcome struct {
		tb  reports.TrialBalance
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		tb, err := svc.TrialBalance(context.Background(), l.Scope, reports.Filter{})
		second <- outcome{tb, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(gate.release)

	got := <-second
	require.NoError(t, got.err)
	assert.True(t, got.tb.TotalDebit.Equal(ledgertest.Amount("1000")))
}
