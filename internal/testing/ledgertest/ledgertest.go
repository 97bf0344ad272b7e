// Package ledgertest wires every ledger service over an in-memory store with a seeded chart of
// accounts, for package tests.
package ledgertest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/memstore"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
	"github.com/rasyiqi-code/Counting-sub001/internal/close"
)

// Chart is the seed used by New: Kas, Modal, fixed asset accounts and income statement accounts.
const Chart = `
[[account]]
code = "1-0000"
name = "Aset"
type = "ASSET"
system = true

[[account]]
code = "1-1000"
name = "Kas"
type = "ASSET"
parent = "1-0000"

[[account]]
code = "1-2000"
name = "Peralatan"
type = "ASSET"
parent = "1-0000"

[[account]]
code = "1-2100"
name = "Akumulasi Penyusutan"
type = "ASSET"
parent = "1-0000"

[[account]]
code = "2-1000"
name = "Utang Usaha"
type = "LIABILITY"

[[account]]
code = "3-1000"
name = "Modal"
type = "EQUITY"

[[account]]
code = "3-2000"
name = "Laba Ditahan"
type = "EQUITY"
system = true

[[account]]
code = "4-1000"
name = "Pendapatan"
type = "REVENUE"

[[account]]
code = "5-1000"
name = "Harga Pokok Penjualan"
type = "COGS"

[[account]]
code = "6-1000"
name = "Beban Gaji"
type = "EXPENSE"

[[account]]
code = "6-2000"
name = "Beban Penyusutan"
type = "EXPENSE"

[[account]]
code = "7-1000"
name = "Laba/Rugi Pelepasan Aset"
type = "REVENUE"

[mappings]
CASH = "1-1000"
ASSET_DISPOSAL = "7-1000"
RETAINED_EARNINGS = "3-2000"
`

// Clock is a settable time source shared by every service of a Ledger.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the fake time.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Ledger bundles the services of one tenant.
type Ledger struct {
	Store    *memstore.Store
	Scope    shared.Scope
	Clock    *Clock
	Accounts *accounts.Service
	Mappings *mappings.Service
	Journals *journals.Service
	Reports  *reports.Service
	Assets   *assets.Service
	Close    *close.Service
	// IDs maps chart codes to account ids.
	IDs map[string]int64
}

// New builds a Ledger whose chart is seeded from Chart. The clock starts at 2024-06-15.
func New(t testing.TB) *Ledger {
	t.Helper()
	return NewWithCache(t, nil)
}

// NewWithCache is New with a report cache attached to the report service and journal ledger.
func NewWithCache(t testing.TB, cache *reports.Cache) *Ledger {
	t.Helper()
	store := memstore.New()
	clock := &Clock{now: time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)}
	scope := shared.Scope{TenantID: uuid.New(), ActorID: 7}

	reportSvc := reports.NewService(store.Reader(), cache)
	reportSvc.WithNow(clock.Now)
	accountSvc := accounts.NewService(store.Accounts(), reportSvc, store)
	accountSvc.WithNow(clock.Now)
	journalSvc := journals.NewService(store.Journals(), store, cache)
	journalSvc.WithNow(clock.Now)
	assetSvc := assets.NewService(store.Assets(), journalSvc, store)
	assetSvc.WithNow(clock.Now)
	closeSvc := close.NewService(store.Close(), journalSvc, store)
	closeSvc.WithNow(clock.Now)

	l := &Ledger{
		Store:    store,
		Scope:    scope,
		Clock:    clock,
		Accounts: accountSvc,
		Mappings: mappings.NewService(store.Mappings()),
		Journals: journalSvc,
		Reports:  reportSvc,
		Assets:   assetSvc,
		Close:    closeSvc,
	}
	chart, err := accounts.ParseChart(strings.NewReader(Chart))
	if err != nil {
		t.Fatalf("parse chart: %v", err)
	}
	seeded, err := accountSvc.Seed(context.Background(), scope, chart)
	if err != nil {
		t.Fatalf("seed chart: %v", err)
	}
	l.IDs = seeded.IDs
	bindings := make(map[string]int64, len(chart.Mappings))
	for key, code := range chart.Mappings {
		bindings[key] = seeded.IDs[code]
	}
	if err := l.Mappings.Apply(context.Background(), scope, bindings); err != nil {
		t.Fatalf("apply mappings: %v", err)
	}
	return l
}

// ID returns the account id of code, failing the test when it is unknown.
func (l *Ledger) ID(t testing.TB, code string) int64 {
	t.Helper()
	id, ok := l.IDs[code]
	if !ok {
		t.Fatalf("unknown account code %s", code)
	}
	return id
}

// Amount parses a decimal literal.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Line is a shorthand journal line: a positive debit or credit against an account code.
type Line struct {
	Code   string
	Debit  string
	Credit string
}

// Input builds a journal create input from lines.
func (l *Ledger) Input(t testing.TB, date time.Time, description string, lines ...Line) journals.CreateInput {
	t.Helper()
	in := journals.CreateInput{Date: date, Description: description}
	for _, line := range lines {
		entry := journals.EntryInput{AccountID: l.ID(t, line.Code), Debit: decimal.Zero, Credit: decimal.Zero}
		if line.Debit != "" {
			entry.Debit = Amount(line.Debit)
		}
		if line.Credit != "" {
			entry.Credit = Amount(line.Credit)
		}
		in.Entries = append(in.Entries, entry)
	}
	return in
}

// Post creates and posts a journal, failing the test on error.
func (l *Ledger) Post(t testing.TB, date time.Time, description string, lines ...Line) journals.Journal {
	t.Helper()
	j, err := l.Journals.CreateAndPost(context.Background(), l.Scope, l.Input(t, date, description, lines...), journals.Meta{})
	if err != nil {
		t.Fatalf("post journal: %v", err)
	}
	return j
}
