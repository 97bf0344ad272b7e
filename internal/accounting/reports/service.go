package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// Filter selects the trial balance mode: range when Start is set, otherwise as of End (today when nil).
type Filter struct {
	Start *time.Time
	End   *time.Time
}

// Service computes trial balance, profit and loss, and balance sheet reports from POSTED journals.
type Service struct {
	reader Reader
	cache  *Cache
	group  singleflight.Group
	now    func() time.Time
}

// NewService constructs the report service. cache may be nil.
func NewService(reader Reader, cache *Cache) *Service {
	return &Service{reader: reader, cache: cache, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ComputeRange sums POSTED entries dated within [start, end].
func (s *Service) ComputeRange(ctx context.Context, scope shared.Scope, start, end time.Time) (TrialBalance, error) {
	if err := scope.Validate(); err != nil {
		return TrialBalance{}, err
	}
	return ComputeRange(ctx, s.reader, scope, start, end)
}

// ComputeAsOf sums POSTED entries dated on or before date, since inception.
func (s *Service) ComputeAsOf(ctx context.Context, scope shared.Scope, date time.Time) (TrialBalance, error) {
	if err := scope.Validate(); err != nil {
		return TrialBalance{}, err
	}
	return ComputeAsOf(ctx, s.reader, scope, date)
}

// ComputeRange is the uncached range aggregation, usable with a transaction bound Reader.
func ComputeRange(ctx context.Context, reader Reader, scope shared.Scope, start, end time.Time) (TrialBalance, error) {
	start, end = periods.DateOnly(start), periods.DateOnly(end)
	if end.Before(start) {
		return TrialBalance{}, shared.Invalid("trial_balance", nil, shared.ErrInvalidInput, "end %s before start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	balances, err := reader.SumEntries(ctx, scope.TenantID, EntryFilter{From: &start, To: end})
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(ModeRange, &start, end, balances), nil
}

// ComputeAsOf is the uncached cumulative aggregation, usable with a transaction bound Reader.
func ComputeAsOf(ctx context.Context, reader Reader, scope shared.Scope, date time.Time) (TrialBalance, error) {
	date = periods.DateOnly(date)
	balances, err := reader.SumEntries(ctx, scope.TenantID, EntryFilter{To: date})
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(ModeAsOf, nil, date, balances), nil
}

// TrialBalance picks range or as-of aggregation from the filter and caches the result.
func (s *Service) TrialBalance(ctx context.Context, scope shared.Scope, filter Filter) (TrialBalance, error) {
	if err := scope.Validate(); err != nil {
		return TrialBalance{}, err
	}
	end := s.now()
	if filter.End != nil {
		end = *filter.End
	}
	end = periods.DateOnly(end)
	var out TrialBalance
	if filter.Start != nil {
		start := periods.DateOnly(*filter.Start)
		err := s.cached(ctx, scope, &out, func(ctx context.Context) (any, error) {
			return ComputeRange(ctx, s.reader, scope, start, end)
		}, "tb", ModeRange, day(start), day(end))
		return out, err
	}
	err := s.cached(ctx, scope, &out, func(ctx context.Context) (any, error) {
		return ComputeAsOf(ctx, s.reader, scope, end)
	}, "tb", ModeAsOf, day(end))
	return out, err
}

// ProfitAndLoss reports REVENUE, COGS and EXPENSE activity within [start, end].
func (s *Service) ProfitAndLoss(ctx context.Context, scope shared.Scope, start, end time.Time) (ProfitAndLoss, error) {
	if err := scope.Validate(); err != nil {
		return ProfitAndLoss{}, err
	}
	start, end = periods.DateOnly(start), periods.DateOnly(end)
	var out ProfitAndLoss
	err := s.cached(ctx, scope, &out, func(ctx context.Context) (any, error) {
		tb, err := ComputeRange(ctx, s.reader, scope, start, end)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(start, end, linesToBalances(tb.Accounts)), nil
	}, "pl", day(start), day(end))
	return out, err
}

// BalanceSheet reports cumulative ASSET, LIABILITY and EQUITY balances as of asOf.
func (s *Service) BalanceSheet(ctx context.Context, scope shared.Scope, asOf time.Time) (BalanceSheet, error) {
	if err := scope.Validate(); err != nil {
		return BalanceSheet{}, err
	}
	asOf = periods.DateOnly(asOf)
	var out BalanceSheet
	err := s.cached(ctx, scope, &out, func(ctx context.Context) (any, error) {
		tb, err := ComputeAsOf(ctx, s.reader, scope, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(asOf, linesToBalances(tb.Accounts)), nil
	}, "bs", day(asOf))
	return out, err
}

// AccountTotals sums POSTED entries of one account, optionally as of a date.
func (s *Service) AccountTotals(ctx context.Context, scope shared.Scope, accountID int64, asOf *time.Time) (accounts.Totals, error) {
	if err := scope.Validate(); err != nil {
		return accounts.Totals{}, err
	}
	end := s.now()
	if asOf != nil {
		end = *asOf
	}
	balances, err := s.reader.SumEntries(ctx, scope.TenantID, EntryFilter{To: periods.DateOnly(end), AccountID: accountID})
	if err != nil {
		return accounts.Totals{}, err
	}
	totals := accounts.Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, b := range balances {
		totals.Debit = totals.Debit.Add(b.Debit)
		totals.Credit = totals.Credit.Add(b.Credit)
	}
	return totals, nil
}

// cached collapses concurrent identical requests and serves them from the report cache. Reads
// go straight to the ledger while the cache is unavailable or stale for the tenant.
func (s *Service) cached(ctx context.Context, scope shared.Scope, dest any, load func(context.Context) (any, error), parts ...string) error {
	cache := s.cache
	if !cache.Usable(ctx, scope.TenantID) {
		cache = nil
	}
	key, err := cache.BuildKey(ctx, scope.TenantID, parts...)
	if err != nil {
		return fmt.Errorf("reports: cache key: %w", err)
	}
	// The shared load must outlive any single caller; each caller still honours its own ctx below.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		var payload json.RawMessage
		err := cache.FetchJSON(loadCtx, key, &payload, func(ctx context.Context) (any, error) {
			value, err := load(ctx)
			if err != nil {
				return nil, err
			}
			raw, err := json.Marshal(value)
			return json.RawMessage(raw), err
		})
		return payload, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}

func linesToBalances(lines []TrialBalanceLine) []AccountBalance {
	out := make([]AccountBalance, 0, len(lines))
	for _, line := range lines {
		out = append(out, AccountBalance{
			AccountID: line.AccountID,
			Code:      line.Code,
			Name:      line.Name,
			Type:      line.Type,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	return out
}

func day(t time.Time) string {
	return t.Format(time.DateOnly)
}
