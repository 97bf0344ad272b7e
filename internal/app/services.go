package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	accshared "github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
	"github.com/rasyiqi-code/Counting-sub001/internal/close"
	"github.com/rasyiqi-code/Counting-sub001/internal/shared"
)

// Services holds the ledger services bound to one Postgres pool.
type Services struct {
	Accounts *accounts.Service
	Mappings *mappings.Service
	Periods  *periods.Service
	Journals *journals.Service
	Reports  *reports.Service
	Assets   *assets.Service
	Close    *close.Service
	Cache    *reports.Cache
}

// NewServices wires every ledger service over pool. A nil redis client disables the report cache.
func NewServices(cfg *Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, recorder journals.MetricsRecorder) *Services {
	audit := shared.NewAuditLogger(pool)
	var cache *reports.Cache
	if redisClient != nil {
		cache = reports.NewCache(redisClient, cfg.ReportCacheTTL)
	}

	reportSvc := reports.NewService(reports.NewReader(pool), cache)
	journalSvc := journals.NewService(journals.NewRepository(pool), audit, cache)
	journalSvc.WithLogger(logger)
	if recorder != nil {
		journalSvc.WithMetrics(recorder)
	}
	return &Services{
		Accounts: accounts.NewService(accounts.NewRepository(pool), reportSvc, audit),
		Mappings: mappings.NewService(mappings.NewRepository(pool)),
		Periods:  periods.NewService(periods.NewRepository(pool)),
		Journals: journalSvc,
		Reports:  reportSvc,
		Assets:   assets.NewService(assets.NewRepository(pool), journalSvc, audit),
		Close:    close.NewService(close.NewRepository(pool), journalSvc, audit),
		Cache:    cache,
	}
}

// SeedChart creates the accounts of chart that the tenant lacks and binds its mappings.
func (s *Services) SeedChart(ctx context.Context, scope accshared.Scope, chart accounts.Chart) (accounts.SeedResult, error) {
	seeded, err := s.Accounts.Seed(ctx, scope, chart)
	if err != nil {
		return accounts.SeedResult{}, err
	}
	bindings := make(map[string]int64, len(chart.Mappings))
	for key, code := range chart.Mappings {
		id, ok := seeded.IDs[code]
		if !ok {
			return seeded, fmt.Errorf("app: mapping %s refers to unknown code %s", key, code)
		}
		bindings[key] = id
	}
	if len(bindings) > 0 {
		if err := s.Mappings.Apply(ctx, scope, bindings); err != nil {
			return seeded, err
		}
	}
	return seeded, nil
}
