// Command ledgerctl administers the ledger: schema migration, chart seeding, reports, period
// close and background jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/app"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/cache"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Administer the double-entry ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("tenant", os.Getenv("LEDGER_TENANT_ID"), "Tenant UUID (env LEDGER_TENANT_ID)")
	rootCmd.PersistentFlags().Int64("actor", 0, "Actor id recorded on audit logs")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		stop()
		os.Exit(1)
	}
}

// runtime is the connected state shared by subcommands.
type runtime struct {
	cfg      *app.Config
	pool     *pgxpool.Pool
	redis    *redis.Client
	services *app.Services
}

func connect(ctx context.Context) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, pool: pool}
	// Without redis the CLI still works; cached reports expire by TTL.
	if client, err := cache.New(ctx, cfg.Redis()); err == nil {
		rt.redis = client
	}
	rt.services = app.NewServices(cfg, app.NewLogger(cfg), pool, rt.redis, nil)
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	rt.pool.Close()
}

// scopeFlags reads the tenant scope from the persistent flags.
func scopeFlags(cmd *cobra.Command) (shared.Scope, error) {
	raw, _ := cmd.Flags().GetString("tenant")
	if raw == "" {
		return shared.Scope{}, fmt.Errorf("tenant required: pass --tenant or set LEDGER_TENANT_ID")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return shared.Scope{}, fmt.Errorf("invalid tenant %q: %w", raw, err)
	}
	actor, _ := cmd.Flags().GetInt64("actor")
	return shared.Scope{TenantID: tenantID, ActorID: actor}, nil
}

// yearMonth parses YEAR and an optional MONTH argument.
func yearMonth(args []string) (int, int, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil || year < 1900 || year > 9999 {
		return 0, 0, fmt.Errorf("invalid year %q", args[0])
	}
	if len(args) < 2 {
		return year, 0, nil
	}
	month, err := strconv.Atoi(args[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", args[1])
	}
	return year, month, nil
}
