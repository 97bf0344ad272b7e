package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	jobmetrics "github.com/rasyiqi-code/Counting-sub001/internal/jobs"
)

// endOfTime bounds the as-of aggregation so future-dated postings are included.
var endOfTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// AccountLister lists the chart of a tenant with cached balances.
type AccountLister interface {
	List(ctx context.Context, scope shared.Scope, filter accounts.ListFilter) ([]accounts.Account, error)
}

// LedgerAggregator recomputes balances from posted journal entries.
type LedgerAggregator interface {
	ComputeAsOf(ctx context.Context, scope shared.Scope, date time.Time) (reports.TrialBalance, error)
}

// Mismatch is an account whose cached balance differs from its posted entries.
type Mismatch struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Cached    decimal.Decimal `json:"cached"`
	Computed  decimal.Decimal `json:"computed"`
}

// IntegrityReport is the outcome of one balance integrity check.
type IntegrityReport struct {
	Accounts   int        `json:"accounts"`
	Balanced   bool       `json:"balanced"`
	Mismatches []Mismatch `json:"mismatches"`
}

// BalanceIntegrityJob verifies that cached balances equal the sum of posted entries and that
// total debits equal total credits.
type BalanceIntegrityJob struct {
	Accounts   AccountLister
	Aggregator LedgerAggregator
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewBalanceIntegrityJob initialises the integrity check handler.
func NewBalanceIntegrityJob(accounts AccountLister, aggregator LedgerAggregator, logger *slog.Logger, metrics *jobmetrics.Metrics) *BalanceIntegrityJob {
	return &BalanceIntegrityJob{Accounts: accounts, Aggregator: aggregator, Logger: logger, Metrics: metrics}
}

// Check compares every account of the scope against the posted ledger.
func (j *BalanceIntegrityJob) Check(ctx context.Context, scope shared.Scope) (IntegrityReport, error) {
	chart, err := j.Accounts.List(ctx, scope, accounts.ListFilter{})
	if err != nil {
		return IntegrityReport{}, err
	}
	tb, err := j.Aggregator.ComputeAsOf(ctx, scope, endOfTime)
	if err != nil {
		return IntegrityReport{}, err
	}
	report := IntegrityReport{Accounts: len(chart), Balanced: tb.IsBalanced}
	for _, account := range chart {
		computed := decimal.Zero
		if line, ok := tb.Line(account.ID); ok {
			computed = line.Balance
		}
		if !account.Balance.Equal(computed) {
			report.Mismatches = append(report.Mismatches, Mismatch{
				AccountID: account.ID,
				Code:      account.Code,
				Cached:    account.Balance,
				Computed:  computed,
			})
		}
	}
	return report, nil
}

// Handle runs Check for the tenant named by the task payload.
func (j *BalanceIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Accounts == nil || j.Aggregator == nil {
		return errors.New("balance integrity: handler not configured")
	}
	var payload IntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("balance integrity: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	scope := shared.Scope{TenantID: payload.TenantID}
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("balance integrity: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskBalanceIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("tenant_id", payload.TenantID.String()))
	report, err := j.Check(ctx, scope)
	if err != nil {
		logger.Error("balance integrity check failed", slog.Any("error", err))
		return err
	}
	for _, m := range report.Mismatches {
		logger.Warn("cached balance mismatch",
			slog.Int64("account_id", m.AccountID),
			slog.String("code", m.Code),
			slog.String("cached", m.Cached.String()),
			slog.String("computed", m.Computed.String()),
		)
	}
	j.Metrics.AddMismatches("balance", len(report.Mismatches))
	if !report.Balanced {
		j.Metrics.AddMismatches("trial_balance", 1)
		logger.Warn("posted ledger does not balance")
	}
	logger.Info("completed balance integrity check",
		slog.Int("accounts", report.Accounts),
		slog.Int("mismatches", len(report.Mismatches)),
		slog.Bool("balanced", report.Balanced),
	)
	return nil
}

func (j *BalanceIntegrityJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
