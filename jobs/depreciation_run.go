package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
	jobmetrics "github.com/rasyiqi-code/Counting-sub001/internal/jobs"
)

// DepreciationRunner is the asset service operation the job drives.
type DepreciationRunner interface {
	RunDepreciation(ctx context.Context, scope shared.Scope, key periods.Key) (assets.RunResult, error)
}

// DepreciationRunJob posts the monthly depreciation of every active asset of a tenant.
type DepreciationRunJob struct {
	Runner  DepreciationRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDepreciationRunJob initialises the depreciation run handler.
func NewDepreciationRunJob(runner DepreciationRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *DepreciationRunJob {
	return &DepreciationRunJob{
		Runner:  runner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one depreciation run. Assets that fail are retried by Asynq; assets already
// depreciated for the month are skipped on the retry.
func (j *DepreciationRunJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Runner == nil {
		return errors.New("depreciation run: handler not configured")
	}
	var payload DepreciationRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("depreciation run: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	key := payload.Period(j.now())
	if err := key.Validate(); err != nil {
		return fmt.Errorf("depreciation run: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.Scope().Validate(); err != nil {
		return fmt.Errorf("depreciation run: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskDepreciationRun)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("tenant_id", payload.TenantID.String()),
		slog.String("period", key.String()),
	)
	start := time.Now()
	result, err := j.Runner.RunDepreciation(ctx, payload.Scope(), key)
	if err != nil {
		logger.Error("depreciation run failed", slog.Any("error", err))
		return err
	}
	for _, failure := range result.Failed {
		logger.Warn("asset not depreciated",
			slog.Int64("asset_id", failure.AssetID),
			slog.String("number", failure.Number),
			slog.String("error", failure.Error),
		)
	}
	logger.Info("completed depreciation run",
		slog.Int("recorded", len(result.Recorded)),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", len(result.Failed)),
		slog.String("total_amount", result.TotalAmount.StringFixed(2)),
		slog.Duration("duration", time.Since(start)),
	)
	if len(result.Failed) > 0 {
		return fmt.Errorf("depreciation run: %d assets failed for %s", len(result.Failed), key)
	}
	return nil
}

func (j *DepreciationRunJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *DepreciationRunJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
