package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
	jobmetrics "github.com/rasyiqi-code/Counting-sub001/internal/jobs"
	"github.com/rasyiqi-code/Counting-sub001/internal/testing/ledgertest"
	"github.com/rasyiqi-code/Counting-sub001/jobs"
)

type line = ledgertest.Line

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// counterValue sums every series of the named counter.
func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func registerPrinter(t *testing.T, l *ledgertest.Ledger) assets.Asset {
	t.Helper()
	asset, err := l.Assets.Register(context.Background(), l.Scope, assets.RegisterInput{
		Name:                 "Printer",
		PurchaseDate:         ledgertest.Date(2024, time.January, 10),
		PurchasePrice:        ledgertest.Amount("1200"),
		ResidualValue:        decimal.Zero,
		UsefulLifeMonths:     12,
		Method:               assets.MethodStraightLine,
		AssetAccountID:       l.ID(t, "1-2000"),
		ExpenseAccountID:     l.ID(t, "6-2000"),
		AccumulatedAccountID: l.ID(t, "1-2100"),
	})
	require.NoError(t, err)
	return asset
}

func TestDepreciationRunPayloadPeriod(t *testing.T) {
	now := time.Date(2024, time.March, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, periods.MonthKey(2024, 2), jobs.DepreciationRunPayload{}.Period(now))
	assert.Equal(t, periods.MonthKey(2023, 12), jobs.DepreciationRunPayload{}.Period(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, periods.MonthKey(2024, 7), jobs.DepreciationRunPayload{Year: 2024, Month: 7}.Period(now))
}

func TestTaskConstructorsRequireTenant(t *testing.T) {
	_, err := jobs.NewDepreciationRunTask(jobs.DepreciationRunPayload{Year: 2024, Month: 1})
	assert.Error(t, err)
	_, err = jobs.NewIntegrityTask(uuid.Nil)
	assert.Error(t, err)

	task, err := jobs.NewIntegrityTask(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskBalanceIntegrity, task.Type())
}

func TestDepreciationRunJobPostsMonth(t *testing.T) {
	l := ledgertest.New(t)
	asset := registerPrinter(t, l)
	registry := prometheus.NewRegistry()
	job := jobs.NewDepreciationRunJob(l.Assets, quietLogger(), jobmetrics.NewMetrics(registry))

	task, err := jobs.NewDepreciationRunTask(jobs.DepreciationRunPayload{TenantID: l.Scope.TenantID, ActorID: l.Scope.ActorID, Year: 2024, Month: 1})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.NoError(t, job.Handle(context.Background(), task))

	rows, err := l.Assets.Depreciations(context.Background(), l.Scope, asset.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(ledgertest.Amount("100")))

	assert.Equal(t, 2.0, counterValue(t, registry, "ledger_jobs_total"))
}

func TestDepreciationRunJobSkipsBadPayload(t *testing.T) {
	l := ledgertest.New(t)
	job := jobs.NewDepreciationRunJob(l.Assets, quietLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskDepreciationRun, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	raw, err := json.Marshal(jobs.DepreciationRunPayload{Year: 2024, Month: 1})
	require.NoError(t, err)
	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskDepreciationRun, raw))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	raw, err = json.Marshal(jobs.DepreciationRunPayload{TenantID: l.Scope.TenantID, Year: 2024, Month: 14})
	require.NoError(t, err)
	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskDepreciationRun, raw))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestBalanceIntegrityCheck(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	l.Post(t, ledgertest.Date(2024, time.January, 2), "modal", line{Code: "1-1000", Debit: "1000"}, line{Code: "3-1000", Credit: "1000"})
	l.Post(t, ledgertest.Date(2030, time.January, 2), "masa depan", line{Code: "6-1000", Debit: "50"}, line{Code: "1-1000", Credit: "50"})

	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := jobs.NewBalanceIntegrityJob(l.Accounts, l.Reports, quietLogger(), metrics)

	report, err := job.Check(ctx, l.Scope)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Empty(t, report.Mismatches)
	assert.Equal(t, len(l.IDs), report.Accounts)

	kas := l.ID(t, "1-1000")
	require.NoError(t, l.Store.Accounts().WithTx(ctx, func(ctx context.Context, tx accounts.TxRepository) error {
		return tx.AdjustBalance(ctx, l.Scope.TenantID, kas, ledgertest.Amount("5"))
	}))

	report, err = job.Check(ctx, l.Scope)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "1-1000", report.Mismatches[0].Code)
	assert.True(t, report.Mismatches[0].Cached.Equal(ledgertest.Amount("955")))
	assert.True(t, report.Mismatches[0].Computed.Equal(ledgertest.Amount("950")))

	task, err := jobs.NewIntegrityTask(l.Scope.TenantID)
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	assert.Equal(t, 1.0, counterValue(t, registry, "ledger_balance_mismatches_total"))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestJobsHealth(t *testing.T) {
	cases := []struct {
		name      string
		inspector jobs.QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: fakeInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "redis down", inspector: fakeInspector{err: errors.New("dial tcp: refused")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			jobs.NewHandler(tc.inspector, quietLogger()).MountRoutes(r)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body struct {
				Queue   string `json:"queue"`
				Pending int    `json:"pending"`
			}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, jobs.QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}

func TestNewMuxSkipsIncompleteHandlers(t *testing.T) {
	called := false
	mux := jobs.NewMux([]jobs.TaskHandler{
		{Type: "", Handler: func(context.Context, *asynq.Task) error { return nil }},
		{Type: jobs.TaskBalanceIntegrity},
		{Type: jobs.TaskDepreciationRun, Handler: func(context.Context, *asynq.Task) error {
			called = true
			return nil
		}},
	})
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskDepreciationRun, nil)))
	assert.True(t, called)
	assert.Error(t, mux.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskBalanceIntegrity, nil)))
}
