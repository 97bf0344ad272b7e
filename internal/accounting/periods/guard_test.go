package periods_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/memstore"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

func setStatus(t *testing.T, repo periods.Repository, tenant uuid.UUID, key periods.Key, status periods.PeriodStatus) {
	t.Helper()
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx periods.TxRepository) error {
		p, err := periods.FindOrCreate(ctx, tx, tenant, key)
		if err != nil {
			return err
		}
		p.Status = status
		return tx.UpdateStatus(ctx, p)
	})
	require.NoError(t, err)
}

func ensureOpen(repo periods.Repository, tenant uuid.UUID, date time.Time) error {
	return repo.WithTx(context.Background(), func(ctx context.Context, tx periods.TxRepository) error {
		return periods.EnsureOpen(ctx, tx, tenant, date)
	})
}

func TestEnsureOpen(t *testing.T) {
	repo := memstore.New().Periods()
	tenant := uuid.New()

	assert.NoError(t, ensureOpen(repo, tenant, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)))

	setStatus(t, repo, tenant, periods.MonthKey(2024, 3), periods.PeriodStatusClosed)
	err := ensureOpen(repo, tenant, time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, shared.ErrState)
	assert.ErrorIs(t, err, shared.ErrPeriodClosed)
	assert.NoError(t, ensureOpen(repo, tenant, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, ensureOpen(repo, uuid.New(), time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)))

	setStatus(t, repo, tenant, periods.YearKey(2024), periods.PeriodStatusLocked)
	err = ensureOpen(repo, tenant, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, shared.ErrPeriodLocked)
	assert.NoError(t, ensureOpen(repo, tenant, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEnsureOpenCreatesTheMonthRow(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New().Periods()
	tenant := uuid.New()
	date := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ensureOpen(repo, tenant, date))
	require.NoError(t, ensureOpen(repo, tenant, date))

	listed, err := repo.List(ctx, tenant, 2024)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, periods.MonthKey(2024, 6), listed[0].Key())
	assert.Equal(t, periods.PeriodStatusOpen, listed[0].Status)

	setStatus(t, repo, tenant, periods.MonthKey(2024, 6), periods.PeriodStatusClosed)
	assert.ErrorIs(t, ensureOpen(repo, tenant, date), shared.ErrPeriodClosed)

	listed, err = repo.List(ctx, tenant, 2024)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestFindOrCreateInsertsOnce(t *testing.T) {
	repo := memstore.New().Periods()
	tenant := uuid.New()
	key := periods.MonthKey(2024, 2)

	var first, second periods.Period
	require.NoError(t, repo.WithTx(context.Background(), func(ctx context.Context, tx periods.TxRepository) error {
		var err error
		first, err = periods.FindOrCreate(ctx, tx, tenant, key)
		return err
	}))
	require.NoError(t, repo.WithTx(context.Background(), func(ctx context.Context, tx periods.TxRepository) error {
		var err error
		second, err = periods.FindOrCreate(ctx, tx, tenant, key)
		return err
	}))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, periods.PeriodStatusOpen, first.Status)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), first.EndDate)

	svc := periods.NewService(repo)
	listed, err := svc.List(context.Background(), shared.Scope{TenantID: tenant}, 2024)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = svc.List(context.Background(), shared.Scope{TenantID: tenant}, 20240)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "2024-03", periods.MonthKey(2024, 3).String())
	assert.Equal(t, "2024", periods.YearKey(2024).String())
	assert.Equal(t, periods.MonthKey(2024, 12), periods.KeyFor(time.Date(2024, time.December, 31, 18, 0, 0, 0, time.UTC)))
	assert.Error(t, periods.MonthKey(2024, 13).Validate())

	start, end := periods.YearKey(2023).Bounds()
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), end)
}
