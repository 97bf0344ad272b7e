package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/testing/ledgertest"
)

type line = ledgertest.Line

func TestYearMonth(t *testing.T) {
	year, month, err := yearMonth([]string{"2024", "3"})
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 3, month)

	year, month, err = yearMonth([]string{"2024"})
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Zero(t, month)

	for _, args := range [][]string{{"20x4"}, {"2024", "13"}, {"2024", "0"}, {"99"}} {
		_, _, err := yearMonth(args)
		assert.Error(t, err, args)
	}
}

func TestScopeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("tenant", "", "")
	cmd.Flags().Int64("actor", 0, "")

	_, err := scopeFlags(cmd)
	assert.ErrorContains(t, err, "tenant required")

	require.NoError(t, cmd.Flags().Set("tenant", "nope"))
	_, err = scopeFlags(cmd)
	assert.Error(t, err)

	require.NoError(t, cmd.Flags().Set("tenant", "6f1c2c3e-7d4b-4b6a-9a59-2f1d7d0c9e11"))
	require.NoError(t, cmd.Flags().Set("actor", "9"))
	scope, err := scopeFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(9), scope.ActorID)
	assert.Equal(t, "6f1c2c3e-7d4b-4b6a-9a59-2f1d7d0c9e11", scope.TenantID.String())
}

func TestRenderReports(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	l.Post(t, ledgertest.Date(2024, time.January, 2), "modal", line{Code: "1-1000", Debit: "1000"}, line{Code: "3-1000", Credit: "1000"})
	l.Post(t, ledgertest.Date(2024, time.February, 3), "penjualan", line{Code: "1-1000", Debit: "250.5"}, line{Code: "4-1000", Credit: "250.5"})

	end := ledgertest.Date(2024, time.February, 29)
	tb, err := l.Reports.TrialBalance(ctx, l.Scope, reports.Filter{End: &end})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, writeTrialBalance(&buf, tb, "USD"))
	assert.Contains(t, buf.String(), "Trial balance as of 2024-02-29")
	assert.Contains(t, buf.String(), "$1,250.50")
	assert.NotContains(t, buf.String(), "UNBALANCED")

	pl, err := l.Reports.ProfitAndLoss(ctx, l.Scope, ledgertest.Date(2024, time.February, 1), end)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, writeProfitAndLoss(&buf, pl, "USD"))
	assert.Contains(t, buf.String(), "4-1000 Pendapatan")
	assert.Contains(t, buf.String(), "$250.50")

	bs, err := l.Reports.BalanceSheet(ctx, l.Scope, end)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, writeBalanceSheet(&buf, bs, "USD"))
	assert.Contains(t, buf.String(), "Unclosed earnings")
	assert.NotContains(t, buf.String(), "UNBALANCED")

	_, err = l.Close.CloseMonth(ctx, l.Scope, 2024, 1)
	require.NoError(t, err)
	list, err := l.Close.ListPeriods(ctx, l.Scope, 2024)
	require.NoError(t, err)
	buf.Reset()
	writePeriods(&buf, list)
	assert.Contains(t, buf.String(), "2024-01")
	assert.Contains(t, buf.String(), "CLOSED")

	buf.Reset()
	writePeriods(&buf, nil)
	assert.Equal(t, "no periods\n", buf.String())
}

func TestCommandsRequireTenant(t *testing.T) {
	t.Setenv("LEDGER_TENANT_ID", "")
	for _, args := range [][]string{{"seed"}, {"report", "tb"}, {"period", "close", "2024", "1"}, {"depreciation", "run", "2024", "1"}} {
		rootCmd.SetArgs(append(args, "--tenant", ""))
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		err := rootCmd.ExecuteContext(context.Background())
		assert.ErrorContains(t, err, "tenant required", args)
	}
}
