package accounts

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLoadDefaultChart(t *testing.T) {
	chart, err := LoadChart("../../../configs/chart.toml")
	require.NoError(t, err)
	require.NotEmpty(t, chart.Accounts)

	codes := make(map[string]ChartAccount, len(chart.Accounts))
	for _, a := range chart.Accounts {
		assert.True(t, a.Type.Valid(), "%s has type %s", a.Code, a.Type)
		_, dup := codes[a.Code]
		assert.False(t, dup, "duplicate code %s", a.Code)
		codes[a.Code] = a
	}
	for _, a := range chart.Accounts {
		if a.Parent != "" {
			_, ok := codes[a.Parent]
			assert.True(t, ok, "%s references unknown parent %s", a.Code, a.Parent)
		}
	}
	for key, code := range chart.Mappings {
		_, ok := codes[code]
		assert.True(t, ok, "mapping %s references unknown code %s", key, code)
	}
	assert.Contains(t, chart.Mappings, "RETAINED_EARNINGS")
}

func TestParseChartRejectsMalformed(t *testing.T) {
	_, err := ParseChart(strings.NewReader("[[account]\ncode = "))
	assert.Error(t, err)
}
