package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/app"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
	closehttp "github.com/rasyiqi-code/Counting-sub001/internal/close/http"
	"github.com/rasyiqi-code/Counting-sub001/internal/observability"
	"github.com/rasyiqi-code/Counting-sub001/internal/testing/ledgertest"
	"github.com/rasyiqi-code/Counting-sub001/jobs"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newServer(t *testing.T, l *ledgertest.Ledger, db app.Pinger) (http.Handler, *observability.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	l.Journals.WithMetrics(metrics)
	cfg := &app.Config{AppEnv: "production", RateLimitPerMinute: 1000}
	return app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accounts.NewHandler(logger, l.Accounts),
		JournalsHandler: journals.NewHandler(logger, l.Journals),
		ReportsHandler:  reports.NewHandler(logger, l.Reports),
		AssetsHandler:   assets.NewHandler(logger, l.Assets),
		CloseHandler:    closehttp.NewHandler(logger, l.Close),
		JobHandler:      jobs.NewHandler(nil, logger),
		Database:        db,
		Metrics:         metrics,
	}), metrics
}

func call(t *testing.T, h http.Handler, l *ledgertest.Ledger, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-Proto", "https")
	if l != nil {
		req.Header.Set(app.HeaderTenantID, l.Scope.TenantID.String())
		req.Header.Set(app.HeaderActorID, strconv.FormatInt(l.Scope.ActorID, 10))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPostJournalAndReadTrialBalance(t *testing.T) {
	l := ledgertest.New(t)
	h, _ := newServer(t, l, nil)

	rr := call(t, h, l, http.MethodPost, "/api/v1/journals", map[string]any{
		"date":        "2024-01-02",
		"description": "Setoran modal",
		"post":        true,
		"entries": []map[string]any{
			{"account_id": l.ID(t, "1-1000"), "debit": "1000000", "credit": "0"},
			{"account_id": l.ID(t, "3-1000"), "debit": "0", "credit": "1000000"},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var journal journals.Journal
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&journal))
	assert.Equal(t, journals.JournalStatusPosted, journal.Status)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = call(t, h, l, http.MethodGet, "/api/v1/reports/trial-balance?end_date=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var tb reports.TrialBalance
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tb))
	assert.True(t, tb.IsBalanced)
	assert.True(t, tb.TotalDebit.Equal(decimal.NewFromInt(1000000)))

	rr = call(t, h, nil, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `ledger_journal_transitions_total{action="journal.post"} 1`)
	assert.Contains(t, rr.Body.String(), `ledger_http_requests_total{code="201"`)
}

func TestUnbalancedJournalIsUnprocessable(t *testing.T) {
	l := ledgertest.New(t)
	h, _ := newServer(t, l, nil)

	rr := call(t, h, l, http.MethodPost, "/api/v1/journals", map[string]any{
		"date": "2024-01-02",
		"entries": []map[string]any{
			{"account_id": l.ID(t, "1-1000"), "debit": "100", "credit": "0"},
			{"account_id": l.ID(t, "3-1000"), "debit": "0", "credit": "90"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"rule":"journal lines must balance"`)
}

func TestScopeHeaders(t *testing.T) {
	l := ledgertest.New(t)
	h, _ := newServer(t, l, nil)

	rr := call(t, h, nil, http.MethodGet, "/api/v1/accounts", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set(app.HeaderTenantID, "not-a-uuid")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set(app.HeaderTenantID, l.Scope.TenantID.String())
	req.Header.Set(app.HeaderActorID, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(t, h, l, http.MethodGet, "/api/v1/accounts", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthz(t *testing.T) {
	l := ledgertest.New(t)
	healthy, _ := newServer(t, l, pingFunc(func(context.Context) error { return nil }))
	rr := call(t, healthy, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	down, _ := newServer(t, ledgertest.New(t), pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	rr = call(t, down, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = call(t, healthy, l, http.MethodGet, "/api/v1/jobs/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
