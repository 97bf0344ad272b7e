package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		rule      string
		retryable bool
	}{
		{"validation", shared.Invalid("journal", nil, shared.ErrUnbalanced, "debit %s", "1"), http.StatusUnprocessableEntity, "journal lines must balance", false},
		{"state", fmt.Errorf("post: %w", shared.Conflict("journal", "JV/2024/00001", shared.ErrJournalNotDraft, "")), http.StatusConflict, "journal is not in DRAFT status", false},
		{"not found", shared.NotFound("asset", int64(9)), http.StatusNotFound, "", false},
		{"concurrency", shared.Concurrent("journal", nil, "number %s", "JV/2024/00001"), http.StatusConflict, "document number already allocated", true},
		{"bad request", fmt.Errorf("%w: invalid id", ErrBadRequest), http.StatusBadRequest, "", false},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "", false},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.rule, body.Rule)
			assert.Equal(t, tc.retryable, body.Retryable)
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("password=secret"))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestScopeRequiresContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Scope(req)
	assert.ErrorIs(t, err, ErrUnauthorized)

	want := shared.Scope{ActorID: 3}
	req = req.WithContext(shared.ContextWithScope(req.Context(), want))
	got, err := Scope(req)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDateQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?as_of=2024-03-31&bad=31-03-2024", nil)
	got, err := DateQuery(req, "as_of")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-31", got.Format("2006-01-02"))

	missing, err := DateQuery(req, "start")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = DateQuery(req, "bad")
	assert.ErrorIs(t, err, ErrBadRequest)
}
