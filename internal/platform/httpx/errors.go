// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// Sentinel errors for transport concerns.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("tenant scope required")
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var ledgerErr *shared.Error
	rule := ""
	if errors.As(err, &ledgerErr) && ledgerErr.Rule != nil {
		rule = ledgerErr.Rule.Error()
	}
	switch {
	case errors.Is(err, shared.ErrValidation):
		write(w, ProblemDetail{Type: "validation", Title: "Validation Failed", Status: http.StatusUnprocessableEntity, Detail: err.Error(), Rule: rule})
	case errors.Is(err, shared.ErrState):
		write(w, ProblemDetail{Type: "state", Title: "Invalid State", Status: http.StatusConflict, Detail: err.Error(), Rule: rule})
	case errors.Is(err, shared.ErrNotFound):
		write(w, ProblemDetail{Type: "not-found", Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error()})
	case errors.Is(err, shared.ErrConcurrency):
		write(w, ProblemDetail{Type: "concurrency", Title: "Concurrent Modification", Status: http.StatusConflict, Detail: err.Error(), Rule: rule, Retryable: true})
	case errors.Is(err, ErrBadRequest):
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
