package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/httpx"
)

type reportService interface {
	TrialBalance(ctx context.Context, scope shared.Scope, filter Filter) (TrialBalance, error)
	ProfitAndLoss(ctx context.Context, scope shared.Scope, start, end time.Time) (ProfitAndLoss, error)
	BalanceSheet(ctx context.Context, scope shared.Scope, asOf time.Time) (BalanceSheet, error)
}

// Handler serves ledger reports over JSON.
type Handler struct {
	logger  *slog.Logger
	service reportService
	now     func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service reportService) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers HTTP routes for reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/trial-balance", h.trialBalance)
		r.Get("/profit-loss", h.profitAndLoss)
		r.Get("/balance-sheet", h.balanceSheet)
	})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var filter Filter
	if filter.Start, err = httpx.DateQuery(r, "start_date"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.End, err = httpx.DateQuery(r, "end_date"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), scope, filter)
	if err != nil {
		h.fail(w, "trial balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	start, err := httpx.DateQuery(r, "start_date")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := httpx.DateQuery(r, "end_date")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if start == nil || end == nil {
		httpx.RespondError(w, fmt.Errorf("%w: start_date and end_date required", httpx.ErrBadRequest))
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), scope, *start, *end)
	if err != nil {
		h.fail(w, "profit and loss", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asOf, err := httpx.DateQuery(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	date := h.now()
	if asOf != nil {
		date = *asOf
	}
	bs, err := h.service.BalanceSheet(r.Context(), scope, date)
	if err != nil {
		h.fail(w, "balance sheet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
