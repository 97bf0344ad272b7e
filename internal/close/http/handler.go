package closehttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/close"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/httpx"
)

type closeService interface {
	ListPeriods(ctx context.Context, scope shared.Scope, year int) ([]periods.Period, error)
	CloseMonth(ctx context.Context, scope shared.Scope, year, month int) (periods.Period, error)
	ReopenPeriod(ctx context.Context, scope shared.Scope, year, month int) (periods.Period, error)
	CloseYear(ctx context.Context, scope shared.Scope, year int) (close.YearEndResult, error)
}

// Handler wires HTTP endpoints for accounting period closing.
type Handler struct {
	logger  *slog.Logger
	service closeService
	now     func() time.Time
}

// NewHandler constructs a close HTTP handler.
func NewHandler(logger *slog.Logger, service closeService) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		now:     time.Now,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Get("/", h.listPeriods)
		r.Post("/{year}/close", h.closeYear)
		r.Post("/{year}/{month}/close", h.closeMonth)
		r.Post("/{year}/{month}/reopen", h.reopen)
	})
}

type periodView struct {
	Year     int                  `json:"year"`
	Month    *int                 `json:"month,omitempty"`
	Key      string               `json:"key"`
	Start    string               `json:"start_date"`
	End      string               `json:"end_date"`
	Status   periods.PeriodStatus `json:"status"`
	ClosedAt *time.Time           `json:"closed_at,omitempty"`
	ClosedBy *int64               `json:"closed_by,omitempty"`
}

func toView(p periods.Period) periodView {
	return periodView{
		Year:     p.Year,
		Month:    p.Month,
		Key:      p.Key().String(),
		Start:    p.StartDate.Format(time.DateOnly),
		End:      p.EndDate.Format(time.DateOnly),
		Status:   p.Status,
		ClosedAt: p.ClosedAt,
		ClosedBy: p.ClosedBy,
	}
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year := h.now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid year", httpx.ErrBadRequest))
			return
		}
	}
	list, err := h.service.ListPeriods(r.Context(), scope, year)
	if err != nil {
		h.fail(w, "list periods", err)
		return
	}
	views := make([]periodView, 0, len(list))
	for _, p := range list {
		views = append(views, toView(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"year": year, "periods": views})
}

func (h *Handler) closeMonth(w http.ResponseWriter, r *http.Request) {
	scope, year, month, ok := h.month(w, r)
	if !ok {
		return
	}
	period, err := h.service.CloseMonth(r.Context(), scope, year, month)
	if err != nil {
		h.fail(w, "close month", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(period))
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	scope, year, month, ok := h.month(w, r)
	if !ok {
		return
	}
	period, err := h.service.ReopenPeriod(r.Context(), scope, year, month)
	if err != nil {
		h.fail(w, "reopen period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(period))
}

func (h *Handler) closeYear(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year, err := httpx.IntParam(r, "year")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CloseYear(r.Context(), scope, year)
	if err != nil {
		h.fail(w, "close year", err)
		return
	}
	views := make([]periodView, 0, len(result.Periods))
	for _, p := range result.Periods {
		views = append(views, toView(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"year":       result.Year,
		"net_income": result.NetIncome,
		"journal":    result.Journal,
		"periods":    views,
	})
}

func (h *Handler) month(w http.ResponseWriter, r *http.Request) (shared.Scope, int, int, bool) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Scope{}, 0, 0, false
	}
	year, err := httpx.IntParam(r, "year")
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Scope{}, 0, 0, false
	}
	month, err := httpx.IntParam(r, "month")
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Scope{}, 0, 0, false
	}
	return scope, year, month, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
