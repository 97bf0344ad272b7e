package assets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/httpx"
)

type assetService interface {
	Get(ctx context.Context, scope shared.Scope, id int64) (Asset, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Asset, error)
	Depreciations(ctx context.Context, scope shared.Scope, id int64) ([]Depreciation, error)
	Schedule(ctx context.Context, scope shared.Scope, id int64) ([]ScheduleLine, error)
	Register(ctx context.Context, scope shared.Scope, in RegisterInput) (Asset, error)
	CalculateDepreciation(ctx context.Context, scope shared.Scope, assetID int64, key periods.Key) (Depreciation, error)
	RunDepreciation(ctx context.Context, scope shared.Scope, key periods.Key) (RunResult, error)
	Dispose(ctx context.Context, scope shared.Scope, assetID int64, in DisposeInput) (DisposalResult, error)
}

// Handler exposes fixed assets over JSON.
type Handler struct {
	logger  *slog.Logger
	service assetService
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service assetService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for fixed assets.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.register)
		r.Post("/depreciation-runs", h.run)
		r.Get("/{id}", h.get)
		r.Get("/{id}/depreciations", h.depreciations)
		r.Get("/{id}/schedule", h.schedule)
		r.Post("/{id}/depreciate", h.depreciate)
		r.Post("/{id}/dispose", h.dispose)
	})
}

type registerRequest struct {
	Name                 string          `json:"name"`
	Category             string          `json:"category"`
	PurchaseDate         string          `json:"purchase_date"`
	PurchasePrice        decimal.Decimal `json:"purchase_price"`
	ResidualValue        decimal.Decimal `json:"residual_value"`
	UsefulLifeMonths     int             `json:"useful_life_months"`
	Method               Method          `json:"method"`
	AssetAccountID       int64           `json:"asset_account_id"`
	ExpenseAccountID     int64           `json:"expense_account_id"`
	AccumulatedAccountID int64           `json:"accumulated_account_id"`
}

type periodRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type disposeRequest struct {
	Date              string          `json:"date"`
	Proceeds          decimal.Decimal `json:"proceeds"`
	CashAccountID     int64           `json:"cash_account_id"`
	GainLossAccountID int64           `json:"gain_loss_account_id"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	assets, err := h.service.List(r.Context(), scope, ListFilter{Status: Status(r.URL.Query().Get("status"))})
	if err != nil {
		h.fail(w, "list assets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assets": assets})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	asset, err := h.service.Get(r.Context(), scope, id)
	if err != nil {
		h.fail(w, "get asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) depreciations(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Depreciations(r.Context(), scope, id)
	if err != nil {
		h.fail(w, "list depreciations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"depreciations": rows})
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	lines, err := h.service.Schedule(r.Context(), scope, id)
	if err != nil {
		h.fail(w, "asset schedule", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"schedule": lines})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchased, err := time.Parse(time.DateOnly, req.PurchaseDate)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid purchase_date", httpx.ErrBadRequest))
		return
	}
	asset, err := h.service.Register(r.Context(), scope, RegisterInput{
		Name:                 req.Name,
		Category:             req.Category,
		PurchaseDate:         purchased,
		PurchasePrice:        req.PurchasePrice,
		ResidualValue:        req.ResidualValue,
		UsefulLifeMonths:     req.UsefulLifeMonths,
		Method:               req.Method,
		AssetAccountID:       req.AssetAccountID,
		ExpenseAccountID:     req.ExpenseAccountID,
		AccumulatedAccountID: req.AccumulatedAccountID,
	})
	if err != nil {
		h.fail(w, "register asset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) depreciate(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req periodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	row, err := h.service.CalculateDepreciation(r.Context(), scope, id, periods.MonthKey(req.Year, req.Month))
	if err != nil {
		h.fail(w, "depreciate asset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, row)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req periodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := periods.MonthKey(req.Year, req.Month)
	if err := key.Validate(); err != nil || key.IsYear() {
		httpx.RespondError(w, fmt.Errorf("%w: invalid period", httpx.ErrBadRequest))
		return
	}
	result, err := h.service.RunDepreciation(r.Context(), scope, key)
	if err != nil {
		h.fail(w, "depreciation run", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) dispose(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req disposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid date", httpx.ErrBadRequest))
		return
	}
	result, err := h.service.Dispose(r.Context(), scope, id, DisposeInput{
		Date:              date,
		Proceeds:          req.Proceeds,
		CashAccountID:     req.CashAccountID,
		GainLossAccountID: req.GainLossAccountID,
	})
	if err != nil {
		h.fail(w, "dispose asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (shared.Scope, int64, bool) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Scope{}, 0, false
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Scope{}, 0, false
	}
	return scope, id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
