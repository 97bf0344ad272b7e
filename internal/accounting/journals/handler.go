package journals

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/httpx"
)

type journalService interface {
	Get(ctx context.Context, scope shared.Scope, id int64) (Journal, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Journal, error)
	Create(ctx context.Context, scope shared.Scope, in CreateInput, meta Meta) (Journal, error)
	CreateAndPost(ctx context.Context, scope shared.Scope, in CreateInput, meta Meta) (Journal, error)
	Post(ctx context.Context, scope shared.Scope, id int64) (Journal, error)
	Void(ctx context.Context, scope shared.Scope, id int64, reason string) (Journal, error)
	Reverse(ctx context.Context, scope shared.Scope, id int64, in ReverseInput) (Journal, error)
}

// Handler exposes the journal ledger over JSON.
type Handler struct {
	logger  *slog.Logger
	service journalService
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service journalService) *Handler {
	return &Handler{logger: logger, service: service}
}

type createRequest struct {
	Date        string       `json:"date"`
	Description string       `json:"description"`
	ReferenceNo string       `json:"reference_no"`
	Entries     []EntryInput `json:"entries"`
	SourceType  string       `json:"source_type"`
	SourceID    string       `json:"source_id"`
	Post        bool         `json:"post"`
}

type voidRequest struct {
	Reason string `json:"reason"`
}

type reverseRequest struct {
	Date string `json:"date"`
	Memo string `json:"memo"`
}

// List returns journal headers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := ListFilter{
		Status:     JournalStatus(r.URL.Query().Get("status")),
		SourceType: r.URL.Query().Get("source_type"),
	}
	if filter.From, err = httpx.DateQuery(r, "from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = httpx.DateQuery(r, "to"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	journals, err := h.service.List(r.Context(), scope, filter)
	if err != nil {
		h.fail(w, "list journals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": journals})
}

// Get returns one journal with entries.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	journal, err := h.service.Get(r.Context(), scope, id)
	if err != nil {
		h.fail(w, "get journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, journal)
}

// Create stores a DRAFT journal, or a POSTED one when the request asks for it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, err := httpx.Scope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid date", httpx.ErrBadRequest))
		return
	}
	in := CreateInput{Date: date, Description: req.Description, ReferenceNo: req.ReferenceNo, Entries: req.Entries}
	meta := Meta{SourceType: req.SourceType, SourceID: req.SourceID}
	create := h.service.Create
	if req.Post {
		create = h.service.CreateAndPost
	}
	journal, err := create(r.Context(), scope, in, meta)
	if err != nil {
		h.fail(w, "create journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, journal)
}

// Post moves a DRAFT journal to POSTED.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	journal, err := h.service.Post(r.Context(), scope, id)
	if err != nil {
		h.fail(w, "post journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, journal)
}

// Void hides a POSTED journal.
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req voidRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	journal, err := h.service.Void(r.Context(), scope, id, req.Reason)
	if err != nil {
		h.fail(w, "void journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, journal)
}

// Reverse posts the mirror image of a POSTED journal.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req reverseRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	in := ReverseInput{Memo: req.Memo}
	if req.Date != "" {
		date, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid date", httpx.ErrBadRequest))
			return
		}
		in.Date = &date
	}
	journal, err := h.service.Reverse(r.Context(), scope, id, in)
	if err != nil {
		h.fail(w, "reverse journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, journal)
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
