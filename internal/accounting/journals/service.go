package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	internalShared "github.com/rasyiqi-code/Counting-sub001/internal/shared"
)

// reversalSearchMonths bounds how far a reversal moves forward looking for an open month.
const reversalSearchMonths = 24

// AuditPort records journal transitions.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// CacheInvalidator drops cached reports of a tenant once posted balances change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// MetricsRecorder counts journal transitions.
type MetricsRecorder interface {
	RecordJournal(action string)
}

// Service is the double-entry journal ledger.
type Service struct {
	repo    Repository
	audit   AuditPort
	cache   CacheInvalidator
	metrics MetricsRecorder
	logger  *slog.Logger
	now     func() time.Time
	// managed source types cannot be voided or reversed here; their owners undo them.
	managed map[string]bool
}

// NewService constructs the journal ledger.
func NewService(repo Repository, audit AuditPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, logger: slog.Default(), now: time.Now, managed: make(map[string]bool)}
}

// Manage marks journals carrying one of sourceTypes as owned by another module. Void and
// Reverse reject them. Call during wiring, before serving requests.
func (s *Service) Manage(sourceTypes ...string) {
	for _, t := range sourceTypes {
		if t != "" {
			s.managed[t] = true
		}
	}
}

func (s *Service) ensureUnmanaged(j Journal) error {
	if s.managed[j.SourceType] {
		return shared.Conflict("journal", j.Number, shared.ErrJournalManaged, "source %s %s", j.SourceType, j.SourceID)
	}
	return nil
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithLogger sets the logger for failures after commit.
func (s *Service) WithLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// WithMetrics attaches a transition counter.
func (s *Service) WithMetrics(m MetricsRecorder) {
	s.metrics = m
}

// Get returns a journal with its entries, whatever its status.
func (s *Service) Get(ctx context.Context, scope shared.Scope, id int64) (Journal, error) {
	if err := scope.Validate(); err != nil {
		return Journal{}, err
	}
	return s.repo.Get(ctx, scope.TenantID, id)
}

// List returns journal headers ordered by date, newest first.
func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Journal, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.TenantID, filter)
}

// Create validates the input and stores a DRAFT journal under the next number of its year.
func (s *Service) Create(ctx context.Context, scope shared.Scope, in CreateInput, meta Meta) (Journal, error) {
	if err := validateRequest(scope, in, meta); err != nil {
		return Journal{}, err
	}
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		journal, err = s.create(ctx, tx, scope, in, meta, draftOptions{guard: true})
		return err
	})
	if err != nil {
		return Journal{}, err
	}
	s.Committed(ctx, scope, "journal.create", journal)
	return journal, nil
}

// Post moves a DRAFT journal to POSTED. Posting twice fails with a StateError.
func (s *Service) Post(ctx context.Context, scope shared.Scope, id int64) (Journal, error) {
	if err := scope.Validate(); err != nil {
		return Journal{}, err
	}
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, scope.TenantID, id)
		if err != nil {
			return err
		}
		journal, err = s.post(ctx, tx, scope, current, true)
		return err
	})
	if err != nil {
		return Journal{}, err
	}
	s.Committed(ctx, scope, "journal.post", journal)
	return journal, nil
}

// CreateAndPost creates and posts a journal in one transaction.
func (s *Service) CreateAndPost(ctx context.Context, scope shared.Scope, in CreateInput, meta Meta) (Journal, error) {
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		journal, err = s.PostInTx(ctx, tx, scope, in, PostOptions{Meta: meta})
		return err
	})
	if err != nil {
		return Journal{}, err
	}
	s.Committed(ctx, scope, "journal.post", journal)
	return journal, nil
}

// PostInTx creates and posts a journal inside a transaction owned by the caller. The caller
// reports the journal through Committed once its transaction commits.
func (s *Service) PostInTx(ctx context.Context, tx TxRepository, scope shared.Scope, in CreateInput, opts PostOptions) (Journal, error) {
	if err := validateRequest(scope, in, opts.Meta); err != nil {
		return Journal{}, err
	}
	guard := !opts.SkipPeriodGuard
	draft, err := s.create(ctx, tx, scope, in, opts.Meta, draftOptions{guard: guard})
	if err != nil {
		return Journal{}, err
	}
	return s.post(ctx, tx, scope, draft, guard)
}

// Void hides a POSTED journal from every aggregation. No reversing journal is produced.
func (s *Service) Void(ctx context.Context, scope shared.Scope, id int64, reason string) (Journal, error) {
	if err := scope.Validate(); err != nil {
		return Journal{}, err
	}
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, scope.TenantID, id)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusPosted {
			return shared.Conflict("journal", current.Number, shared.ErrJournalNotPosted, "status %s", current.Status)
		}
		if err := s.ensureUnmanaged(current); err != nil {
			return err
		}
		if err := periods.EnsureOpen(ctx, tx.Periods(), scope.TenantID, current.Date); err != nil {
			return err
		}
		now := s.now()
		actor := scope.ActorID
		current.Status = JournalStatusVoid
		current.VoidedBy = &actor
		current.VoidedAt = &now
		current.VoidReason = reason
		if err := tx.UpdateStatus(ctx, current); err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, scope.TenantID, current, decimal.NewFromInt(-1)); err != nil {
			return err
		}
		journal = current
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.Committed(ctx, scope, "journal.void", journal)
	return journal, nil
}

// Reverse posts a new journal with debit and credit swapped, leaving the original POSTED.
func (s *Service) Reverse(ctx context.Context, scope shared.Scope, id int64, in ReverseInput) (Journal, error) {
	if err := scope.Validate(); err != nil {
		return Journal{}, err
	}
	if err := shared.ValidateStruct("journal", in); err != nil {
		return Journal{}, err
	}
	var reversal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetForUpdate(ctx, scope.TenantID, id)
		if err != nil {
			return err
		}
		if original.Status != JournalStatusPosted {
			return shared.Conflict("journal", original.Number, shared.ErrJournalNotPosted, "status %s", original.Status)
		}
		if err := s.ensureUnmanaged(original); err != nil {
			return err
		}
		if existing, found, err := tx.FindReversal(ctx, scope.TenantID, original.ID); err != nil {
			return err
		} else if found {
			return shared.Conflict("journal", original.Number, shared.ErrJournalReversed, "reversal %d", existing)
		}
		var date time.Time
		if in.Date != nil {
			date = periods.DateOnly(*in.Date)
			if err := periods.EnsureOpen(ctx, tx.Periods(), scope.TenantID, date); err != nil {
				return err
			}
		} else if date, err = nextOpenDate(ctx, tx.Periods(), scope.TenantID, original.Date); err != nil {
			return err
		}
		input := CreateInput{
			Date:        date,
			Description: defaultReversalMemo(in.Memo, original.Number),
			ReferenceNo: original.Number,
			Entries:     reverseEntries(original.Entries),
		}
		draft, err := s.create(ctx, tx, scope, input, Meta{}, draftOptions{reversalOf: &original.ID})
		if err != nil {
			return err
		}
		reversal, err = s.post(ctx, tx, scope, draft, false)
		return err
	})
	if err != nil {
		return Journal{}, err
	}
	s.Committed(ctx, scope, "journal.reverse", reversal)
	return reversal, nil
}

// Committed publishes side effects of journals whose transaction has committed.
func (s *Service) Committed(ctx context.Context, scope shared.Scope, action string, journals ...Journal) {
	if len(journals) == 0 {
		return
	}
	if s.cache != nil && action != "journal.create" {
		if err := s.cache.Invalidate(ctx, scope.TenantID); err != nil {
			s.logger.Warn("report cache invalidation failed", slog.String("tenant", scope.TenantID.String()), slog.String("action", action), slog.Any("error", err))
		}
	}
	for _, j := range journals {
		if s.metrics != nil {
			s.metrics.RecordJournal(action)
		}
		if s.audit == nil {
			continue
		}
		meta := map[string]any{
			"number": j.Number,
			"status": j.Status,
		}
		if j.SourceType != "" {
			meta["source_type"] = j.SourceType
			meta["source_id"] = j.SourceID
		}
		if j.VoidReason != "" {
			meta["reason"] = j.VoidReason
		}
		if j.ReversalOf != nil {
			meta["reversal_of"] = *j.ReversalOf
		}
		err := s.audit.Record(ctx, internalShared.AuditLog{
			TenantID: scope.TenantID,
			ActorID:  scope.ActorID,
			Action:   action,
			Entity:   "journal",
			EntityID: fmt.Sprintf("%d", j.ID),
			Meta:     meta,
			At:       s.now(),
		})
		if err != nil {
			s.logger.Warn("journal audit failed", slog.Int64("journal", j.ID), slog.String("action", action), slog.Any("error", err))
		}
	}
}

type draftOptions struct {
	guard      bool
	reversalOf *int64
}

func validateRequest(scope shared.Scope, in CreateInput, meta Meta) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	return meta.Validate()
}

func (s *Service) create(ctx context.Context, tx TxRepository, scope shared.Scope, in CreateInput, meta Meta, opts draftOptions) (Journal, error) {
	date := periods.DateOnly(in.Date)
	if opts.guard {
		if err := periods.EnsureOpen(ctx, tx.Periods(), scope.TenantID, date); err != nil {
			return Journal{}, err
		}
	}
	entries := make([]JournalEntry, 0, len(in.Entries))
	for idx, e := range in.Entries {
		entries = append(entries, JournalEntry{
			LineNo:      idx + 1,
			AccountID:   e.AccountID,
			Debit:       e.Debit,
			Credit:      e.Credit,
			Description: e.Description,
		})
	}
	if err := ensureAccounts(ctx, tx, scope.TenantID, entries); err != nil {
		return Journal{}, err
	}
	number, err := tx.NextNumber(ctx, scope.TenantID, date.Year())
	if err != nil {
		return Journal{}, err
	}
	return tx.Insert(ctx, Journal{
		TenantID:    scope.TenantID,
		Number:      number,
		Date:        date,
		Description: in.Description,
		ReferenceNo: in.ReferenceNo,
		SourceType:  meta.SourceType,
		SourceID:    meta.SourceID,
		Status:      JournalStatusDraft,
		ReversalOf:  opts.reversalOf,
		CreatedBy:   scope.ActorID,
		Entries:     entries,
	})
}

func (s *Service) post(ctx context.Context, tx TxRepository, scope shared.Scope, j Journal, guard bool) (Journal, error) {
	if j.Status != JournalStatusDraft {
		return Journal{}, shared.Conflict("journal", j.Number, shared.ErrJournalNotDraft, "status %s", j.Status)
	}
	if len(j.Entries) < 2 {
		return Journal{}, shared.Invalid("journal", j.Number, shared.ErrTooFewLines, "got %d", len(j.Entries))
	}
	if debit, credit := j.Totals(); !debit.Equal(credit) {
		return Journal{}, shared.Invalid("journal", j.Number, shared.ErrUnbalanced, "debit %s credit %s",
			debit.StringFixed(shared.AmountScale), credit.StringFixed(shared.AmountScale))
	}
	if guard {
		if err := periods.EnsureOpen(ctx, tx.Periods(), scope.TenantID, j.Date); err != nil {
			return Journal{}, err
		}
	}
	if err := ensureAccounts(ctx, tx, scope.TenantID, j.Entries); err != nil {
		return Journal{}, err
	}
	now := s.now()
	actor := scope.ActorID
	j.Status = JournalStatusPosted
	j.PostedBy = &actor
	j.PostedAt = &now
	if err := tx.UpdateStatus(ctx, j); err != nil {
		return Journal{}, err
	}
	if err := applyBalances(ctx, tx, scope.TenantID, j, decimal.NewFromInt(1)); err != nil {
		return Journal{}, err
	}
	return j, nil
}

// ensureAccounts requires every entry account to exist in the tenant and be active.
func ensureAccounts(ctx context.Context, tx TxRepository, tenantID uuid.UUID, entries []JournalEntry) error {
	ids := accountIDs(entries)
	found, err := tx.Accounts().GetMany(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	for _, e := range entries {
		account, ok := found[e.AccountID]
		if !ok {
			return shared.Invalid("journal", nil, shared.ErrAccountNotFound, "line %d account %d", e.LineNo, e.AccountID)
		}
		if !account.IsActive {
			return shared.Invalid("journal", nil, shared.ErrAccountInactive, "line %d account %s", e.LineNo, account.Code)
		}
	}
	return nil
}

// applyBalances moves cached account balances by the journal effect times sign.
func applyBalances(ctx context.Context, tx TxRepository, tenantID uuid.UUID, j Journal, sign decimal.Decimal) error {
	ids := accountIDs(j.Entries)
	found, err := tx.Accounts().GetMany(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	deltas := make(map[int64]decimal.Decimal, len(ids))
	for _, e := range j.Entries {
		account, ok := found[e.AccountID]
		if !ok {
			return shared.NotFound("account", e.AccountID)
		}
		deltas[e.AccountID] = deltas[e.AccountID].Add(account.Type.NormalBalance(e.Debit, e.Credit))
	}
	for _, id := range ids {
		if err := tx.Accounts().AdjustBalance(ctx, tenantID, id, deltas[id].Mul(sign)); err != nil {
			return err
		}
	}
	return nil
}

func accountIDs(entries []JournalEntry) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.AccountID]; ok {
			continue
		}
		seen[e.AccountID] = struct{}{}
		ids = append(ids, e.AccountID)
	}
	return ids
}

// nextOpenDate keeps date when its month accepts postings, otherwise moves to the first day of
// the next month that does. Locked years stop the search.
func nextOpenDate(ctx context.Context, tx periods.TxRepository, tenantID uuid.UUID, date time.Time) (time.Time, error) {
	date = periods.DateOnly(date)
	for i := 0; i < reversalSearchMonths; i++ {
		err := periods.EnsureOpen(ctx, tx, tenantID, date)
		if err == nil {
			return date, nil
		}
		if !errors.Is(err, shared.ErrPeriodClosed) {
			return time.Time{}, err
		}
		date = time.Date(date.Year(), date.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}, shared.Conflict("journal", nil, shared.ErrPeriodClosed, "no open month within %d months", reversalSearchMonths)
}

func reverseEntries(entries []JournalEntry) []EntryInput {
	out := make([]EntryInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryInput{
			AccountID:   e.AccountID,
			Debit:       e.Credit,
			Credit:      e.Debit,
			Description: e.Description,
		})
	}
	return out
}

func defaultReversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return "Reversal of " + number
}
