package close

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	internalShared "github.com/rasyiqi-code/Counting-sub001/internal/shared"
)

// Ledger posts journals inside a transaction owned by the coordinator.
type Ledger interface {
	PostInTx(ctx context.Context, tx journals.TxRepository, scope shared.Scope, in journals.CreateInput, opts journals.PostOptions) (journals.Journal, error)
	Committed(ctx context.Context, scope shared.Scope, action string, js ...journals.Journal)
	Manage(sourceTypes ...string)
}

// AuditPort records period transitions.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service orchestrates month closing, year-end closing and reopening.
type Service struct {
	repo   Repository
	ledger Ledger
	audit  AuditPort
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, ledger Ledger, audit AuditPort) *Service {
	if ledger != nil {
		ledger.Manage(SourceYearEnd)
	}
	return &Service{
		repo:   repo,
		ledger: ledger,
		audit:  audit,
		now:    time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListPeriods returns the stored periods of a year, months first then the year record.
func (s *Service) ListPeriods(ctx context.Context, scope shared.Scope, year int) ([]periods.Period, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := periods.YearKey(year).Validate(); err != nil {
		return nil, shared.Invalid("period", nil, shared.ErrInvalidInput, "%s", err.Error())
	}
	return s.repo.ListPeriods(ctx, scope.TenantID, year)
}

// EnsureOpen rejects dates inside CLOSED or LOCKED periods. It runs on the caller's transaction.
func (s *Service) EnsureOpen(ctx context.Context, tx periods.TxRepository, scope shared.Scope, date time.Time) error {
	return periods.EnsureOpen(ctx, tx, scope.TenantID, date)
}

// CloseMonth closes a calendar month. DRAFT journals dated inside it block the close.
func (s *Service) CloseMonth(ctx context.Context, scope shared.Scope, year, month int) (periods.Period, error) {
	key := periods.MonthKey(year, month)
	if err := validateMonth(scope, key); err != nil {
		return periods.Period{}, err
	}
	var closed periods.Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := ensureYearNotLocked(ctx, tx, scope, year); err != nil {
			return err
		}
		period, err := periods.FindOrCreate(ctx, tx.Periods(), scope.TenantID, key)
		if err != nil {
			return err
		}
		switch period.Status {
		case periods.PeriodStatusLocked:
			return shared.Conflict("period", key.String(), shared.ErrPeriodLocked, "")
		case periods.PeriodStatusClosed:
			return shared.Conflict("period", key.String(), shared.ErrPeriodClosed, "already closed")
		}
		drafts, err := tx.Journals().CountDrafts(ctx, scope.TenantID, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		if drafts > 0 {
			return shared.Conflict("period", key.String(), shared.ErrUnpostedJournals, "%d draft journals", drafts)
		}
		s.stamp(&period, scope, periods.PeriodStatusClosed)
		if err := tx.Periods().UpdateStatus(ctx, period); err != nil {
			return err
		}
		closed = period
		return nil
	})
	if err != nil {
		return periods.Period{}, err
	}
	s.record(ctx, scope, "period.close", key, nil)
	return closed, nil
}

// ReopenPeriod moves a CLOSED month back to OPEN. Locked months stay locked.
func (s *Service) ReopenPeriod(ctx context.Context, scope shared.Scope, year, month int) (periods.Period, error) {
	key := periods.MonthKey(year, month)
	if err := validateMonth(scope, key); err != nil {
		return periods.Period{}, err
	}
	var reopened periods.Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := ensureYearNotLocked(ctx, tx, scope, year); err != nil {
			return err
		}
		period, err := tx.Periods().GetForUpdate(ctx, scope.TenantID, key)
		if err != nil {
			return err
		}
		switch period.Status {
		case periods.PeriodStatusLocked:
			return shared.Conflict("period", key.String(), shared.ErrPeriodLocked, "")
		case periods.PeriodStatusOpen:
			return shared.Conflict("period", key.String(), shared.ErrPeriodOpen, "")
		}
		period.Status = periods.PeriodStatusOpen
		period.ClosedAt = nil
		period.ClosedBy = nil
		if err := tx.Periods().UpdateStatus(ctx, period); err != nil {
			return err
		}
		reopened = period
		return nil
	})
	if err != nil {
		return periods.Period{}, err
	}
	s.record(ctx, scope, "period.reopen", key, nil)
	return reopened, nil
}

// CloseYear posts the closing journal that zeroes every income statement account into retained
// earnings, then locks the twelve months and the year record. Everything happens in one
// transaction.
func (s *Service) CloseYear(ctx context.Context, scope shared.Scope, year int) (YearEndResult, error) {
	if err := scope.Validate(); err != nil {
		return YearEndResult{}, err
	}
	yearKey := periods.YearKey(year)
	if err := yearKey.Validate(); err != nil {
		return YearEndResult{}, shared.Invalid("period", nil, shared.ErrInvalidInput, "%s", err.Error())
	}
	start, end := yearKey.Bounds()
	result := YearEndResult{Year: year, NetIncome: decimal.Zero}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		record, err := periods.FindOrCreate(ctx, tx.Periods(), scope.TenantID, yearKey)
		if err != nil {
			return err
		}
		if record.Status == periods.PeriodStatusLocked {
			return shared.Conflict("period", yearKey.String(), shared.ErrPeriodLocked, "")
		}
		drafts, err := tx.Journals().CountDrafts(ctx, scope.TenantID, start, end)
		if err != nil {
			return err
		}
		if drafts > 0 {
			return shared.Conflict("period", yearKey.String(), shared.ErrUnpostedJournals, "%d draft journals", drafts)
		}
		tb, err := reports.ComputeRange(ctx, tx.Ledger(), scope, start, end)
		if err != nil {
			return err
		}
		entries, netIncome := closingEntries(tb)
		result.NetIncome = netIncome
		if len(entries) > 0 {
			if !netIncome.IsZero() {
				retained, err := mappings.Resolve(ctx, tx.Mappings(), scope.TenantID, mappings.KeyRetainedEarnings, 0)
				if err != nil {
					return err
				}
				entries = append(entries, retainedEarningsEntry(retained, netIncome))
			}
			journal, err := s.ledger.PostInTx(ctx, tx.Journals(), scope, journals.CreateInput{
				Date:        end,
				Description: fmt.Sprintf("Year-end closing %04d", year),
				Entries:     entries,
			}, journals.PostOptions{
				Meta:            journals.Meta{SourceType: SourceYearEnd, SourceID: fmt.Sprintf("%04d", year)},
				SkipPeriodGuard: true,
			})
			if err != nil {
				return err
			}
			result.Journal = &journal
		}
		for month := 1; month <= 12; month++ {
			period, err := periods.FindOrCreate(ctx, tx.Periods(), scope.TenantID, periods.MonthKey(year, month))
			if err != nil {
				return err
			}
			s.stamp(&period, scope, periods.PeriodStatusLocked)
			if err := tx.Periods().UpdateStatus(ctx, period); err != nil {
				return err
			}
			result.Periods = append(result.Periods, period)
		}
		s.stamp(&record, scope, periods.PeriodStatusLocked)
		if err := tx.Periods().UpdateStatus(ctx, record); err != nil {
			return err
		}
		result.Periods = append(result.Periods, record)
		return nil
	})
	if err != nil {
		return YearEndResult{}, err
	}
	if result.Journal != nil {
		s.ledger.Committed(ctx, scope, "journal.post", *result.Journal)
	}
	s.record(ctx, scope, "period.lock", yearKey, map[string]any{
		"net_income": result.NetIncome.StringFixed(shared.AmountScale),
	})
	return result, nil
}

// closingEntries returns one line per income statement account with a non-zero balance,
// posted on the opposite side so the account nets to zero, together with the net income.
func closingEntries(tb reports.TrialBalance) ([]journals.EntryInput, decimal.Decimal) {
	netIncome := decimal.Zero
	var entries []journals.EntryInput
	for _, line := range tb.Accounts {
		if !line.Type.IncomeStatement() {
			continue
		}
		raw := line.Debit.Sub(line.Credit)
		netIncome = netIncome.Sub(raw)
		memo := "Close " + line.Code
		switch {
		case raw.IsPositive():
			entries = append(entries, journals.EntryInput{AccountID: line.AccountID, Credit: raw, Description: memo})
		case raw.IsNegative():
			entries = append(entries, journals.EntryInput{AccountID: line.AccountID, Debit: raw.Neg(), Description: memo})
		}
	}
	return entries, netIncome
}

// retainedEarningsEntry credits profit or debits loss.
func retainedEarningsEntry(accountID int64, netIncome decimal.Decimal) journals.EntryInput {
	if netIncome.IsNegative() {
		return journals.EntryInput{AccountID: accountID, Debit: netIncome.Neg(), Description: "Net loss to retained earnings"}
	}
	return journals.EntryInput{AccountID: accountID, Credit: netIncome, Description: "Net income to retained earnings"}
}

func ensureYearNotLocked(ctx context.Context, tx TxRepository, scope shared.Scope, year int) error {
	record, err := tx.Periods().Get(ctx, scope.TenantID, periods.YearKey(year))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if record.Status == periods.PeriodStatusLocked {
		return shared.Conflict("period", record.Key().String(), shared.ErrPeriodLocked, "")
	}
	return nil
}

func validateMonth(scope shared.Scope, key periods.Key) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := key.Validate(); err != nil || key.IsYear() {
		return shared.Invalid("period", nil, shared.ErrInvalidInput, "month %d of %d", key.Month, key.Year)
	}
	return nil
}

func (s *Service) stamp(p *periods.Period, scope shared.Scope, status periods.PeriodStatus) {
	p.Status = status
	if p.ClosedAt == nil {
		now := s.now()
		actor := scope.ActorID
		p.ClosedAt = &now
		p.ClosedBy = &actor
	}
}

func (s *Service) record(ctx context.Context, scope shared.Scope, action string, key periods.Key, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		TenantID: scope.TenantID,
		ActorID:  scope.ActorID,
		Action:   action,
		Entity:   "period",
		EntityID: key.String(),
		Meta:     meta,
		At:       s.now(),
	})
}
