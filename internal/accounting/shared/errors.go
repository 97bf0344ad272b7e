package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every ledger failure matches exactly one of them through errors.Is.
var (
	// ErrValidation indicates the request itself is wrong and must be corrected.
	ErrValidation = errors.New("validation failed")
	// ErrState indicates the entity is not in a state that allows the action.
	ErrState = errors.New("invalid state transition")
	// ErrNotFound indicates a missing journal, account, asset or period.
	ErrNotFound = errors.New("not found")
	// ErrConcurrency indicates a sequence collision; the request can be retried.
	ErrConcurrency = errors.New("concurrent modification")
)

// Rules violated by a request. They are wrapped by *Error so callers can match the exact rule.
var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("journal requires at least two lines")
	// ErrInvalidLine indicates a line with a negative amount or both sides set.
	ErrInvalidLine = errors.New("journal line must carry exactly one positive side")
	// ErrAccountNotFound indicates a line referencing an account outside the tenant's chart.
	ErrAccountNotFound = errors.New("account does not exist")
	// ErrAccountInactive indicates posting to a deactivated account.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrDuplicateCode indicates the account code already exists for the tenant.
	ErrDuplicateCode = errors.New("account code already exists")
	// ErrCyclicParent indicates the parent would make the account its own ancestor.
	ErrCyclicParent = errors.New("account parent introduces a cycle")
	// ErrSystemAccount indicates a protected system account change.
	ErrSystemAccount = errors.New("system account cannot be changed")
	// ErrAccountInUse indicates a type change on an account that already carries posted entries.
	ErrAccountInUse = errors.New("account has posted entries")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("source already linked to a journal")
	// ErrJournalNotDraft indicates posting a journal that is not DRAFT.
	ErrJournalNotDraft = errors.New("journal is not in DRAFT status")
	// ErrJournalNotPosted indicates voiding or reversing a journal that is not POSTED.
	ErrJournalNotPosted = errors.New("journal is not in POSTED status")
	// ErrJournalReversed indicates a journal that already has a reversing journal.
	ErrJournalReversed = errors.New("journal already reversed")
	// ErrJournalManaged indicates a journal owned by the asset register or the year-end close.
	ErrJournalManaged = errors.New("journal is managed by its source document")
	// ErrPeriodClosed indicates the journal date falls inside a closed period.
	ErrPeriodClosed = errors.New("period is closed")
	// ErrPeriodLocked indicates year-end closing was already performed.
	ErrPeriodLocked = errors.New("year-end closing already performed")
	// ErrPeriodOpen indicates reopening a period that is not closed.
	ErrPeriodOpen = errors.New("period is not closed")
	// ErrUnpostedJournals indicates DRAFT journals inside the period being closed.
	ErrUnpostedJournals = errors.New("cannot close with unposted journals")
	// ErrAssetDisposed indicates the asset was already disposed.
	ErrAssetDisposed = errors.New("asset already disposed")
	// ErrAssetNotActive indicates depreciation of an asset that is not ACTIVE.
	ErrAssetNotActive = errors.New("asset is not active")
	// ErrDepreciationExists indicates the period was already depreciated for the asset.
	ErrDepreciationExists = errors.New("depreciation already recorded for period")
	// ErrFullyDepreciated indicates the book value already sits at residual value.
	ErrFullyDepreciated = errors.New("asset is fully depreciated")
	// ErrBeforePurchase indicates a depreciation period before the purchase month.
	ErrBeforePurchase = errors.New("period precedes asset purchase")
	// ErrDisposalBeforeDepreciation indicates a disposal dated inside or before a depreciated month.
	ErrDisposalBeforeDepreciation = errors.New("disposal date precedes recorded depreciation")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = errors.New("account mapping not found")
	// ErrNumberTaken indicates a document number collision under concurrent creation.
	ErrNumberTaken = errors.New("document number already allocated")
	// ErrSerialization indicates the transaction kept losing to concurrent writers.
	ErrSerialization = errors.New("transaction could not be serialized")
	// ErrInvalidInput indicates malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Error describes a ledger failure with the entity it concerns.
type Error struct {
	Kind   error
	Entity string
	ID     string
	Rule   error
	Detail string
}

func (e *Error) Error() string {
	msg := "accounting: " + e.Entity
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Rule != nil {
		msg += ": " + e.Rule.Error()
	} else if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Unwrap exposes the violated rule.
func (e *Error) Unwrap() error {
	return e.Rule
}

func newError(kind error, entity string, id any, rule error, detail string) *Error {
	return &Error{Kind: kind, Entity: entity, ID: formatID(id), Rule: rule, Detail: detail}
}

// Invalid builds a ValidationError.
func Invalid(entity string, id any, rule error, detailf string, args ...any) *Error {
	return newError(ErrValidation, entity, id, rule, sprintf(detailf, args...))
}

// Conflict builds a StateError.
func Conflict(entity string, id any, rule error, detailf string, args ...any) *Error {
	return newError(ErrState, entity, id, rule, sprintf(detailf, args...))
}

// NotFound builds a NotFoundError.
func NotFound(entity string, id any) *Error {
	return newError(ErrNotFound, entity, id, nil, "")
}

// Concurrent builds a ConcurrencyError.
func Concurrent(entity string, id any, detailf string, args ...any) *Error {
	return newError(ErrConcurrency, entity, id, ErrNumberTaken, sprintf(detailf, args...))
}

// Contended reports a transaction that lost serialization races until retries ran out.
func Contended(entity string, detailf string, args ...any) *Error {
	return newError(ErrConcurrency, entity, nil, ErrSerialization, sprintf(detailf, args...))
}

// KindOf reports which error kind err belongs to, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrState, ErrNotFound, ErrConcurrency} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func formatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		if v == 0 {
			return ""
		}
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprint(v)
	}
}

func sprintf(format string, args ...any) string {
	if format == "" {
		return ""
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
