package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
	JournalStatusVoid   JournalStatus = "VOID"
)

// Journal is a balanced set of debit and credit lines describing one business event.
type Journal struct {
	ID          int64          `json:"id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	Number      string         `json:"number"`
	Date        time.Time      `json:"date"`
	Description string         `json:"description"`
	ReferenceNo string         `json:"reference_no,omitempty"`
	SourceType  string         `json:"source_type,omitempty"`
	SourceID    string         `json:"source_id,omitempty"`
	Status      JournalStatus  `json:"status"`
	ReversalOf  *int64         `json:"reversal_of,omitempty"`
	CreatedBy   int64          `json:"created_by"`
	PostedBy    *int64         `json:"posted_by,omitempty"`
	PostedAt    *time.Time     `json:"posted_at,omitempty"`
	VoidedBy    *int64         `json:"voided_by,omitempty"`
	VoidedAt    *time.Time     `json:"voided_at,omitempty"`
	VoidReason  string         `json:"void_reason,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Entries     []JournalEntry `json:"entries,omitempty"`
}

// JournalEntry stores the debit or credit amount of one account.
type JournalEntry struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journal_id"`
	LineNo      int             `json:"line_no"`
	AccountID   int64           `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// Totals sums the debit and credit sides of the journal.
func (j Journal) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range j.Entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

// Balanced reports whether total debit equals total credit.
func (j Journal) Balanced() bool {
	debit, credit := j.Totals()
	return debit.Equal(credit)
}

// FormatNumber renders the human-readable journal number.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("JV/%04d/%05d", year, seq)
}

// ListFilter narrows journal listings.
type ListFilter struct {
	Status     JournalStatus
	From       *time.Time
	To         *time.Time
	SourceType string
	Limit      int
	Offset     int
}
