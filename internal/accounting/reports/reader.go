package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

// EntryFilter selects POSTED journal entries by date and account.
type EntryFilter struct {
	// From is inclusive; nil means since inception.
	From *time.Time
	// To is inclusive.
	To        time.Time
	AccountID int64
}

// Reader aggregates POSTED journal entries per account.
type Reader interface {
	SumEntries(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]AccountBalance, error)
}

type reader struct {
	q db.DBTX
}

// NewReader builds a Reader over a pool or an open transaction.
func NewReader(q db.DBTX) Reader {
	return &reader{q: q}
}

func (r *reader) SumEntries(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]AccountBalance, error) {
	rows, err := r.q.Query(ctx, `SELECT a.id, a.code, a.name, a.type, COALESCE(SUM(e.debit), 0), COALESCE(SUM(e.credit), 0)
FROM journal_entries e
JOIN journals j ON j.id = e.journal_id
JOIN accounts a ON a.id = e.account_id
WHERE j.tenant_id=$1 AND j.status='POSTED'
AND ($2::date IS NULL OR j.date >= $2) AND j.date <= $3
AND ($4::bigint = 0 OR e.account_id = $4)
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code`, tenantID, filter.From, filter.To, filter.AccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var (
			b             AccountBalance
			debit, credit decimal.Decimal
		)
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &debit, &credit); err != nil {
			return nil, err
		}
		b.Debit, b.Credit = debit, credit
		out = append(out, b)
	}
	return out, rows.Err()
}

// AccountBalance models a general ledger account with aggregated posted debit and credit.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Net returns the normal-side balance of the account.
func (a AccountBalance) Net() decimal.Decimal {
	return a.Type.NormalBalance(a.Debit, a.Credit)
}
