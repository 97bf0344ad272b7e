package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	Get(ctx context.Context, tenantID uuid.UUID, id int64) (Journal, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Journal, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Accounts and periods share the
// same transaction so balance and period checks see the rows being changed.
type TxRepository interface {
	NextNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error)
	Insert(ctx context.Context, j Journal) (Journal, error)
	GetForUpdate(ctx context.Context, tenantID uuid.UUID, id int64) (Journal, error)
	UpdateStatus(ctx context.Context, j Journal) error
	FindReversal(ctx context.Context, tenantID uuid.UUID, id int64) (int64, bool, error)
	CountDrafts(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int, error)

	Accounts() accounts.TxRepository
	Periods() periods.TxRepository
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, tenantID uuid.UUID, id int64) (Journal, error) {
	return loadJournal(ctx, r.pool, tenantID, id, "")
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Journal, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+journalColumns+` FROM journals
WHERE tenant_id=$1 AND ($2 = '' OR status=$2) AND ($3::date IS NULL OR date >= $3) AND ($4::date IS NULL OR date <= $4)
AND ($5 = '' OR source_type=$5)
ORDER BY date DESC, id DESC LIMIT $6 OFFSET $7`,
		tenantID, string(filter.Status), filter.From, filter.To, filter.SourceType, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	tx       pgx.Tx
	accounts accounts.TxRepository
	periods  periods.TxRepository
}

// NewTxRepository binds journal, account and period operations to one transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{
		tx:       tx,
		accounts: accounts.NewTxRepository(tx),
		periods:  periods.NewTxRepository(tx),
	}
}

func (r *txRepository) Accounts() accounts.TxRepository { return r.accounts }

func (r *txRepository) Periods() periods.TxRepository { return r.periods }

func (r *txRepository) NextNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error) {
	seq, err := db.NextSequence(ctx, r.tx, tenantID, db.SequenceJournal, year)
	if err != nil {
		return "", err
	}
	return FormatNumber(year, seq), nil
}

func (r *txRepository) Insert(ctx context.Context, j Journal) (Journal, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO journals (tenant_id, number, date, description, reference_no, source_type, source_id, status, reversal_of, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		j.TenantID, j.Number, j.Date, j.Description, j.ReferenceNo, j.SourceType, j.SourceID, j.Status, j.ReversalOf, j.CreatedBy).
		Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, "uq_journals_number"):
			return Journal{}, shared.Concurrent("journal", j.Number, "number allocated twice")
		case db.IsUniqueViolation(err, "uq_journals_source"):
			return Journal{}, shared.Invalid("journal", nil, shared.ErrSourceAlreadyLinked, "%s %s", j.SourceType, j.SourceID)
		}
		return Journal{}, fmt.Errorf("journals: insert %s: %w", j.Number, err)
	}
	for i := range j.Entries {
		e := &j.Entries[i]
		e.JournalID = j.ID
		if err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (journal_id, line_no, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, j.ID, e.LineNo, e.AccountID, e.Debit, e.Credit, e.Description).Scan(&e.ID); err != nil {
			return Journal{}, fmt.Errorf("journals: insert line %d of %s: %w", e.LineNo, j.Number, err)
		}
	}
	return j, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, tenantID uuid.UUID, id int64) (Journal, error) {
	return loadJournal(ctx, r.tx, tenantID, id, "FOR UPDATE")
}

func (r *txRepository) UpdateStatus(ctx context.Context, j Journal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journals SET status=$3, posted_by=$4, posted_at=$5, voided_by=$6, voided_at=$7, void_reason=$8, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`, j.TenantID, j.ID, j.Status, j.PostedBy, j.PostedAt, j.VoidedBy, j.VoidedAt, j.VoidReason)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_journals_source") {
			return shared.Invalid("journal", j.ID, shared.ErrSourceAlreadyLinked, "%s %s", j.SourceType, j.SourceID)
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFound("journal", j.ID)
	}
	return nil
}

func (r *txRepository) FindReversal(ctx context.Context, tenantID uuid.UUID, id int64) (int64, bool, error) {
	var reversalID int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM journals WHERE tenant_id=$1 AND reversal_of=$2 AND status <> 'VOID' LIMIT 1`, tenantID, id).Scan(&reversalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return reversalID, true, nil
}

func (r *txRepository) CountDrafts(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journals WHERE tenant_id=$1 AND status='DRAFT' AND date BETWEEN $2 AND $3`, tenantID, from, to).Scan(&n)
	return n, err
}

const journalColumns = `id, tenant_id, number, date, description, reference_no, source_type, source_id, status, reversal_of,
COALESCE(created_by, 0), posted_by, posted_at, voided_by, voided_at, void_reason, created_at, updated_at`

func loadJournal(ctx context.Context, q db.DBTX, tenantID uuid.UUID, id int64, lock string) (Journal, error) {
	j, err := scanJournal(q.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE tenant_id=$1 AND id=$2 `+lock, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, shared.NotFound("journal", id)
		}
		return Journal{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, journal_id, line_no, account_id, debit, credit, description
FROM journal_entries WHERE journal_id=$1 ORDER BY line_no`, id)
	if err != nil {
		return Journal{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.JournalID, &e.LineNo, &e.AccountID, &e.Debit, &e.Credit, &e.Description); err != nil {
			return Journal{}, err
		}
		j.Entries = append(j.Entries, e)
	}
	return j, rows.Err()
}

func scanJournal(row pgx.Row) (Journal, error) {
	var j Journal
	err := row.Scan(&j.ID, &j.TenantID, &j.Number, &j.Date, &j.Description, &j.ReferenceNo, &j.SourceType, &j.SourceID, &j.Status, &j.ReversalOf,
		&j.CreatedBy, &j.PostedBy, &j.PostedAt, &j.VoidedBy, &j.VoidedAt, &j.VoidReason, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}
