package periods

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

// Repository exposes period reads and the transaction boundary.
type Repository interface {
	List(ctx context.Context, tenantID uuid.UUID, year int) ([]Period, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes period operations available within a transaction.
type TxRepository interface {
	// Get reads the period under a share lock so it cannot be closed concurrently.
	Get(ctx context.Context, tenantID uuid.UUID, key Key) (Period, error)
	GetForUpdate(ctx context.Context, tenantID uuid.UUID, key Key) (Period, error)
	Insert(ctx context.Context, p Period) (Period, error)
	// InsertOrGet inserts p unless its key exists, then reads the stored row under a share lock.
	InsertOrGet(ctx context.Context, p Period) (Period, error)
	UpdateStatus(ctx context.Context, p Period) error
	ListYear(ctx context.Context, tenantID uuid.UUID, year int) ([]Period, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, year int) ([]Period, error) {
	return listYear(ctx, r.pool, tenantID, year)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds period operations to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

const periodColumns = `id, tenant_id, year, month, start_date, end_date, status, closed_at, closed_by, created_at, updated_at`

func (r *txRepository) Get(ctx context.Context, tenantID uuid.UUID, key Key) (Period, error) {
	return r.load(ctx, tenantID, key, "FOR SHARE")
}

func (r *txRepository) GetForUpdate(ctx context.Context, tenantID uuid.UUID, key Key) (Period, error) {
	return r.load(ctx, tenantID, key, "FOR UPDATE")
}

func (r *txRepository) load(ctx context.Context, tenantID uuid.UUID, key Key, lock string) (Period, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+periodColumns+`
FROM accounting_periods WHERE tenant_id=$1 AND year=$2 AND COALESCE(month, 0)=$3 `+lock, tenantID, key.Year, key.Month)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.NotFound("period", key.String())
		}
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) Insert(ctx context.Context, p Period) (Period, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO accounting_periods (tenant_id, year, month, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`, p.TenantID, p.Year, p.Month, p.StartDate, p.EndDate, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_accounting_periods_key") {
			return Period{}, shared.Concurrent("period", p.Key().String(), "period created concurrently")
		}
		return Period{}, fmt.Errorf("periods: insert %s: %w", p.Key(), err)
	}
	return p, nil
}

func (r *txRepository) InsertOrGet(ctx context.Context, p Period) (Period, error) {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounting_periods (tenant_id, year, month, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (tenant_id, year, COALESCE(month, 0)) DO NOTHING`,
		p.TenantID, p.Year, p.Month, p.StartDate, p.EndDate, p.Status)
	if err != nil {
		return Period{}, fmt.Errorf("periods: ensure %s: %w", p.Key(), err)
	}
	return r.load(ctx, p.TenantID, p.Key(), "FOR SHARE")
}

func (r *txRepository) UpdateStatus(ctx context.Context, p Period) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounting_periods SET status=$2, closed_at=$3, closed_by=$4, updated_at=NOW() WHERE id=$1`,
		p.ID, p.Status, p.ClosedAt, p.ClosedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFound("period", p.Key().String())
	}
	return nil
}

func (r *txRepository) ListYear(ctx context.Context, tenantID uuid.UUID, year int) ([]Period, error) {
	return listYear(ctx, r.tx, tenantID, year)
}

func listYear(ctx context.Context, q db.DBTX, tenantID uuid.UUID, year int) ([]Period, error) {
	rows, err := q.Query(ctx, `SELECT `+periodColumns+`
FROM accounting_periods WHERE tenant_id=$1 AND year=$2 ORDER BY COALESCE(month, 13)`, tenantID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.TenantID, &p.Year, &p.Month, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
