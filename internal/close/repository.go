package close

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

// Repository exposes period reads and the closing transaction boundary.
type Repository interface {
	ListPeriods(ctx context.Context, tenantID uuid.UUID, year int) ([]periods.Period, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository gives the coordinator periods, journals, mappings and posted balances inside one
// transaction.
type TxRepository interface {
	Periods() periods.TxRepository
	Journals() journals.TxRepository
	Mappings() mappings.TxRepository
	Ledger() reports.Reader
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListPeriods(ctx context.Context, tenantID uuid.UUID, year int) ([]periods.Period, error) {
	return periods.NewRepository(r.pool).List(ctx, tenantID, year)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	journals journals.TxRepository
	mappings mappings.TxRepository
	ledger   reports.Reader
}

// NewTxRepository binds the closing dependencies to one transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{
		journals: journals.NewTxRepository(tx),
		mappings: mappings.NewTxRepository(tx),
		ledger:   reports.NewReader(tx),
	}
}

func (r *txRepository) Periods() periods.TxRepository { return r.journals.Periods() }

func (r *txRepository) Journals() journals.TxRepository { return r.journals }

func (r *txRepository) Mappings() mappings.TxRepository { return r.mappings }

func (r *txRepository) Ledger() reports.Reader { return r.ledger }
