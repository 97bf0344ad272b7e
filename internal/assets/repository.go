package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

// Repository exposes asset reads and the transaction boundary.
type Repository interface {
	Get(ctx context.Context, tenantID uuid.UUID, id int64) (Asset, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Asset, error)
	Depreciations(ctx context.Context, tenantID uuid.UUID, assetID int64) ([]Depreciation, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes asset operations inside a transaction shared with the journal ledger.
type TxRepository interface {
	NextNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error)
	Insert(ctx context.Context, a Asset) (Asset, error)
	GetForUpdate(ctx context.Context, tenantID uuid.UUID, id int64) (Asset, error)
	Update(ctx context.Context, a Asset) error
	InsertDepreciation(ctx context.Context, d Depreciation) (Depreciation, error)
	FindDepreciation(ctx context.Context, assetID int64, key periods.Key) (Depreciation, bool, error)
	CountDepreciations(ctx context.Context, assetID int64) (int, error)
	LatestDepreciation(ctx context.Context, assetID int64) (Depreciation, bool, error)

	Journals() journals.TxRepository
	Mappings() mappings.TxRepository
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const assetColumns = `id, tenant_id, asset_number, name, category, purchase_date, purchase_price, residual_value, useful_life_months, method,
asset_account_id, expense_account_id, accumulated_account_id, accumulated_depreciation, book_value, status,
disposal_date, disposal_amount, disposal_journal_id, COALESCE(created_by, 0), created_at, updated_at`

func (r *repository) Get(ctx context.Context, tenantID uuid.UUID, id int64) (Asset, error) {
	return loadAsset(ctx, r.pool, tenantID, id, "")
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets
WHERE tenant_id=$1 AND ($2 = '' OR status=$2) ORDER BY asset_number`, tenantID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Depreciations(ctx context.Context, tenantID uuid.UUID, assetID int64) ([]Depreciation, error) {
	rows, err := r.pool.Query(ctx, `SELECT d.id, d.asset_id, d.year, d.month, d.amount, d.journal_id, d.created_at
FROM depreciations d JOIN fixed_assets a ON a.id = d.asset_id
WHERE a.tenant_id=$1 AND d.asset_id=$2 ORDER BY d.year, d.month`, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Depreciation
	for rows.Next() {
		var d Depreciation
		if err := rows.Scan(&d.ID, &d.AssetID, &d.Year, &d.Month, &d.Amount, &d.JournalID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
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
	journals journals.TxRepository
	mappings mappings.TxRepository
}

// NewTxRepository binds asset, journal and mapping operations to one transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{
		tx:       tx,
		journals: journals.NewTxRepository(tx),
		mappings: mappings.NewTxRepository(tx),
	}
}

func (r *txRepository) Journals() journals.TxRepository { return r.journals }

func (r *txRepository) Mappings() mappings.TxRepository { return r.mappings }

func (r *txRepository) NextNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error) {
	seq, err := db.NextSequence(ctx, r.tx, tenantID, db.SequenceAsset, year)
	if err != nil {
		return "", err
	}
	return FormatNumber(year, seq), nil
}

func (r *txRepository) Insert(ctx context.Context, a Asset) (Asset, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO fixed_assets (tenant_id, asset_number, name, category, purchase_date, purchase_price, residual_value,
useful_life_months, method, asset_account_id, expense_account_id, accumulated_account_id, accumulated_depreciation, book_value, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16) RETURNING id, created_at, updated_at`,
		a.TenantID, a.Number, a.Name, a.Category, a.PurchaseDate, a.PurchasePrice, a.ResidualValue,
		a.UsefulLifeMonths, a.Method, a.AssetAccountID, a.ExpenseAccountID, a.AccumulatedAccountID,
		a.AccumulatedDepreciation, a.BookValue, a.Status, a.CreatedBy).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_fixed_assets_number") {
			return Asset{}, shared.Concurrent("asset", a.Number, "number allocated twice")
		}
		return Asset{}, fmt.Errorf("assets: insert %s: %w", a.Number, err)
	}
	return a, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, tenantID uuid.UUID, id int64) (Asset, error) {
	return loadAsset(ctx, r.tx, tenantID, id, "FOR UPDATE")
}

func (r *txRepository) Update(ctx context.Context, a Asset) error {
	var disposal decimal.NullDecimal
	if a.DisposalAmount != nil {
		disposal = decimal.NewNullDecimal(*a.DisposalAmount)
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE fixed_assets SET accumulated_depreciation=$3, book_value=$4, status=$5,
disposal_date=$6, disposal_amount=$7, disposal_journal_id=$8, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`, a.TenantID, a.ID, a.AccumulatedDepreciation, a.BookValue, a.Status,
		a.DisposalDate, disposal, a.DisposalJournalID)
	if err != nil {
		return fmt.Errorf("assets: update %s: %w", a.Number, err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFound("asset", a.ID)
	}
	return nil
}

func (r *txRepository) InsertDepreciation(ctx context.Context, d Depreciation) (Depreciation, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO depreciations (asset_id, year, month, amount, journal_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`, d.AssetID, d.Year, d.Month, d.Amount, d.JournalID).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_depreciations_period") {
			return Depreciation{}, shared.Invalid("asset", d.AssetID, shared.ErrDepreciationExists, "%s", d.Key().String())
		}
		return Depreciation{}, fmt.Errorf("assets: insert depreciation: %w", err)
	}
	return d, nil
}

func (r *txRepository) FindDepreciation(ctx context.Context, assetID int64, key periods.Key) (Depreciation, bool, error) {
	var d Depreciation
	err := r.tx.QueryRow(ctx, `SELECT id, asset_id, year, month, amount, journal_id, created_at
FROM depreciations WHERE asset_id=$1 AND year=$2 AND month=$3`, assetID, key.Year, key.Month).
		Scan(&d.ID, &d.AssetID, &d.Year, &d.Month, &d.Amount, &d.JournalID, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Depreciation{}, false, nil
		}
		return Depreciation{}, false, err
	}
	return d, true, nil
}

func (r *txRepository) CountDepreciations(ctx context.Context, assetID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM depreciations WHERE asset_id=$1`, assetID).Scan(&n)
	return n, err
}

func (r *txRepository) LatestDepreciation(ctx context.Context, assetID int64) (Depreciation, bool, error) {
	var d Depreciation
	err := r.tx.QueryRow(ctx, `SELECT id, asset_id, year, month, amount, journal_id, created_at
FROM depreciations WHERE asset_id=$1 ORDER BY year DESC, month DESC LIMIT 1`, assetID).
		Scan(&d.ID, &d.AssetID, &d.Year, &d.Month, &d.Amount, &d.JournalID, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Depreciation{}, false, nil
		}
		return Depreciation{}, false, err
	}
	return d, true, nil
}

func loadAsset(ctx context.Context, q db.DBTX, tenantID uuid.UUID, id int64, lock string) (Asset, error) {
	a, err := scanAsset(q.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE tenant_id=$1 AND id=$2 `+lock, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, shared.NotFound("asset", id)
		}
		return Asset{}, err
	}
	return a, nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var (
		a        Asset
		disposal decimal.NullDecimal
	)
	err := row.Scan(&a.ID, &a.TenantID, &a.Number, &a.Name, &a.Category, &a.PurchaseDate, &a.PurchasePrice, &a.ResidualValue,
		&a.UsefulLifeMonths, &a.Method, &a.AssetAccountID, &a.ExpenseAccountID, &a.AccumulatedAccountID,
		&a.AccumulatedDepreciation, &a.BookValue, &a.Status, &a.DisposalDate, &disposal, &a.DisposalJournalID,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if disposal.Valid {
		amount := disposal.Decimal
		a.DisposalAmount = &amount
	}
	return a, err
}
