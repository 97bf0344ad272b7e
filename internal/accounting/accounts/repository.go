package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

// Repository exposes account reads and the transaction boundary.
type Repository interface {
	Get(ctx context.Context, tenantID uuid.UUID, id int64) (Account, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes account operations available within a transaction.
type TxRepository interface {
	Get(ctx context.Context, tenantID uuid.UUID, id int64) (Account, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error)
	GetMany(ctx context.Context, tenantID uuid.UUID, ids []int64) (map[int64]Account, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) error
	// AdjustBalance adds delta to the cached normal-side balance.
	AdjustBalance(ctx context.Context, tenantID uuid.UUID, id int64, delta decimal.Decimal) error
	HasPostedEntries(ctx context.Context, tenantID uuid.UUID, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, tenantID uuid.UUID, id int64) (Account, error) {
	return getAccount(ctx, r.pool, tenantID, "id", id)
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Account, error) {
	return listAccounts(ctx, r.pool, tenantID, filter)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds account operations to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

const accountColumns = `id, tenant_id, code, name, type, category, parent_id, is_system, is_active, balance, created_at, updated_at`

func (r *txRepository) Get(ctx context.Context, tenantID uuid.UUID, id int64) (Account, error) {
	return getAccount(ctx, r.tx, tenantID, "id", id)
}

func (r *txRepository) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	return getAccount(ctx, r.tx, tenantID, "code", code)
}

func (r *txRepository) GetMany(ctx context.Context, tenantID uuid.UUID, ids []int64) (map[int64]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *txRepository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Account, error) {
	return listAccounts(ctx, r.tx, tenantID, filter)
}

func (r *txRepository) Insert(ctx context.Context, a Account) (Account, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, type, category, parent_id, is_system, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, balance, created_at, updated_at`,
		a.TenantID, a.Code, a.Name, a.Type, a.Category, a.ParentID, a.IsSystem, a.IsActive).
		Scan(&a.ID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_accounts_code") {
			return Account{}, shared.Invalid("account", a.Code, shared.ErrDuplicateCode, "")
		}
		return Account{}, fmt.Errorf("accounts: insert %s: %w", a.Code, err)
	}
	return a, nil
}

func (r *txRepository) Update(ctx context.Context, a Account) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET name=$3, type=$4, category=$5, parent_id=$6, is_active=$7, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`, a.TenantID, a.ID, a.Name, a.Type, a.Category, a.ParentID, a.IsActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFound("account", a.ID)
	}
	return nil
}

func (r *txRepository) AdjustBalance(ctx context.Context, tenantID uuid.UUID, id int64, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenantID, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFound("account", id)
	}
	return nil
}

func (r *txRepository) HasPostedEntries(ctx context.Context, tenantID uuid.UUID, id int64) (bool, error) {
	var found bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries e
JOIN journals j ON j.id = e.journal_id
WHERE j.tenant_id=$1 AND j.status='POSTED' AND e.account_id=$2)`, tenantID, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("accounts: entries for %d: %w", id, err)
	}
	return found, nil
}

func getAccount(ctx context.Context, q db.DBTX, tenantID uuid.UUID, column string, value any) (Account, error) {
	a, err := scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND `+column+`=$2`, tenantID, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFound("account", value)
		}
		return Account{}, err
	}
	return a, nil
}

func listAccounts(ctx context.Context, q db.DBTX, tenantID uuid.UUID, filter ListFilter) ([]Account, error) {
	rows, err := q.Query(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE tenant_id=$1 AND ($2 = '' OR type=$2) AND (NOT $3 OR is_active)
ORDER BY code`, tenantID, string(filter.Type), filter.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.Category, &a.ParentID, &a.IsSystem, &a.IsActive, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
