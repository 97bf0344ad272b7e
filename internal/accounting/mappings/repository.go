package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

// Repository exposes mapping reads and the transaction boundary.
type Repository interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]AccountMapping, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes mapping operations available within a transaction.
type TxRepository interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (AccountMapping, error)
	Upsert(ctx context.Context, m AccountMapping) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID) ([]AccountMapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id, key, account_id, created_at, updated_at FROM account_mappings WHERE tenant_id=$1 ORDER BY key`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.TenantID, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds mapping operations to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// Get resolves an account mapping for the specified key.
func (r *txRepository) Get(ctx context.Context, tenantID uuid.UUID, key string) (AccountMapping, error) {
	key = Normalize(key)
	var mapping AccountMapping
	err := r.tx.QueryRow(ctx, `SELECT tenant_id, key, account_id, created_at, updated_at FROM account_mappings WHERE tenant_id=$1 AND key=$2`, tenantID, key).
		Scan(&mapping.TenantID, &mapping.Key, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, shared.Invalid("mapping", key, shared.ErrMappingNotFound, "")
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

func (r *txRepository) Upsert(ctx context.Context, m AccountMapping) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO account_mappings (tenant_id, key, account_id) VALUES ($1,$2,$3)
ON CONFLICT (tenant_id, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`, m.TenantID, Normalize(m.Key), m.AccountID)
	return err
}

// Normalize upper-cases and trims a mapping key.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
