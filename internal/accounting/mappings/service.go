package mappings

import (
	"context"

	"github.com/google/uuid"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// Resolve returns the account bound to key, preferring an explicit override.
func Resolve(ctx context.Context, tx TxRepository, tenantID uuid.UUID, key string, override int64) (int64, error) {
	if override > 0 {
		return override, nil
	}
	m, err := tx.Get(ctx, tenantID, key)
	if err != nil {
		return 0, err
	}
	return m.AccountID, nil
}

// Service manages account mappings.
type Service struct {
	repo Repository
}

// NewService constructs the mapping service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all mappings of the tenant.
func (s *Service) List(ctx context.Context, scope shared.Scope) ([]AccountMapping, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.TenantID)
}

// Apply binds every key of bindings to its account id in one transaction.
func (s *Service) Apply(ctx context.Context, scope shared.Scope, bindings map[string]int64) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	for key, accountID := range bindings {
		if Normalize(key) == "" || accountID <= 0 {
			return shared.Invalid("mapping", key, shared.ErrInvalidInput, "account %d", accountID)
		}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for key, accountID := range bindings {
			if err := tx.Upsert(ctx, AccountMapping{TenantID: scope.TenantID, Key: key, AccountID: accountID}); err != nil {
				return err
			}
		}
		return nil
	})
}
