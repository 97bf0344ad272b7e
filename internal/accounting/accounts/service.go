package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	internalShared "github.com/rasyiqi-code/Counting-sub001/internal/shared"
)

// BalanceSource aggregates posted journal entries for a single account.
type BalanceSource interface {
	AccountTotals(ctx context.Context, scope shared.Scope, accountID int64, asOf *time.Time) (Totals, error)
}

// AuditPort records account mutations.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service maintains the chart of accounts.
type Service struct {
	repo     Repository
	balances BalanceSource
	audit    AuditPort
	now      func() time.Time
}

// NewService constructs the account registry.
func NewService(repo Repository, balances BalanceSource, audit AuditPort) *Service {
	return &Service{repo: repo, balances: balances, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one account with its cached balance.
func (s *Service) Get(ctx context.Context, scope shared.Scope, id int64) (Account, error) {
	if err := scope.Validate(); err != nil {
		return Account{}, err
	}
	return s.repo.Get(ctx, scope.TenantID, id)
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.TenantID, filter)
}

// Tree returns the chart hierarchy.
func (s *Service) Tree(ctx context.Context, scope shared.Scope) (*Forest, error) {
	accounts, err := s.List(ctx, scope, ListFilter{})
	if err != nil {
		return nil, err
	}
	return BuildForest(accounts), nil
}

// Create adds an account after checking code uniqueness and parent acyclicity.
func (s *Service) Create(ctx context.Context, scope shared.Scope, in CreateInput) (Account, error) {
	if err := scope.Validate(); err != nil {
		return Account{}, err
	}
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = createAccount(ctx, tx, scope.TenantID, in)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, scope, "account.create", created, map[string]any{"code": created.Code, "type": created.Type})
	return created, nil
}

func createAccount(ctx context.Context, tx TxRepository, tenantID uuid.UUID, in CreateInput) (Account, error) {
	if _, err := tx.GetByCode(ctx, tenantID, in.Code); err == nil {
		return Account{}, shared.Invalid("account", in.Code, shared.ErrDuplicateCode, "")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Account{}, err
	}
	if in.ParentID != nil {
		if err := ensureAcyclic(ctx, tx, tenantID, 0, *in.ParentID); err != nil {
			return Account{}, err
		}
	}
	return tx.Insert(ctx, Account{
		TenantID: tenantID,
		Code:     in.Code,
		Name:     in.Name,
		Type:     in.Type,
		Category: in.Category,
		ParentID: in.ParentID,
		IsSystem: in.IsSystem,
		IsActive: true,
	})
}

// Update renames, re-parents, re-types or toggles an account.
func (s *Service) Update(ctx context.Context, scope shared.Scope, id int64, in UpdateInput) (Account, error) {
	if err := scope.Validate(); err != nil {
		return Account{}, err
	}
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, scope.TenantID, id)
		if err != nil {
			return err
		}
		if current.IsSystem {
			if in.Type != nil && *in.Type != current.Type {
				return shared.Invalid("account", current.Code, shared.ErrSystemAccount, "type cannot change")
			}
			if in.IsActive != nil && !*in.IsActive {
				return shared.Invalid("account", current.Code, shared.ErrSystemAccount, "cannot deactivate")
			}
		}
		if in.Type != nil && *in.Type != current.Type {
			used, err := tx.HasPostedEntries(ctx, scope.TenantID, current.ID)
			if err != nil {
				return err
			}
			if used {
				return shared.Invalid("account", current.Code, shared.ErrAccountInUse, "type %s cannot become %s", current.Type, *in.Type)
			}
			current.Type = *in.Type
		}
		if in.Name != nil {
			current.Name = strings.TrimSpace(*in.Name)
		}
		if in.Category != nil {
			current.Category = *in.Category
		}
		if in.IsActive != nil {
			current.IsActive = *in.IsActive
		}
		switch {
		case in.ClearParent:
			current.ParentID = nil
		case in.ParentID != nil:
			if err := ensureAcyclic(ctx, tx, scope.TenantID, current.ID, *in.ParentID); err != nil {
				return err
			}
			parent := *in.ParentID
			current.ParentID = &parent
		}
		if err := tx.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, scope, "account.update", updated, map[string]any{"code": updated.Code, "active": updated.IsActive})
	return updated, nil
}

// ensureAcyclic walks the ancestors of parentID and rejects the link when id is among them.
func ensureAcyclic(ctx context.Context, tx TxRepository, tenantID uuid.UUID, id, parentID int64) error {
	seen := make(map[int64]struct{})
	for cur := parentID; ; {
		if cur == id {
			return shared.Invalid("account", id, shared.ErrCyclicParent, "parent %d", parentID)
		}
		if _, ok := seen[cur]; ok {
			return shared.Invalid("account", id, shared.ErrCyclicParent, "ancestor %d repeats", cur)
		}
		seen[cur] = struct{}{}
		ancestor, err := tx.Get(ctx, tenantID, cur)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.Invalid("account", id, shared.ErrAccountNotFound, "parent %d", cur)
			}
			return err
		}
		if ancestor.ParentID == nil {
			return nil
		}
		cur = *ancestor.ParentID
	}
}

// Balance computes the normal-side balance from posted journals, optionally as of a date.
func (s *Service) Balance(ctx context.Context, scope shared.Scope, accountID int64, asOf *time.Time) (Balance, error) {
	account, err := s.Get(ctx, scope, accountID)
	if err != nil {
		return Balance{}, err
	}
	if s.balances == nil {
		return Balance{}, fmt.Errorf("accounts: balance source not configured")
	}
	totals, err := s.balances.AccountTotals(ctx, scope, accountID, asOf)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		AccountID: account.ID,
		Code:      account.Code,
		Type:      account.Type,
		Debit:     totals.Debit,
		Credit:    totals.Credit,
		Balance:   account.Type.NormalBalance(totals.Debit, totals.Credit),
		AsOf:      asOf,
	}, nil
}

func (s *Service) record(ctx context.Context, scope shared.Scope, action string, a Account, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		TenantID: scope.TenantID,
		ActorID:  scope.ActorID,
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", a.ID),
		Meta:     meta,
		At:       s.now(),
	})
}
