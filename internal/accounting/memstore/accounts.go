package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// Accounts returns the chart of accounts repository.
func (s *Store) Accounts() accounts.Repository {
	return accountRepo{s}
}

type accountRepo struct {
	s *Store
}

func (r accountRepo) Get(ctx context.Context, tenantID uuid.UUID, id int64) (accounts.Account, error) {
	var out accounts.Account
	err := r.s.read(ctx, func(t *tx) error {
		var err error
		out, err = accountTx{t}.Get(ctx, tenantID, id)
		return err
	})
	return out, err
}

func (r accountRepo) List(ctx context.Context, tenantID uuid.UUID, filter accounts.ListFilter) ([]accounts.Account, error) {
	var out []accounts.Account
	err := r.s.read(ctx, func(t *tx) error {
		var err error
		out, err = accountTx{t}.List(ctx, tenantID, filter)
		return err
	})
	return out, err
}

func (r accountRepo) WithTx(ctx context.Context, fn func(context.Context, accounts.TxRepository) error) error {
	return r.s.withTx(ctx, func(t *tx) error {
		return fn(ctx, accountTx{t})
	})
}

type accountTx struct {
	t *tx
}

func (a accountTx) Get(_ context.Context, tenantID uuid.UUID, id int64) (accounts.Account, error) {
	acc, ok := a.t.st.accounts[id]
	if !ok || acc.TenantID != tenantID {
		return accounts.Account{}, shared.NotFound("account", id)
	}
	return acc, nil
}

func (a accountTx) GetByCode(_ context.Context, tenantID uuid.UUID, code string) (accounts.Account, error) {
	for _, acc := range a.t.st.accounts {
		if acc.TenantID == tenantID && acc.Code == code {
			return acc, nil
		}
	}
	return accounts.Account{}, shared.NotFound("account", code)
}

func (a accountTx) GetMany(_ context.Context, tenantID uuid.UUID, ids []int64) (map[int64]accounts.Account, error) {
	out := make(map[int64]accounts.Account, len(ids))
	for _, id := range ids {
		if acc, ok := a.t.st.accounts[id]; ok && acc.TenantID == tenantID {
			out[id] = acc
		}
	}
	return out, nil
}

func (a accountTx) List(_ context.Context, tenantID uuid.UUID, filter accounts.ListFilter) ([]accounts.Account, error) {
	var out []accounts.Account
	for _, acc := range a.t.st.accounts {
		if acc.TenantID != tenantID {
			continue
		}
		if filter.Type != "" && acc.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !acc.IsActive {
			continue
		}
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (a accountTx) Insert(ctx context.Context, acc accounts.Account) (accounts.Account, error) {
	if err := a.t.fault("accounts.Insert"); err != nil {
		return accounts.Account{}, err
	}
	if _, err := a.GetByCode(ctx, acc.TenantID, acc.Code); err == nil {
		return accounts.Account{}, shared.Invalid("account", acc.Code, shared.ErrDuplicateCode, "")
	}
	now := a.t.now()
	acc.ID = a.t.st.nextID("accounts")
	acc.Balance = decimal.Zero
	acc.CreatedAt, acc.UpdatedAt = now, now
	a.t.st.accounts[acc.ID] = acc
	return acc, nil
}

func (a accountTx) Update(ctx context.Context, acc accounts.Account) error {
	if err := a.t.fault("accounts.Update"); err != nil {
		return err
	}
	current, err := a.Get(ctx, acc.TenantID, acc.ID)
	if err != nil {
		return err
	}
	current.Name = acc.Name
	current.Type = acc.Type
	current.Category = acc.Category
	current.ParentID = acc.ParentID
	current.IsActive = acc.IsActive
	current.UpdatedAt = a.t.now()
	a.t.st.accounts[acc.ID] = current
	return nil
}

func (a accountTx) AdjustBalance(ctx context.Context, tenantID uuid.UUID, id int64, delta decimal.Decimal) error {
	if err := a.t.fault("accounts.AdjustBalance"); err != nil {
		return err
	}
	current, err := a.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	current.Balance = current.Balance.Add(delta)
	current.UpdatedAt = a.t.now()
	a.t.st.accounts[id] = current
	return nil
}

func (a accountTx) HasPostedEntries(_ context.Context, tenantID uuid.UUID, id int64) (bool, error) {
	for _, j := range a.t.st.journals {
		if j.TenantID != tenantID || j.Status != journals.JournalStatusPosted {
			continue
		}
		for _, e := range j.Entries {
			if e.AccountID == id {
				return true, nil
			}
		}
	}
	return false, nil
}
