package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/close"
)

// Reader aggregates committed POSTED entries.
func (s *Store) Reader() reports.Reader {
	return committedReader{s}
}

type committedReader struct {
	s *Store
}

func (r committedReader) SumEntries(ctx context.Context, tenantID uuid.UUID, filter reports.EntryFilter) ([]reports.AccountBalance, error) {
	var out []reports.AccountBalance
	err := r.s.read(ctx, func(t *tx) error {
		var err error
		out, err = txReader{t}.SumEntries(ctx, tenantID, filter)
		return err
	})
	return out, err
}

type txReader struct {
	t *tx
}

func (r txReader) SumEntries(_ context.Context, tenantID uuid.UUID, filter reports.EntryFilter) ([]reports.AccountBalance, error) {
	sums := make(map[int64]*reports.AccountBalance)
	for _, j := range r.t.st.journals {
		if j.TenantID != tenantID || j.Status != journals.JournalStatusPosted {
			continue
		}
		if filter.From != nil && j.Date.Before(*filter.From) {
			continue
		}
		if j.Date.After(filter.To) {
			continue
		}
		for _, e := range j.Entries {
			if filter.AccountID != 0 && e.AccountID != filter.AccountID {
				continue
			}
			b, ok := sums[e.AccountID]
			if !ok {
				acc := r.t.st.accounts[e.AccountID]
				b = &reports.AccountBalance{
					AccountID: acc.ID,
					Code:      acc.Code,
					Name:      acc.Name,
					Type:      acc.Type,
					Debit:     decimal.Zero,
					Credit:    decimal.Zero,
				}
				sums[e.AccountID] = b
			}
			b.Debit = b.Debit.Add(e.Debit)
			b.Credit = b.Credit.Add(e.Credit)
		}
	}
	out := make([]reports.AccountBalance, 0, len(sums))
	for _, b := range sums {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Close returns the repository used by the period closing coordinator.
func (s *Store) Close() close.Repository {
	return closeRepo{s}
}

type closeRepo struct {
	s *Store
}

func (r closeRepo) ListPeriods(ctx context.Context, tenantID uuid.UUID, year int) ([]periods.Period, error) {
	return periodRepo{r.s}.List(ctx, tenantID, year)
}

func (r closeRepo) WithTx(ctx context.Context, fn func(context.Context, close.TxRepository) error) error {
	return r.s.withTx(ctx, func(t *tx) error {
		return fn(ctx, closeTx{t})
	})
}

type closeTx struct {
	t *tx
}

func (c closeTx) Periods() periods.TxRepository { return periodTx{c.t} }

func (c closeTx) Journals() journals.TxRepository { return journalTx{c.t} }

func (c closeTx) Mappings() mappings.TxRepository { return mappingTx{c.t} }

func (c closeTx) Ledger() reports.Reader { return txReader{c.t} }
