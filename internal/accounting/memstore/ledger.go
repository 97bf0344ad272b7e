package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// Periods returns the accounting period repository.
func (s *Store) Periods() periods.Repository {
	return periodRepo{s}
}

type periodRepo struct {
	s *Store
}

func (r periodRepo) List(ctx context.Context, tenantID uuid.UUID, year int) ([]periods.Period, error) {
	var out []periods.Period
	err := r.s.read(ctx, func(t *tx) error {
		var err error
		out, err = periodTx{t}.ListYear(ctx, tenantID, year)
		return err
	})
	return out, err
}

func (r periodRepo) WithTx(ctx context.Context, fn func(context.Context, periods.TxRepository) error) error {
	return r.s.withTx(ctx, func(t *tx) error {
		return fn(ctx, periodTx{t})
	})
}

type periodTx struct {
	t *tx
}

func (p periodTx) Get(_ context.Context, tenantID uuid.UUID, key periods.Key) (periods.Period, error) {
	for _, period := range p.t.st.periods {
		if period.TenantID == tenantID && period.Key() == key {
			return period, nil
		}
	}
	return periods.Period{}, shared.NotFound("period", key.String())
}

func (p periodTx) GetForUpdate(ctx context.Context, tenantID uuid.UUID, key periods.Key) (periods.Period, error) {
	return p.Get(ctx, tenantID, key)
}

func (p periodTx) Insert(ctx context.Context, period periods.Period) (periods.Period, error) {
	if err := p.t.fault("periods.Insert"); err != nil {
		return periods.Period{}, err
	}
	if _, err := p.Get(ctx, period.TenantID, period.Key()); err == nil {
		return periods.Period{}, shared.Concurrent("period", period.Key().String(), "period created concurrently")
	}
	now := p.t.now()
	period.ID = p.t.st.nextID("periods")
	period.CreatedAt, period.UpdatedAt = now, now
	p.t.st.periods[period.ID] = period
	return period, nil
}

func (p periodTx) InsertOrGet(ctx context.Context, period periods.Period) (periods.Period, error) {
	if existing, err := p.Get(ctx, period.TenantID, period.Key()); err == nil {
		return existing, nil
	}
	return p.Insert(ctx, period)
}

func (p periodTx) UpdateStatus(_ context.Context, period periods.Period) error {
	if err := p.t.fault("periods.UpdateStatus"); err != nil {
		return err
	}
	current, ok := p.t.st.periods[period.ID]
	if !ok {
		return shared.NotFound("period", period.Key().String())
	}
	current.Status = period.Status
	current.ClosedAt = period.ClosedAt
	current.ClosedBy = period.ClosedBy
	current.UpdatedAt = p.t.now()
	p.t.st.periods[period.ID] = current
	return nil
}

func (p periodTx) ListYear(_ context.Context, tenantID uuid.UUID, year int) ([]periods.Period, error) {
	var out []periods.Period
	for _, period := range p.t.st.periods {
		if period.TenantID == tenantID && period.Year == year {
			out = append(out, period)
		}
	}
	sort.Slice(out, func(i, j int) bool { return monthOrder(out[i]) < monthOrder(out[j]) })
	return out, nil
}

func monthOrder(p periods.Period) int {
	if p.Month == nil {
		return 13
	}
	return *p.Month
}

// Mappings returns the account mapping repository.
func (s *Store) Mappings() mappings.Repository {
	return mappingRepo{s}
}

type mappingRepo struct {
	s *Store
}

func (r mappingRepo) List(ctx context.Context, tenantID uuid.UUID) ([]mappings.AccountMapping, error) {
	var out []mappings.AccountMapping
	err := r.s.read(ctx, func(t *tx) error {
		for k, m := range t.st.mappings {
			if k.tenant == tenantID {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, err
}

func (r mappingRepo) WithTx(ctx context.Context, fn func(context.Context, mappings.TxRepository) error) error {
	return r.s.withTx(ctx, func(t *tx) error {
		return fn(ctx, mappingTx{t})
	})
}

type mappingTx struct {
	t *tx
}

func (m mappingTx) Get(_ context.Context, tenantID uuid.UUID, key string) (mappings.AccountMapping, error) {
	key = mappings.Normalize(key)
	mapping, ok := m.t.st.mappings[mappingKey{tenant: tenantID, key: key}]
	if !ok {
		return mappings.AccountMapping{}, shared.Invalid("mapping", key, shared.ErrMappingNotFound, "")
	}
	return mapping, nil
}

func (m mappingTx) Upsert(_ context.Context, mapping mappings.AccountMapping) error {
	if err := m.t.fault("mappings.Upsert"); err != nil {
		return err
	}
	mapping.Key = mappings.Normalize(mapping.Key)
	k := mappingKey{tenant: mapping.TenantID, key: mapping.Key}
	now := m.t.now()
	if current, ok := m.t.st.mappings[k]; ok {
		mapping.CreatedAt = current.CreatedAt
	} else {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now
	m.t.st.mappings[k] = mapping
	return nil
}

// Journals returns the journal repository.
func (s *Store) Journals() journals.Repository {
	return journalRepo{s}
}

type journalRepo struct {
	s *Store
}

func (r journalRepo) Get(ctx context.Context, tenantID uuid.UUID, id int64) (journals.Journal, error) {
	var out journals.Journal
	err := r.s.read(ctx, func(t *tx) error {
		var err error
		out, err = journalTx{t}.GetForUpdate(ctx, tenantID, id)
		return err
	})
	return out, err
}

func (r journalRepo) List(ctx context.Context, tenantID uuid.UUID, filter journals.ListFilter) ([]journals.Journal, error) {
	var out []journals.Journal
	err := r.s.read(ctx, func(t *tx) error {
		for _, j := range t.st.journals {
			if j.TenantID != tenantID || !matchJournal(j, filter) {
				continue
			}
			j.Entries = nil
			out = append(out, j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].Date.Equal(out[k].Date) {
			return out[i].Date.After(out[k].Date)
		}
		return out[i].ID > out[k].ID
	})
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchJournal(j journals.Journal, filter journals.ListFilter) bool {
	if filter.Status != "" && j.Status != filter.Status {
		return false
	}
	if filter.SourceType != "" && j.SourceType != filter.SourceType {
		return false
	}
	if filter.From != nil && j.Date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && j.Date.After(*filter.To) {
		return false
	}
	return true
}

func (r journalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	return r.s.withTx(ctx, func(t *tx) error {
		return fn(ctx, journalTx{t})
	})
}

type journalTx struct {
	t *tx
}

func (j journalTx) Accounts() accounts.TxRepository { return accountTx{j.t} }

func (j journalTx) Periods() periods.TxRepository { return periodTx{j.t} }

func (j journalTx) NextNumber(_ context.Context, tenantID uuid.UUID, year int) (string, error) {
	if err := j.t.fault("journals.NextNumber"); err != nil {
		return "", err
	}
	return journals.FormatNumber(year, j.t.nextSequence(tenantID, "journal", year)), nil
}

func (t *tx) nextSequence(tenantID uuid.UUID, scope string, year int) int64 {
	k := sequenceKey{tenant: tenantID, scope: scope, year: year}
	t.st.sequences[k]++
	return t.st.sequences[k]
}

func (j journalTx) Insert(_ context.Context, journal journals.Journal) (journals.Journal, error) {
	if err := j.t.fault("journals.Insert"); err != nil {
		return journals.Journal{}, err
	}
	for _, existing := range j.t.st.journals {
		if existing.TenantID != journal.TenantID {
			continue
		}
		if existing.Number == journal.Number {
			return journals.Journal{}, shared.Concurrent("journal", journal.Number, "number allocated twice")
		}
		if sameSource(existing, journal) {
			return journals.Journal{}, shared.Invalid("journal", nil, shared.ErrSourceAlreadyLinked, "%s %s", journal.SourceType, journal.SourceID)
		}
	}
	now := j.t.now()
	journal.ID = j.t.st.nextID("journals")
	journal.CreatedAt, journal.UpdatedAt = now, now
	journal.Entries = append([]journals.JournalEntry(nil), journal.Entries...)
	for i := range journal.Entries {
		journal.Entries[i].ID = j.t.st.nextID("journal_entries")
		journal.Entries[i].JournalID = journal.ID
	}
	j.t.st.journals[journal.ID] = journal
	return cloneJournal(journal), nil
}

// sameSource mirrors the partial unique index on source links of non-VOID journals.
func sameSource(a, b journals.Journal) bool {
	if a.SourceType == "" || a.SourceID == "" || a.Status == journals.JournalStatusVoid || b.Status == journals.JournalStatusVoid {
		return false
	}
	return a.SourceType == b.SourceType && a.SourceID == b.SourceID
}

func (j journalTx) GetForUpdate(_ context.Context, tenantID uuid.UUID, id int64) (journals.Journal, error) {
	journal, ok := j.t.st.journals[id]
	if !ok || journal.TenantID != tenantID {
		return journals.Journal{}, shared.NotFound("journal", id)
	}
	return cloneJournal(journal), nil
}

func (j journalTx) UpdateStatus(_ context.Context, journal journals.Journal) error {
	if err := j.t.fault("journals.UpdateStatus"); err != nil {
		return err
	}
	current, ok := j.t.st.journals[journal.ID]
	if !ok || current.TenantID != journal.TenantID {
		return shared.NotFound("journal", journal.ID)
	}
	current.Status = journal.Status
	current.PostedBy, current.PostedAt = journal.PostedBy, journal.PostedAt
	current.VoidedBy, current.VoidedAt, current.VoidReason = journal.VoidedBy, journal.VoidedAt, journal.VoidReason
	current.UpdatedAt = j.t.now()
	j.t.st.journals[journal.ID] = current
	return nil
}

func (j journalTx) FindReversal(_ context.Context, tenantID uuid.UUID, id int64) (int64, bool, error) {
	for _, journal := range j.t.st.journals {
		if journal.TenantID == tenantID && journal.ReversalOf != nil && *journal.ReversalOf == id && journal.Status != journals.JournalStatusVoid {
			return journal.ID, true, nil
		}
	}
	return 0, false, nil
}

func (j journalTx) CountDrafts(_ context.Context, tenantID uuid.UUID, from, to time.Time) (int, error) {
	n := 0
	for _, journal := range j.t.st.journals {
		if journal.TenantID == tenantID && journal.Status == journals.JournalStatusDraft &&
			!journal.Date.Before(from) && !journal.Date.After(to) {
			n++
		}
	}
	return n, nil
}
