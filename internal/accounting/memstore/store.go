// Package memstore keeps the ledger in memory behind the same repository ports as the pgx
// implementation. Transactions run one at a time against a copy of the committed state that
// replaces it only when the callback succeeds.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
	internalShared "github.com/rasyiqi-code/Counting-sub001/internal/shared"
)

// Store is an in-memory ledger database.
type Store struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error
	audit  []internalShared.AuditLog
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state:  newState(),
		faults: make(map[string]error),
		now:    time.Now,
	}
}

// Fail makes the next call of op inside a transaction return err, e.g. "assets.Update".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// AuditLogs returns a copy of the recorded audit entries.
func (s *Store) AuditLogs() []internalShared.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]internalShared.AuditLog(nil), s.audit...)
}

// Record implements the services' audit port.
func (s *Store) Record(_ context.Context, log internalShared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, log)
	return nil
}

type sequenceKey struct {
	tenant uuid.UUID
	scope  string
	year   int
}

type mappingKey struct {
	tenant uuid.UUID
	key    string
}

type state struct {
	ids           map[string]int64
	sequences     map[sequenceKey]int64
	accounts      map[int64]accounts.Account
	mappings      map[mappingKey]mappings.AccountMapping
	journals      map[int64]journals.Journal
	periods       map[int64]periods.Period
	assets        map[int64]assets.Asset
	depreciations map[int64]assets.Depreciation
}

func newState() *state {
	return &state{
		ids:           make(map[string]int64),
		sequences:     make(map[sequenceKey]int64),
		accounts:      make(map[int64]accounts.Account),
		mappings:      make(map[mappingKey]mappings.AccountMapping),
		journals:      make(map[int64]journals.Journal),
		periods:       make(map[int64]periods.Period),
		assets:        make(map[int64]assets.Asset),
		depreciations: make(map[int64]assets.Depreciation),
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.ids {
		out.ids[k] = v
	}
	for k, v := range st.sequences {
		out.sequences[k] = v
	}
	for k, v := range st.accounts {
		out.accounts[k] = v
	}
	for k, v := range st.mappings {
		out.mappings[k] = v
	}
	for k, v := range st.journals {
		out.journals[k] = cloneJournal(v)
	}
	for k, v := range st.periods {
		out.periods[k] = v
	}
	for k, v := range st.assets {
		out.assets[k] = v
	}
	for k, v := range st.depreciations {
		out.depreciations[k] = v
	}
	return out
}

func (st *state) nextID(table string) int64 {
	st.ids[table]++
	return st.ids[table]
}

func cloneJournal(j journals.Journal) journals.Journal {
	j.Entries = append([]journals.JournalEntry(nil), j.Entries...)
	return j
}

// tx is the working copy of one transaction.
type tx struct {
	store *Store
	st    *state
}

func (t *tx) fault(op string) error {
	err, ok := t.store.faults[op]
	if !ok {
		return nil
	}
	delete(t.store.faults, op)
	return fmt.Errorf("memstore: %s: %w", op, err)
}

func (t *tx) now() time.Time {
	return t.store.now()
}

func (s *Store) withTx(ctx context.Context, fn func(*tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := &tx{store: s, st: s.state.clone()}
	if err := fn(work); err != nil {
		return err
	}
	s.state = work.st
	return nil
}

// read runs fn against the committed state. The state it sees must not escape.
func (s *Store) read(ctx context.Context, fn func(*tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&tx{store: s, st: s.state})
}
