// Package sync keeps a local transaction cache consistent with the remote
// ledger while edits apply optimistically: the cache changes first, the
// server confirms afterwards, and a failed write rolls the cache back to
// its pre-edit state.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"

	"mico/internal/core"
)

// Remote is the slice of the ledger API the syncer needs.
type Remote interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, int64, error)
	UpdateTransaction(ctx context.Context, id string, updates []core.FieldUpdate) error
}

// Syncer runs optimistic edits against the remote ledger. Each edit drives
// its own state machine, so edits to different records proceed
// independently: nothing is held across the remote round trip. Edits racing
// on the same record are not coordinated either; the last response wins and
// the next refresh settles the cache.
type Syncer struct {
	remote Remote
	cache  *Cache

	mu    stdsync.Mutex
	edits map[string]EditState // in-flight edit phase by transaction id
}

// New builds a syncer over remote with an empty, stale cache.
func New(remote Remote) *Syncer {
	return &Syncer{
		remote: remote,
		cache:  NewCache(),
		edits:  make(map[string]EditState),
	}
}

// Cache exposes the local view for readers.
func (s *Syncer) Cache() *Cache { return s.cache }

// EditState reports the phase of the in-flight edit on id, or StateIdle
// when none is running. Concurrent edits on the same id share the slot.
func (s *Syncer) EditState(id string) EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edits[id]
}

// InFlight counts records with an edit currently in flight.
func (s *Syncer) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edits)
}

func (s *Syncer) step(id string, m *machine, to EditState) error {
	if err := m.transition(to); err != nil {
		return err
	}
	s.mu.Lock()
	s.edits[id] = to
	s.mu.Unlock()
	return nil
}

func (s *Syncer) finish(id string) {
	s.mu.Lock()
	delete(s.edits, id)
	s.mu.Unlock()
}

// Refresh replaces the cache with the server's authoritative listing.
func (s *Syncer) Refresh(ctx context.Context) error {
	txns, total, err := s.remote.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	s.cache.Replace(txns, total)
	return nil
}

// UpdateFieldRaw coerces raw user input for the named field and runs the
// edit. Input that does not coerce is rejected here, before the cache or
// the network see anything.
func (s *Syncer) UpdateFieldRaw(ctx context.Context, id string, field core.Field, raw string) error {
	u, err := core.ParseFieldUpdate(field, raw)
	if err != nil {
		return err
	}
	return s.UpdateField(ctx, id, u)
}

// UpdateField runs one optimistic edit end to end on its own machine:
//
//	idle -> editing          validate, no-op check
//	editing -> saving        cache updated, remote write in flight
//	saving -> reconciling    write confirmed, cache marked stale
//	saving -> rolling_back   write failed, snapshot restored
//
// An edit whose value equals the current one completes without touching
// the cache or the wire. The snapshot covers only the edited record, so a
// rollback never disturbs edits landed on other records meanwhile.
func (s *Syncer) UpdateField(ctx context.Context, id string, u core.FieldUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}

	m := &machine{}
	if err := s.step(id, m, StateEditing); err != nil {
		return err
	}
	defer s.finish(id)

	current, ok := s.cache.Get(id)
	if !ok {
		return fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	if u.Equal(current) {
		// Nothing would change; skip the remote round trip entirely.
		return nil
	}

	snap, ok := s.cache.apply(id, u)
	if !ok {
		return fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	if err := s.step(id, m, StateSaving); err != nil {
		s.cache.restore(snap)
		return err
	}

	if err := s.remote.UpdateTransaction(ctx, id, []core.FieldUpdate{u}); err != nil {
		_ = s.step(id, m, StateRollingBack)
		s.cache.restore(snap)
		slog.WarnContext(ctx, "Edit rolled back", "transaction_id", id, "field", u.Field(), "error", err)
		return fmt.Errorf("update %s: %w", u.Field(), err)
	}

	_ = s.step(id, m, StateReconciling)
	s.cache.MarkStale()
	return nil
}
