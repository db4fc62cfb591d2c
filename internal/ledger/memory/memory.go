// Package memory is the in-process ledger backend. It is the default when
// no database is configured and the test double everywhere else.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mico/internal/core"
	"mico/internal/ledger"
)

type Store struct {
	mu          sync.Mutex
	txns        []core.Transaction
	entities    []core.Entity
	entityTypes []core.EntityType
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Seed loads transactions without validation, for tests and local bootstrap.
func (s *Store) Seed(txns ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, txns...)
	s.sortLocked()
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	t.ID = uuid.NewString()
	t.Date = t.Date.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, t)
	s.sortLocked()
	return t.ID, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txns))
	copy(out, s.txns)
	var total int64
	for _, t := range s.txns {
		total += t.Amount.Cents
	}
	return out, total, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) UpdateTransaction(_ context.Context, id string, updates []core.FieldUpdate) error {
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txns {
		if s.txns[i].ID != id {
			continue
		}
		for _, u := range updates {
			u.Apply(&s.txns[i])
		}
		s.sortLocked()
		return nil
	}
	return core.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txns {
		if s.txns[i].ID == id {
			s.txns = append(s.txns[:i], s.txns[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) Summarize(_ context.Context, f core.QueryFilter) (core.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.txns, f), nil
}

func (s *Store) CreateEntity(_ context.Context, e core.Entity) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typeIndexLocked(e.Type, e.UserID) < 0 {
		return "", core.ErrNotFound
	}
	e.ID = uuid.NewString()
	s.entities = append(s.entities, e)
	return e.ID, nil
}

func (s *Store) ListEntities(_ context.Context, userID string) ([]core.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Entity
	for _, e := range s.entities {
		if e.UserID != userID {
			continue
		}
		if i := s.typeIndexLocked(e.Type, userID); i >= 0 {
			e.TypeName = s.entityTypes[i].Name
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) GetEntity(_ context.Context, id string) (core.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Entity{}, core.ErrNotFound
}

func (s *Store) UpdateEntity(_ context.Context, id, userID string, ch ledger.EntityChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID != id || s.entities[i].UserID != userID {
			continue
		}
		if ch.Type != nil {
			if s.typeIndexLocked(*ch.Type, userID) < 0 {
				return core.ErrNotFound
			}
			s.entities[i].Type = *ch.Type
		}
		if ch.Name != nil {
			s.entities[i].Name = *ch.Name
		}
		return nil
	}
	return core.ErrNotFound
}

func (s *Store) DeleteEntity(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID == id && s.entities[i].UserID == userID {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) CreateEntityType(_ context.Context, et core.EntityType) (string, error) {
	if err := et.Validate(); err != nil {
		return "", err
	}
	et.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityTypes = append(s.entityTypes, et)
	return et.ID, nil
}

func (s *Store) ListEntityTypes(_ context.Context, userID string) ([]core.EntityType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.EntityType
	for _, et := range s.entityTypes {
		if et.UserID == userID {
			out = append(out, et)
		}
	}
	return out, nil
}

func (s *Store) UpdateEntityType(_ context.Context, id, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entityTypes {
		if s.entityTypes[i].ID == id && s.entityTypes[i].UserID == userID {
			s.entityTypes[i].Name = name
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteEntityType(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entityTypes {
		if s.entityTypes[i].ID != id || s.entityTypes[i].UserID != userID {
			continue
		}
		for _, e := range s.entities {
			if e.Type == id {
				return core.ErrEntityTypeInUse
			}
		}
		s.entityTypes = append(s.entityTypes[:i], s.entityTypes[i+1:]...)
		return nil
	}
	return core.ErrNotFound
}

// sortLocked keeps transactions ordered by date descending, ties broken by
// id for a stable listing.
func (s *Store) sortLocked() {
	sort.SliceStable(s.txns, func(i, j int) bool {
		if !s.txns[i].Date.Equal(s.txns[j].Date) {
			return s.txns[i].Date.After(s.txns[j].Date)
		}
		return s.txns[i].ID < s.txns[j].ID
	})
}

func (s *Store) typeIndexLocked(typeID, userID string) int {
	for i, et := range s.entityTypes {
		if et.ID == typeID && et.UserID == userID {
			return i
		}
	}
	return -1
}
