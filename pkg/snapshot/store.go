// Package snapshot holds the latest accepted copy of the remote table and
// the last row the viewer accepted into view. The table is only ever
// replaced wholesale, except for the narrow annotation patch applied after
// a successful save.
package snapshot

import (
	"sync"

	"github.com/agentstation/sheetreview/pkg/table"
)

// Store is safe for concurrent use. Readers never observe a partially
// written table.
type Store struct {
	mu       sync.RWMutex
	table    table.Table
	loaded   bool
	version  uint64
	observed *table.Row
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Replace swaps in t as the current snapshot.
func (s *Store) Replace(t table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	s.loaded = true
	s.version++
}

// Loaded reports whether any table has been stored yet.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Table returns the current snapshot. Rows are never mutated in place, so
// the returned value stays consistent even if the store is replaced later.
func (s *Store) Table() table.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Version increases on every Replace and PatchField.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Row returns the row with the given stable index.
func (s *Store) Row(index int) (table.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Row(index)
}

// PatchField sets one field of one row. It returns the patched row, or
// false when the row is not in the snapshot.
func (s *Store) PatchField(index, column int, value string) (table.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patched, ok := s.table.WithField(index, column, value)
	if !ok {
		return table.Row{}, false
	}
	s.table = patched
	s.version++
	r, _ := patched.Row(index)
	return r, true
}

// Observe records r as the row last accepted into view.
func (s *Store) Observe(r table.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := r.Clone()
	s.observed = &c
}

// Observed returns the row last accepted into view.
func (s *Store) Observed() (table.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.observed == nil {
		return table.Row{}, false
	}
	return s.observed.Clone(), true
}

// Forget clears the observed row, used when the cursor moves.
func (s *Store) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observed = nil
}
