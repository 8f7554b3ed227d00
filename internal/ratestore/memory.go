package ratestore

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps rate tables in process memory. Entries are replaced
// wholesale on Put and never evicted; staleness is a read-time predicate.
// The key space is the closed alphabet of currency codes, so unbounded
// growth is not a concern.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*Table),
	}
}

// Get returns the cached table for base, or false if never stored.
func (s *MemoryStore) Get(_ context.Context, base string) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[base]
	return t, ok
}

// IsFresh reports whether a table for base exists and is younger than ttl.
func (s *MemoryStore) IsFresh(ctx context.Context, base string, now time.Time, ttl time.Duration) bool {
	t, ok := s.Get(ctx, base)
	return ok && t.Age(now) < ttl
}

// Put replaces the entry for base. Last writer wins.
func (s *MemoryStore) Put(_ context.Context, base string, table *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[base] = table
}

// Bases lists the base currencies currently cached.
func (s *MemoryStore) Bases(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bases := make([]string, 0, len(s.tables))
	for b := range s.tables {
		bases = append(bases, b)
	}
	return bases
}
