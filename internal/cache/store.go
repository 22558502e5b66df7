// Package cache provides the process-local TTL key-value cache shared by the
// search, pricing, and image components. Entries are not persisted and are
// lost on restart.
package cache

import (
	"sync"
	"time"
)

// EntryType selects the TTL policy applied to an entry.
type EntryType string

const (
	TypeSearch   EntryType = "search"
	TypeMetadata EntryType = "metadata"
	TypePricing  EntryType = "pricing"
	TypeImage    EntryType = "image"
)

// defaultTTLs are the per-type expiry policies. Search results churn quickly;
// card/expansion metadata and images barely change.
var defaultTTLs = map[EntryType]time.Duration{
	TypeSearch:   15 * time.Minute,
	TypeMetadata: 7 * 24 * time.Hour,
	TypePricing:  24 * time.Hour,
	TypeImage:    30 * 24 * time.Hour,
}

const defaultCapacity = 4096

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
	typ       EntryType
}

// Stats holds running hit/miss/eviction counters, for observability only.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// Store is a mutex-guarded map of typed TTL entries with a soft capacity cap.
type Store struct {
	mu       sync.Mutex
	entries  map[string]entry
	capacity int
	now      func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// New creates a Store with the default capacity.
func New() *Store {
	return NewWithCapacity(defaultCapacity)
}

// NewWithCapacity creates a Store holding at most capacity entries.
func NewWithCapacity(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Store{
		entries:  make(map[string]entry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Set stores value under key using the TTL policy for typ.
func (s *Store) Set(key string, value any, typ EntryType) {
	s.SetTTL(key, value, typ, defaultTTLs[typ])
}

// SetTTL stores value with an explicit TTL, overriding the type policy.
func (s *Store) SetTTL(key string, value any, typ EntryType, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.capacity {
		s.makeRoom(now)
	}
	s.entries[key] = entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
		typ:       typ,
	}
}

// Get returns the stored value if it exists and has not expired. An expired
// entry counts as a miss and is deleted lazily.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		s.misses++
		return nil, false
	}
	s.hits++
	return e.value, true
}

// Has reports whether a live entry exists for key without touching counters
// or evicting anything.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return ok && !s.now().After(e.expiresAt)
}

// Delete removes an entry if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Stats returns a copy of the running counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Entries:   len(s.entries),
	}
}

// makeRoom sweeps all expired entries; if the store is still full afterwards
// it evicts one arbitrary entry. Eviction order is implementation-defined,
// not LRU. Caller must hold the lock.
func (s *Store) makeRoom(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			s.evictions++
		}
	}
	if len(s.entries) < s.capacity {
		return
	}
	for k := range s.entries {
		delete(s.entries, k)
		s.evictions++
		return
	}
}
