package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()

	s.Set("k1", "hello", TypeSearch)
	s.Set("k2", 42, TypePricing)

	if v, ok := s.Get("k1"); !ok || v.(string) != "hello" {
		t.Errorf("Get(k1) = %v, %v; want hello, true", v, ok)
	}
	if v, ok := s.Get("k2"); !ok || v.(int) != 42 {
		t.Errorf("Get(k2) = %v, %v; want 42, true", v, ok)
	}
	if _, ok := s.Get("absent"); ok {
		t.Error("Get(absent) should miss")
	}
}

func TestExpiryIsAMiss(t *testing.T) {
	s := New()
	now := time.Now()
	s.now = func() time.Time { return now }

	s.Set("k", "v", TypeSearch)

	// Advance the simulated clock past the search TTL
	now = now.Add(16 * time.Minute)

	if s.Has("k") {
		t.Error("Has should be false after TTL elapsed")
	}
	if _, ok := s.Get("k"); ok {
		t.Error("Get should miss after TTL elapsed")
	}
	// Expired entry is removed lazily on Get
	s.mu.Lock()
	_, stillThere := s.entries["k"]
	s.mu.Unlock()
	if stillThere {
		t.Error("expired entry should have been deleted on access")
	}
}

func TestHasHasNoSideEffects(t *testing.T) {
	s := New()
	s.Set("k", "v", TypeMetadata)

	s.Has("k")
	s.Has("absent")

	stats := s.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Has must not touch counters, got hits=%d misses=%d", stats.Hits, stats.Misses)
	}
}

func TestTTLOverride(t *testing.T) {
	s := New()
	now := time.Now()
	s.now = func() time.Time { return now }

	s.SetTTL("k", "v", TypeImage, time.Minute)

	now = now.Add(2 * time.Minute)
	if _, ok := s.Get("k"); ok {
		t.Error("override TTL of 1m should expire before the 30d image default")
	}
}

func TestCapacitySweepsExpiredFirst(t *testing.T) {
	s := NewWithCapacity(3)
	now := time.Now()
	s.now = func() time.Time { return now }

	s.SetTTL("old1", 1, TypeSearch, time.Minute)
	s.SetTTL("old2", 2, TypeSearch, time.Minute)
	s.SetTTL("live", 3, TypeSearch, time.Hour)

	now = now.Add(5 * time.Minute) // old1, old2 expired; live still valid

	s.Set("new", 4, TypeSearch)

	if !s.Has("live") {
		t.Error("live entry must survive the overflow sweep")
	}
	if !s.Has("new") {
		t.Error("new entry must be inserted")
	}
	if s.Stats().Evictions != 2 {
		t.Errorf("evictions = %d, want 2 (both expired entries)", s.Stats().Evictions)
	}
}

func TestCapacityEvictsWhenNothingExpired(t *testing.T) {
	s := NewWithCapacity(4)
	for i := range 4 {
		s.Set(fmt.Sprintf("k%d", i), i, TypeMetadata)
	}

	s.Set("overflow", 99, TypeMetadata)

	stats := s.Stats()
	if stats.Entries != 4 {
		t.Errorf("entries = %d, want capacity 4", stats.Entries)
	}
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", stats.Evictions)
	}
	if !s.Has("overflow") {
		t.Error("newest entry must be present after eviction")
	}
}

func TestCounters(t *testing.T) {
	s := New()
	s.Set("k", "v", TypeSearch)

	s.Get("k")
	s.Get("k")
	s.Get("absent")

	stats := s.Stats()
	if stats.Hits != 2 {
		t.Errorf("hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
}
