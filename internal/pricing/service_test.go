package pricing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardkeep/cardkeep/internal/cache"
	"github.com/cardkeep/cardkeep/internal/domain"
)

// mockStore is an in-memory system of record: reads serve the map, writes
// land in it, mimicking the database reader/writer pair.
type mockStore struct {
	mu    sync.Mutex
	rows  map[string]*domain.PricingSnapshot
	reads int64
}

func newMockStore() *mockStore {
	return &mockStore{rows: make(map[string]*domain.PricingSnapshot)}
}

func (m *mockStore) GetPricing(_ context.Context, itemID string) (*domain.PricingSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.rows[itemID], nil
}

func (m *mockStore) GetPricingBatch(_ context.Context, itemIDs []string) (map[string]*domain.PricingSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*domain.PricingSnapshot)
	for _, id := range itemIDs {
		if snap, ok := m.rows[id]; ok {
			out[id] = snap
		}
	}
	return out, nil
}

func (m *mockStore) SavePricing(_ context.Context, snap *domain.PricingSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[snap.ItemID] = snap
	return nil
}

// mockUpstream counts calls and optionally delays to expose blocking.
type mockUpstream struct {
	calls int64
	delay time.Duration
	snap  func(id string) *domain.PricingSnapshot
}

func (m *mockUpstream) GetPricing(ctx context.Context, itemID string) (*domain.PricingSnapshot, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if m.snap == nil {
		return nil, nil
	}
	return m.snap(itemID), nil
}

func freshSnap(id string, market float64) *domain.PricingSnapshot {
	return &domain.PricingSnapshot{
		ItemID:    id,
		Currency:  "USD",
		Raw:       domain.PriceBand{Market: decimal.NewFromFloat(market)},
		UpdatedAt: time.Now(),
	}
}

func newService(store *mockStore, upstream *mockUpstream) *Service {
	fetcher := NewFetcher(upstream, store, 0)
	return NewService(store, fetcher, cache.New(), 12*time.Hour, 3)
}

func TestStaleValueServedWithoutBlocking(t *testing.T) {
	store := newMockStore()
	stale := freshSnap("sv1-025", 10)
	stale.UpdatedAt = time.Now().Add(-13 * time.Hour) // past the 12h threshold
	store.rows["sv1-025"] = stale

	upstream := &mockUpstream{
		delay: 200 * time.Millisecond,
		snap:  func(id string) *domain.PricingSnapshot { return freshSnap(id, 11) },
	}
	svc := newService(store, upstream)

	start := time.Now()
	res, err := svc.GetPricing(context.Background(), "sv1-025", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("stale read blocked for %v; must not wait on the network", elapsed)
	}
	if res.Source != SourceDatabase {
		t.Errorf("source = %s, want database", res.Source)
	}
	if got := res.Snapshot.Raw.Market.String(); got != "10" {
		t.Errorf("served market = %s, want the stale value 10", got)
	}

	// The background refresh lands eventually
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&upstream.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt64(&upstream.calls) != 1 {
		t.Errorf("background refresh calls = %d, want 1", atomic.LoadInt64(&upstream.calls))
	}
}

func TestFreshValueDoesNotTriggerRefresh(t *testing.T) {
	store := newMockStore()
	store.rows["sv1-001"] = freshSnap("sv1-001", 5)

	upstream := &mockUpstream{snap: func(id string) *domain.PricingSnapshot { return freshSnap(id, 6) }}
	svc := newService(store, upstream)

	res, err := svc.GetPricing(context.Background(), "sv1-001", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceDatabase {
		t.Errorf("source = %s, want database", res.Source)
	}

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(&upstream.calls); n != 0 {
		t.Errorf("upstream calls = %d, want 0 for a fresh value", n)
	}
}

func TestConcurrentRequestsCoalesce(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{
		delay: 50 * time.Millisecond,
		snap:  func(id string) *domain.PricingSnapshot { return freshSnap(id, 12.5) },
	}
	svc := newService(store, upstream)

	const n = 10
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.GetPricing(context.Background(), "sv1-025", DefaultOptions())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = res
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt64(&upstream.calls); calls != 1 {
		t.Errorf("upstream calls = %d, want exactly 1 for %d concurrent requests", calls, n)
	}
	for i, res := range results {
		if res.Snapshot == nil {
			t.Fatalf("result %d has no snapshot", i)
		}
		if got := res.Snapshot.Raw.Market.String(); got != "12.5" {
			t.Errorf("result %d market = %s, want 12.5", i, got)
		}
	}
}

func TestAbsentThenDatabaseScenario(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{snap: func(id string) *domain.PricingSnapshot { return freshSnap(id, 12.5) }}
	svc := newService(store, upstream)

	// No database row: the lookup falls through to the upstream and the
	// result is written back.
	res, err := svc.GetPricing(context.Background(), "sv1-025", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceAPI {
		t.Errorf("first source = %s, want api", res.Source)
	}
	if store.rows["sv1-025"] == nil {
		t.Fatal("fetched pricing was not written back to the store")
	}

	// A second resolver (fresh process cache) finds the row in the database
	// within the staleness window, with no second upstream call.
	svc2 := newService(store, upstream)
	res2, err := svc2.GetPricing(context.Background(), "sv1-025", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.Source != SourceDatabase {
		t.Errorf("second source = %s, want database", res2.Source)
	}
	if got := res2.Snapshot.Raw.Market.String(); got != "12.5" {
		t.Errorf("second market = %s, want 12.5", got)
	}
	if calls := atomic.LoadInt64(&upstream.calls); calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestUpstreamFailureSurfacesAsNoData(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{snap: nil} // upstream has nothing
	svc := newService(store, upstream)

	res, err := svc.GetPricing(context.Background(), "missing-card", DefaultOptions())
	if err != nil {
		t.Fatalf("upstream emptiness must not be an error, got %v", err)
	}
	if res.Snapshot != nil {
		t.Error("expected nil snapshot when no source has data")
	}
}

func TestNoFallbackStopsAtDatabase(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{snap: func(id string) *domain.PricingSnapshot { return freshSnap(id, 1) }}
	svc := newService(store, upstream)

	res, err := svc.GetPricing(context.Background(), "sv1-099", Options{FallbackToAPI: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Snapshot != nil {
		t.Error("expected no snapshot without API fallback")
	}
	if n := atomic.LoadInt64(&upstream.calls); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

func TestForceRefreshSkipsStoredValue(t *testing.T) {
	store := newMockStore()
	store.rows["sv1-025"] = freshSnap("sv1-025", 10)

	upstream := &mockUpstream{snap: func(id string) *domain.PricingSnapshot { return freshSnap(id, 20) }}
	svc := newService(store, upstream)

	res, err := svc.GetPricing(context.Background(), "sv1-025", Options{ForceRefresh: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceAPI {
		t.Errorf("source = %s, want api", res.Source)
	}
	if got := res.Snapshot.Raw.Market.String(); got != "20" {
		t.Errorf("market = %s, want the forced-refresh value 20", got)
	}
}

func TestBatchMixesStoredAndFetched(t *testing.T) {
	store := newMockStore()
	store.rows["sv1-001"] = freshSnap("sv1-001", 3)
	store.rows["sv1-002"] = freshSnap("sv1-002", 4)

	upstream := &mockUpstream{snap: func(id string) *domain.PricingSnapshot {
		if id == "sv1-404" {
			return nil
		}
		return freshSnap(id, 7)
	}}
	svc := newService(store, upstream)

	results, err := svc.GetPricingBatch(context.Background(),
		[]string{"sv1-001", "sv1-002", "sv1-003", "sv1-404"}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results["sv1-001"].Source != SourceDatabase {
		t.Errorf("sv1-001 source = %s, want database", results["sv1-001"].Source)
	}
	if results["sv1-003"].Source != SourceAPI {
		t.Errorf("sv1-003 source = %s, want api", results["sv1-003"].Source)
	}
	if _, ok := results["sv1-404"]; ok {
		t.Error("sv1-404 has no data anywhere and must be absent from the result map")
	}
}

func TestFetcherSpacesRequests(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{snap: func(id string) *domain.PricingSnapshot { return freshSnap(id, 1) }}
	f := NewFetcher(upstream, store, 40*time.Millisecond)

	start := time.Now()
	f.FetchFresh(context.Background(), "a")
	f.FetchFresh(context.Background(), "b")
	f.FetchFresh(context.Background(), "c")
	elapsed := time.Since(start)

	// Three calls with a 40ms gate need at least two full delays
	if elapsed < 80*time.Millisecond {
		t.Errorf("three fetches completed in %v, want >= 80ms of rate spacing", elapsed)
	}
}
