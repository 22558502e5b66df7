package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardkeep/cardkeep/internal/cache"
	"github.com/cardkeep/cardkeep/internal/catalog"
	"github.com/cardkeep/cardkeep/internal/domain"
	"github.com/cardkeep/cardkeep/internal/ingest"
	"github.com/cardkeep/cardkeep/internal/pricing"
	"github.com/cardkeep/cardkeep/internal/search"
	"github.com/cardkeep/cardkeep/internal/sealedapi"
	"github.com/cardkeep/cardkeep/internal/snapshot"
)

type mockCatalog struct {
	items   map[string]*domain.CatalogItem
	pricing map[string]*domain.PricingSnapshot
}

func (m *mockCatalog) GetItem(_ context.Context, id string) (*domain.CatalogItem, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, catalog.ErrNotFound
}

func (m *mockCatalog) UpsertItem(_ context.Context, _ domain.CatalogItem) error { return nil }

func (m *mockCatalog) SearchCards(_ context.Context, _ catalog.SearchQuery) ([]domain.CatalogItem, int, error) {
	return nil, 0, nil
}

func (m *mockCatalog) SearchSealed(_ context.Context, _ catalog.SearchQuery) ([]domain.CatalogItem, int, error) {
	return nil, 0, nil
}

func (m *mockCatalog) GetExpansion(_ context.Context, _ string) (*domain.Expansion, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockCatalog) ListExpansions(_ context.Context, _ string) ([]domain.Expansion, error) {
	return nil, nil
}

func (m *mockCatalog) UpsertExpansion(_ context.Context, _ domain.Expansion) error { return nil }

func (m *mockCatalog) GetPricing(_ context.Context, id string) (*domain.PricingSnapshot, error) {
	return m.pricing[id], nil
}

func (m *mockCatalog) GetPricingBatch(_ context.Context, ids []string) (map[string]*domain.PricingSnapshot, error) {
	out := make(map[string]*domain.PricingSnapshot)
	for _, id := range ids {
		if snap, ok := m.pricing[id]; ok {
			out[id] = snap
		}
	}
	return out, nil
}

func (m *mockCatalog) SavePricing(_ context.Context, snap *domain.PricingSnapshot) error {
	if m.pricing == nil {
		m.pricing = make(map[string]*domain.PricingSnapshot)
	}
	m.pricing[snap.ItemID] = snap
	return nil
}

func (m *mockCatalog) ListStalePricing(_ context.Context, _ time.Time, _ int) ([]string, error) {
	return nil, nil
}

type noUpstream struct{}

func (noUpstream) GetPricing(_ context.Context, _ string) (*domain.PricingSnapshot, error) {
	return nil, nil
}

type noSealed struct{}

func (noSealed) Search(_ context.Context, _ string) ([]sealedapi.Product, error) {
	return nil, nil
}

func pricingService(cat *mockCatalog) *pricing.Service {
	fetcher := pricing.NewFetcher(noUpstream{}, cat, 0)
	return pricing.NewService(cat, fetcher, cache.New(), 12*time.Hour, 3)
}

func TestGetItemNotFound(t *testing.T) {
	h := &Handler{catalog: &mockCatalog{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	h.GetItem(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetItemSuccess(t *testing.T) {
	cat := &mockCatalog{items: map[string]*domain.CatalogItem{
		"sv1-025": {ID: "sv1-025", Name: "Pikachu", Kind: domain.KindCard},
	}}
	h := &Handler{catalog: cat}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/sv1-025", nil)
	req.SetPathValue("id", "sv1-025")
	w := httptest.NewRecorder()
	h.GetItem(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var item domain.CatalogItem
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if item.Name != "Pikachu" {
		t.Errorf("name = %q, want Pikachu", item.Name)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h := &Handler{search: search.NewService(&mockCatalog{}, noSealed{}, nil, cache.New())}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchReturnsResult(t *testing.T) {
	h := &Handler{search: search.NewService(&mockCatalog{}, noSealed{}, nil, cache.New())}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=charizard+vmax", nil)
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var res domain.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if res.Page != 1 || res.PageSize != 20 {
		t.Errorf("pagination defaults = %d/%d, want 1/20", res.Page, res.PageSize)
	}
}

func TestGetPricingNoData(t *testing.T) {
	h := &Handler{pricing: pricingService(&mockCatalog{})}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	h.GetPricing(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetPricingServesStoredValue(t *testing.T) {
	cat := &mockCatalog{pricing: map[string]*domain.PricingSnapshot{
		"sv1-025": {
			ItemID:    "sv1-025",
			Currency:  "USD",
			Raw:       domain.PriceBand{Market: decimal.NewFromInt(12)},
			UpdatedAt: time.Now(),
		},
	}}
	h := &Handler{pricing: pricingService(cat)}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/sv1-025", nil)
	req.SetPathValue("id", "sv1-025")
	w := httptest.NewRecorder()
	h.GetPricing(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var res pricing.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if res.Source != pricing.SourceDatabase {
		t.Errorf("source = %s, want database", res.Source)
	}
}

func TestBatchPricingValidation(t *testing.T) {
	h := &Handler{pricing: pricingService(&mockCatalog{})}

	for _, body := range []string{`{}`, `{"ids":[]}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/batch", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.BatchPricing(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

type mockSnapshotRepo struct {
	snapshots []snapshot.Snapshot
}

func (m *mockSnapshotRepo) Save(_ context.Context, _ time.Time, _ json.RawMessage) error {
	return nil
}

func (m *mockSnapshotRepo) GetLatest(_ context.Context) (*snapshot.Snapshot, error) {
	if len(m.snapshots) == 0 {
		return nil, snapshot.ErrNotFound
	}
	return &m.snapshots[0], nil
}

func (m *mockSnapshotRepo) GetByDate(_ context.Context, date time.Time) (*snapshot.Snapshot, error) {
	for _, s := range m.snapshots {
		if s.SnapshotDate.Equal(date) {
			return &s, nil
		}
	}
	return nil, snapshot.ErrNotFound
}

func (m *mockSnapshotRepo) List(_ context.Context, limit int) ([]snapshot.Snapshot, error) {
	if limit > len(m.snapshots) {
		limit = len(m.snapshots)
	}
	return m.snapshots[:limit], nil
}

type mockValuer struct{}

func (mockValuer) Value(_ context.Context) (*domain.CollectionValuation, error) {
	return &domain.CollectionValuation{GeneratedAt: time.Now()}, nil
}

func TestGetLatestSnapshotSuccess(t *testing.T) {
	data, _ := json.Marshal(map[string]string{"test": "data"})
	repo := &mockSnapshotRepo{snapshots: []snapshot.Snapshot{
		{ID: 1, SnapshotDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), Data: data},
	}}
	h := &Handler{snapshots: snapshot.NewService(mockValuer{}, repo)}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/latest", nil)
	w := httptest.NewRecorder()
	h.GetLatestSnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGetLatestSnapshotNotFound(t *testing.T) {
	h := &Handler{snapshots: snapshot.NewService(mockValuer{}, &mockSnapshotRepo{})}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/latest", nil)
	w := httptest.NewRecorder()
	h.GetLatestSnapshot(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetSnapshotByDateInvalidDate(t *testing.T) {
	h := &Handler{snapshots: snapshot.NewService(mockValuer{}, &mockSnapshotRepo{})}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/15-01-2026", nil)
	req.SetPathValue("date", "15-01-2026")
	w := httptest.NewRecorder()
	h.GetSnapshotByDate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

type stubJob struct {
	name       string
	triggerErr error
	status     *ingest.SyncStatus
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) IsSyncNeeded(_ context.Context) (bool, error) { return false, nil }

func (j *stubJob) Trigger(_ context.Context) error { return j.triggerErr }

func (j *stubJob) Stats(_ context.Context) (*ingest.SyncStatus, error) {
	return j.status, nil
}

func TestTriggerSyncUnknownJob(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, nil, nil, &stubJob{name: "catalog"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/nope/trigger", nil)
	req.SetPathValue("job", "nope")
	w := httptest.NewRecorder()
	h.TriggerSync(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTriggerSyncConflict(t *testing.T) {
	job := &stubJob{name: "catalog", triggerErr: ingest.ErrSyncInProgress}
	h := NewHandler(nil, nil, nil, nil, nil, nil, job)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/catalog/trigger", nil)
	req.SetPathValue("job", "catalog")
	w := httptest.NewRecorder()
	h.TriggerSync(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestTriggerSyncSuccess(t *testing.T) {
	job := &stubJob{name: "catalog", status: &ingest.SyncStatus{Domain: "catalog", State: ingest.StateCompleted}}
	h := NewHandler(nil, nil, nil, nil, nil, nil, job)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/catalog/trigger", nil)
	req.SetPathValue("job", "catalog")
	w := httptest.NewRecorder()
	h.TriggerSync(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var st ingest.SyncStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if st.State != ingest.StateCompleted {
		t.Errorf("state = %s, want completed", st.State)
	}
}
