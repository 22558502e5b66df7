// Package api is the HTTP surface: search, catalog reads, pricing, the
// collection, snapshots, and sync administration.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cardkeep/cardkeep/internal/catalog"
	"github.com/cardkeep/cardkeep/internal/collection"
	"github.com/cardkeep/cardkeep/internal/domain"
	"github.com/cardkeep/cardkeep/internal/images"
	"github.com/cardkeep/cardkeep/internal/ingest"
	"github.com/cardkeep/cardkeep/internal/pricing"
	"github.com/cardkeep/cardkeep/internal/search"
	"github.com/cardkeep/cardkeep/internal/snapshot"
)

// Handler provides the HTTP endpoints.
type Handler struct {
	search     *search.Service
	pricing    *pricing.Service
	catalog    catalog.Repository
	images     *images.Finder
	collection *collection.Service
	snapshots  *snapshot.Service
	jobs       map[string]ingest.Job
}

// NewHandler creates a new API handler. jobs are keyed by their names for the
// sync endpoints.
func NewHandler(
	searchSvc *search.Service,
	pricingSvc *pricing.Service,
	cat catalog.Repository,
	finder *images.Finder,
	coll *collection.Service,
	snapshots *snapshot.Service,
	jobs ...ingest.Job,
) *Handler {
	byName := make(map[string]ingest.Job, len(jobs))
	for _, job := range jobs {
		byName[job.Name()] = job
	}
	return &Handler{
		search:     searchSvc,
		pricing:    pricingSvc,
		catalog:    cat,
		images:     finder,
		collection: coll,
		snapshots:  snapshots,
		jobs:       byName,
	}
}

// Search handles GET /api/v1/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := search.Request{
		Query:       q.Get("q"),
		Game:        q.Get("game"),
		Mode:        search.Mode(q.Get("type")),
		ExpansionID: q.Get("expansion"),
		Rarity:      q.Get("rarity"),
		Page:        intParam(q.Get("page"), 1),
		PageSize:    intParam(q.Get("pageSize"), 20),
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	writeJSON(w, http.StatusOK, h.search.Search(r.Context(), req))
}

// GetItem handles GET /api/v1/items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		slog.Error("failed to get item", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// GetPricing handles GET /api/v1/pricing/{id}. ?refresh=true forces an
// upstream fetch.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	opts := pricing.DefaultOptions()
	if r.URL.Query().Get("refresh") == "true" {
		opts.ForceRefresh = true
	}

	res, err := h.pricing.GetPricing(r.Context(), r.PathValue("id"), opts)
	if err != nil {
		slog.Error("failed to get pricing", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if res.Snapshot == nil {
		writeError(w, http.StatusNotFound, "no pricing available")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BatchPricing handles POST /api/v1/pricing/batch.
func (h *Handler) BatchPricing(w http.ResponseWriter, r *http.Request) {
	const maxBatch = 100

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}
	if len(body.IDs) > maxBatch {
		writeError(w, http.StatusBadRequest, "too many ids")
		return
	}

	results, err := h.pricing.GetPricingBatch(r.Context(), body.IDs, pricing.DefaultOptions())
	if err != nil {
		slog.Error("failed to get pricing batch", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// ListExpansions handles GET /api/v1/expansions.
func (h *Handler) ListExpansions(w http.ResponseWriter, r *http.Request) {
	exps, err := h.catalog.ListExpansions(r.Context(), r.URL.Query().Get("game"))
	if err != nil {
		slog.Error("failed to list expansions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, exps)
}

// GetExpansion handles GET /api/v1/expansions/{id}.
func (h *Handler) GetExpansion(w http.ResponseWriter, r *http.Request) {
	exp, err := h.catalog.GetExpansion(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expansion not found")
			return
		}
		slog.Error("failed to get expansion", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// FindImage handles GET /api/v1/images. Always answers 200: the finder
// degrades to a placeholder.
func (h *Handler) FindImage(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter name")
		return
	}
	url := h.images.FindCardImage(r.Context(), name, r.URL.Query().Get("set"))
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ListHoldings handles GET /api/v1/collection/holdings.
func (h *Handler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.collection.ListHoldings(r.Context())
	if err != nil {
		slog.Error("failed to list holdings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	writeJSON(w, http.StatusOK, holdings)
}

// AddHolding handles POST /api/v1/collection/holdings.
func (h *Handler) AddHolding(w http.ResponseWriter, r *http.Request) {
	var holding domain.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if holding.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}

	id, err := h.collection.AddHolding(r.Context(), holding)
	if err != nil {
		slog.Error("failed to add holding", "item", holding.ItemID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// UpdateHolding handles PUT /api/v1/collection/holdings/{id}.
func (h *Handler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid holding id")
		return
	}

	var holding domain.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	holding.ID = id

	if err := h.collection.UpdateHolding(r.Context(), holding); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			writeError(w, http.StatusNotFound, "holding not found")
			return
		}
		slog.Error("failed to update holding", "id", id, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

// DeleteHolding handles DELETE /api/v1/collection/holdings/{id}.
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid holding id")
		return
	}

	if err := h.collection.DeleteHolding(r.Context(), id); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			writeError(w, http.StatusNotFound, "holding not found")
			return
		}
		slog.Error("failed to delete holding", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSales handles GET /api/v1/collection/sales.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.collection.ListSales(r.Context())
	if err != nil {
		slog.Error("failed to list sales", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sales == nil {
		sales = []domain.Sale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// AddSale handles POST /api/v1/collection/sales.
func (h *Handler) AddSale(w http.ResponseWriter, r *http.Request) {
	var sale domain.Sale
	if err := json.NewDecoder(r.Body).Decode(&sale); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sale.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now()
	}

	id, err := h.collection.AddSale(r.Context(), sale)
	if err != nil {
		slog.Error("failed to add sale", "item", sale.ItemID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// CollectionValue handles GET /api/v1/collection/value.
func (h *Handler) CollectionValue(w http.ResponseWriter, r *http.Request) {
	v, err := h.collection.Value(r.Context())
	if err != nil {
		slog.Error("failed to value collection", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetLatestSnapshot handles GET /api/v1/snapshots/latest.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.snapshots.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshots found")
			return
		}
		slog.Error("failed to get latest snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetSnapshotByDate handles GET /api/v1/snapshots/{date}.
func (h *Handler) GetSnapshotByDate(w http.ResponseWriter, r *http.Request) {
	dateStr := r.PathValue("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	s, err := h.snapshots.GetByDate(r.Context(), date)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found for date")
			return
		}
		slog.Error("failed to get snapshot by date", "date", dateStr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListSnapshots handles GET /api/v1/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	snapshots, err := h.snapshots.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// GenerateSnapshot handles POST /api/v1/snapshots/generate.
func (h *Handler) GenerateSnapshot(w http.ResponseWriter, r *http.Request) {
	v, err := h.snapshots.Generate(r.Context(), time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		slog.Error("failed to generate snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate snapshot")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SyncStatus handles GET /api/v1/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	statuses := make(map[string]*ingest.SyncStatus, len(h.jobs))
	for name, job := range h.jobs {
		st, err := job.Stats(r.Context())
		if err != nil {
			slog.Error("failed to get sync status", "job", name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		statuses[name] = st
	}
	writeJSON(w, http.StatusOK, statuses)
}

// TriggerSync handles POST /api/v1/sync/{job}/trigger. An overlapping trigger
// answers 409; the sync itself runs synchronously.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("job")
	job, ok := h.jobs[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown sync job")
		return
	}

	if err := job.Trigger(r.Context()); err != nil {
		if errors.Is(err, ingest.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "sync already in progress")
			return
		}
		slog.Error("sync trigger failed", "job", name, "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	st, err := job.Stats(r.Context())
	if err != nil {
		slog.Error("failed to get sync status after trigger", "job", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
