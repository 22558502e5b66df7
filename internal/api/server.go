package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured. Mutating admin
// routes require the admin API key when one is set.
func NewServer(port string, h *Handler, adminAPIKey string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/items/{id}", h.GetItem)
	mux.HandleFunc("GET /api/v1/pricing/{id}", h.GetPricing)
	mux.HandleFunc("POST /api/v1/pricing/batch", h.BatchPricing)
	mux.HandleFunc("GET /api/v1/expansions", h.ListExpansions)
	mux.HandleFunc("GET /api/v1/expansions/{id}", h.GetExpansion)
	mux.HandleFunc("GET /api/v1/images", h.FindImage)

	mux.HandleFunc("GET /api/v1/collection/holdings", h.ListHoldings)
	mux.HandleFunc("POST /api/v1/collection/holdings", h.AddHolding)
	mux.HandleFunc("PUT /api/v1/collection/holdings/{id}", h.UpdateHolding)
	mux.HandleFunc("DELETE /api/v1/collection/holdings/{id}", h.DeleteHolding)
	mux.HandleFunc("GET /api/v1/collection/sales", h.ListSales)
	mux.HandleFunc("POST /api/v1/collection/sales", h.AddSale)
	mux.HandleFunc("GET /api/v1/collection/value", h.CollectionValue)

	mux.HandleFunc("GET /api/v1/snapshots/latest", h.GetLatestSnapshot)
	mux.HandleFunc("GET /api/v1/snapshots/{date}", h.GetSnapshotByDate)
	mux.HandleFunc("GET /api/v1/snapshots", h.ListSnapshots)
	mux.Handle("POST /api/v1/snapshots/generate",
		maybeAuth(adminAPIKey, http.HandlerFunc(h.GenerateSnapshot)))

	mux.HandleFunc("GET /api/v1/sync/status", h.SyncStatus)
	mux.Handle("POST /api/v1/sync/{job}/trigger",
		maybeAuth(adminAPIKey, http.HandlerFunc(h.TriggerSync)))

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func maybeAuth(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return requireAuth(apiKey, next)
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
