// Package pricing implements multi-source pricing resolution: in-memory cache
// in front of the database in front of the rate-limited real-time fetcher,
// with a stale-while-revalidate policy.
package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cardkeep/cardkeep/internal/cache"
	"github.com/cardkeep/cardkeep/internal/domain"
)

// Reader reads previously-synced pricing from the system of record.
type Reader interface {
	GetPricing(ctx context.Context, itemID string) (*domain.PricingSnapshot, error)
	GetPricingBatch(ctx context.Context, itemIDs []string) (map[string]*domain.PricingSnapshot, error)
}

// Source identifies which layer produced a pricing result.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
	SourceAPI      Source = "api"
)

// Result is a resolved pricing snapshot plus the layer that served it.
// Snapshot is nil when no source had data.
type Result struct {
	Snapshot *domain.PricingSnapshot `json:"snapshot"`
	Source   Source                  `json:"source,omitempty"`
}

// Options tune a single pricing lookup.
type Options struct {
	// ForceRefresh skips cache and database and always hits the upstream.
	ForceRefresh bool
	// BackgroundRefresh triggers a non-blocking refresh when the served
	// value is stale.
	BackgroundRefresh bool
	// FallbackToAPI allows a synchronous upstream fetch when no stored
	// value exists.
	FallbackToAPI bool
}

// DefaultOptions is the stale-while-revalidate policy most callers want.
func DefaultOptions() Options {
	return Options{BackgroundRefresh: true, FallbackToAPI: true}
}

// Service is the smart pricing orchestrator.
type Service struct {
	reader         Reader
	fetcher        *Fetcher
	store          *cache.Store
	staleThreshold time.Duration
	batchLimit     int

	flight singleflight.Group

	mu         sync.Mutex
	refreshing map[string]bool
}

// NewService creates the pricing orchestrator.
func NewService(reader Reader, fetcher *Fetcher, store *cache.Store, staleThreshold time.Duration, batchLimit int) *Service {
	if batchLimit <= 0 {
		batchLimit = 5
	}
	return &Service{
		reader:         reader,
		fetcher:        fetcher,
		store:          store,
		staleThreshold: staleThreshold,
		batchLimit:     batchLimit,
		refreshing:     make(map[string]bool),
	}
}

func pricingKey(itemID string) string {
	return cache.Key("pricing", map[string]string{"id": itemID}, cache.TypePricing)
}

// GetPricing resolves pricing for one item.
//
// Fresh values are served from cache or database. Stale values are served
// immediately while a background refresh runs for next time. Absent values
// (or ForceRefresh) fall through to a synchronous upstream fetch. Concurrent
// lookups for the same id are coalesced so at most one fetch is in flight
// per id; every waiter receives the same resolved value.
func (s *Service) GetPricing(ctx context.Context, itemID string, opts Options) (Result, error) {
	if !opts.ForceRefresh {
		if cached, ok := s.store.Get(pricingKey(itemID)); ok {
			snap := cached.(*domain.PricingSnapshot)
			if snap.IsStale(s.staleThreshold) && opts.BackgroundRefresh {
				s.refreshInBackground(itemID)
			}
			return Result{Snapshot: snap, Source: SourceCache}, nil
		}
	}

	v, err, _ := s.flight.Do(itemID, func() (any, error) {
		return s.resolve(ctx, itemID, opts)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// resolve is the uncoalesced miss path: database first, then the upstream.
func (s *Service) resolve(ctx context.Context, itemID string, opts Options) (Result, error) {
	if !opts.ForceRefresh {
		snap, err := s.reader.GetPricing(ctx, itemID)
		if err != nil {
			return Result{}, err
		}
		if snap != nil {
			s.store.Set(pricingKey(itemID), snap, cache.TypePricing)
			if snap.IsStale(s.staleThreshold) && opts.BackgroundRefresh {
				s.refreshInBackground(itemID)
			}
			return Result{Snapshot: snap, Source: SourceDatabase}, nil
		}
	}

	if !opts.ForceRefresh && !opts.FallbackToAPI {
		return Result{}, nil
	}

	snap := s.fetcher.FetchFresh(ctx, itemID)
	if snap == nil {
		return Result{}, nil
	}
	s.store.Set(pricingKey(itemID), snap, cache.TypePricing)
	return Result{Snapshot: snap, Source: SourceAPI}, nil
}

// refreshInBackground starts a detached refresh for itemID unless one is
// already running. The triggering request never waits on it; failures go to
// the log, successes land in the cache and database for the next read.
func (s *Service) refreshInBackground(itemID string) {
	s.mu.Lock()
	if s.refreshing[itemID] {
		s.mu.Unlock()
		return
	}
	s.refreshing[itemID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.refreshing, itemID)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		snap := s.fetcher.FetchFresh(ctx, itemID)
		if snap == nil {
			slog.Warn("background pricing refresh produced no data", "item", itemID)
			return
		}
		s.store.Set(pricingKey(itemID), snap, cache.TypePricing)
		slog.Debug("background pricing refresh completed", "item", itemID)
	}()
}

// GetPricingBatch resolves pricing for many items: one batched database read,
// then a bounded fan-out to the upstream for the ids the database does not
// know. Per-item upstream failures leave that id absent from the map.
func (s *Service) GetPricingBatch(ctx context.Context, itemIDs []string, opts Options) (map[string]Result, error) {
	results := make(map[string]Result, len(itemIDs))

	stored, err := s.reader.GetPricingBatch(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	var missing []string
	var mu sync.Mutex
	for _, id := range itemIDs {
		snap, ok := stored[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		s.store.Set(pricingKey(id), snap, cache.TypePricing)
		if snap.IsStale(s.staleThreshold) && opts.BackgroundRefresh {
			s.refreshInBackground(id)
		}
		results[id] = Result{Snapshot: snap, Source: SourceDatabase}
	}

	if len(missing) == 0 || !opts.FallbackToAPI {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for _, id := range missing {
		g.Go(func() error {
			res, err := s.GetPricing(gctx, id, opts)
			if err != nil {
				slog.Warn("batch pricing lookup failed", "item", id, "error", err)
				return nil
			}
			if res.Snapshot != nil {
				mu.Lock()
				results[id] = res
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
