package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// Upstream fetches fresh pricing from the card-catalog API.
type Upstream interface {
	GetPricing(ctx context.Context, itemID string) (*domain.PricingSnapshot, error)
}

// Writer persists fetched pricing back to the system of record.
type Writer interface {
	SavePricing(ctx context.Context, snap *domain.PricingSnapshot) error
}

// Fetcher is the rate-limited real-time pricing path: read-through to the
// upstream API, write-back to the database. Upstream failures are logged and
// surface as nil so callers fall back to whatever they already have.
type Fetcher struct {
	upstream Upstream
	writer   Writer
	delay    time.Duration

	mu       sync.Mutex
	lastSlot time.Time
}

// NewFetcher creates a Fetcher enforcing a minimum delay between upstream
// requests.
func NewFetcher(upstream Upstream, writer Writer, delay time.Duration) *Fetcher {
	return &Fetcher{
		upstream: upstream,
		writer:   writer,
		delay:    delay,
	}
}

// FetchFresh fetches pricing for one item, persists it, and returns it.
// Returns nil (never an error) when the upstream has nothing or fails.
func (f *Fetcher) FetchFresh(ctx context.Context, itemID string) *domain.PricingSnapshot {
	if err := f.waitTurn(ctx); err != nil {
		return nil
	}

	snap, err := f.upstream.GetPricing(ctx, itemID)
	if err != nil {
		slog.Warn("real-time pricing fetch failed", "item", itemID, "error", err)
		return nil
	}
	if snap == nil {
		return nil
	}

	if err := f.writer.SavePricing(ctx, snap); err != nil {
		// Serve the fresh value anyway; the write-back is best effort
		slog.Warn("pricing write-back failed", "item", itemID, "error", err)
	}
	return snap
}

// waitTurn blocks until the caller's reserved slot. Not a token bucket: each
// caller reserves lastSlot+delay, which serializes upstream spacing even
// under concurrent callers.
func (f *Fetcher) waitTurn(ctx context.Context) error {
	f.mu.Lock()
	now := time.Now()
	slot := f.lastSlot.Add(f.delay)
	if slot.Before(now) {
		slot = now
	}
	f.lastSlot = slot
	f.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
