package ingest

import (
	"context"
	"time"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// StaleLister finds items whose pricing is due for a refresh.
type StaleLister interface {
	ListStalePricing(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// PriceFetcher pulls one item's fresh pricing and persists it. A nil return
// means the upstream had nothing; the fetcher already logged any failure.
type PriceFetcher interface {
	FetchFresh(ctx context.Context, itemID string) *domain.PricingSnapshot
}

// PricingSync refreshes pricing for the stalest items in the catalog. Each
// run handles at most batchSize items; the fetcher's rate gate paces the
// upstream calls.
type PricingSync struct {
	runner
	lister    StaleLister
	fetcher   PriceFetcher
	batchSize int
}

// NewPricingSync creates the pricing refresh job.
func NewPricingSync(lister StaleLister, fetcher PriceFetcher, status StatusRepository, maxAge time.Duration, batchSize int) *PricingSync {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &PricingSync{
		runner:    runner{name: "pricing", status: status, maxAge: maxAge},
		lister:    lister,
		fetcher:   fetcher,
		batchSize: batchSize,
	}
}

// Trigger refreshes one batch of stale pricing. Rejected with
// ErrSyncInProgress while a run is active.
func (s *PricingSync) Trigger(ctx context.Context) error {
	return s.run(ctx, s.sync)
}

func (s *PricingSync) sync(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.maxAge)
	ids, err := s.lister.ListStalePricing(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if snap := s.fetcher.FetchFresh(ctx, id); snap != nil {
			refreshed++
		}
	}
	return refreshed, nil
}
