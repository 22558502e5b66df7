package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// CatalogSource lists expansions and their cards from the card-catalog API.
type CatalogSource interface {
	ListExpansions(ctx context.Context) ([]domain.Expansion, error)
	CardsBySet(ctx context.Context, setID string, page, pageSize int) ([]domain.CatalogItem, int, error)
}

// CatalogWriter persists synced expansions and items.
type CatalogWriter interface {
	UpsertExpansion(ctx context.Context, exp domain.Expansion) error
	UpsertItem(ctx context.Context, item domain.CatalogItem) error
}

// CatalogSync mirrors the upstream card catalog (expansions plus every card
// in them) into the database.
type CatalogSync struct {
	runner
	source CatalogSource
	writer CatalogWriter
}

const catalogSyncPageSize = 250

// NewCatalogSync creates the catalog sync job. maxAge is how long a completed
// run satisfies IsSyncNeeded.
func NewCatalogSync(source CatalogSource, writer CatalogWriter, status StatusRepository, maxAge time.Duration) *CatalogSync {
	return &CatalogSync{
		runner: runner{name: "catalog", status: status, maxAge: maxAge},
		source: source,
		writer: writer,
	}
}

// Trigger runs a full catalog sync. Rejected with ErrSyncInProgress while a
// run is active.
func (s *CatalogSync) Trigger(ctx context.Context) error {
	return s.run(ctx, s.sync)
}

func (s *CatalogSync) sync(ctx context.Context) (int, error) {
	expansions, err := s.source.ListExpansions(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, exp := range expansions {
		if err := s.writer.UpsertExpansion(ctx, exp); err != nil {
			return synced, err
		}
		n, err := s.syncExpansionCards(ctx, exp.ID)
		if err != nil {
			return synced, fmt.Errorf("syncing cards for %s: %w", exp.ID, err)
		}
		synced += n
	}
	return synced, nil
}

func (s *CatalogSync) syncExpansionCards(ctx context.Context, expansionID string) (int, error) {
	synced := 0
	for page := 1; ; page++ {
		cards, _, err := s.source.CardsBySet(ctx, expansionID, page, catalogSyncPageSize)
		if err != nil {
			return synced, err
		}
		for _, card := range cards {
			if err := s.writer.UpsertItem(ctx, card); err != nil {
				return synced, err
			}
			synced++
		}
		if len(cards) < catalogSyncPageSize {
			return synced, nil
		}
	}
}
