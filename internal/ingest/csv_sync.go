package ingest

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/cardkeep/cardkeep/internal/domain"
	"github.com/cardkeep/cardkeep/internal/mirror"
)

// MirrorSource serves the mirror's bulk product and price dumps per group.
type MirrorSource interface {
	Products(ctx context.Context, groupID int64) ([]mirror.Product, error)
	Prices(ctx context.Context, groupID int64) ([]mirror.Price, error)
}

// PricingWriter persists items plus their bulk-imported pricing.
type PricingWriter interface {
	UpsertItem(ctx context.Context, item domain.CatalogItem) error
	SavePricing(ctx context.Context, snap *domain.PricingSnapshot) error
}

// mirrorNumberPattern marks mirror product names that denote a single card.
var mirrorNumberPattern = regexp.MustCompile(`\d+/\d+`)

// CSVSync bulk-imports products and prices from the CSV mirror for every
// expansion in the static group mapping.
type CSVSync struct {
	runner
	source MirrorSource
	writer PricingWriter
}

// NewCSVSync creates the CSV mirror import job.
func NewCSVSync(source MirrorSource, writer PricingWriter, status StatusRepository, maxAge time.Duration) *CSVSync {
	return &CSVSync{
		runner: runner{name: "csv", status: status, maxAge: maxAge},
		source: source,
		writer: writer,
	}
}

// Trigger imports every mapped group. Rejected with ErrSyncInProgress while a
// run is active.
func (s *CSVSync) Trigger(ctx context.Context) error {
	return s.run(ctx, s.sync)
}

func (s *CSVSync) sync(ctx context.Context) (int, error) {
	synced := 0
	for _, expansionID := range mirror.MappedExpansions() {
		groupID, ok := mirror.GroupIDFor(expansionID)
		if !ok {
			continue
		}
		n, err := s.syncGroup(ctx, expansionID, groupID)
		if err != nil {
			return synced, fmt.Errorf("importing group %d (%s): %w", groupID, expansionID, err)
		}
		synced += n
	}
	return synced, nil
}

func (s *CSVSync) syncGroup(ctx context.Context, expansionID string, groupID int64) (int, error) {
	products, err := s.source.Products(ctx, groupID)
	if err != nil {
		return 0, err
	}
	prices, err := s.source.Prices(ctx, groupID)
	if err != nil {
		return 0, err
	}

	priceByProduct := make(map[int64]mirror.Price, len(prices))
	for _, p := range prices {
		// "Normal" rows win over variant rows when both exist
		if existing, ok := priceByProduct[p.ProductID]; ok && existing.SubTypeName == "Normal" {
			continue
		}
		priceByProduct[p.ProductID] = p
	}

	synced := 0
	for _, product := range products {
		item := mirrorItem(expansionID, product)
		if err := s.writer.UpsertItem(ctx, item); err != nil {
			return synced, err
		}
		if price, ok := priceByProduct[product.ProductID]; ok {
			if err := s.writer.SavePricing(ctx, mirrorSnapshot(item, price)); err != nil {
				return synced, err
			}
		}
		synced++
	}
	return synced, nil
}

// mirrorItem normalizes one mirror product row. The card-number marker in the
// name is the only signal the mirror gives for card vs sealed.
func mirrorItem(expansionID string, p mirror.Product) domain.CatalogItem {
	kind := domain.KindSealed
	if mirrorNumberPattern.MatchString(p.Name) {
		kind = domain.KindCard
	}
	return domain.CatalogItem{
		ID:          fmt.Sprintf("tcgp-%d", p.ProductID),
		Name:        p.Name,
		Kind:        kind,
		Game:        "pokemon",
		ExpansionID: expansionID,
		ImageSmall:  p.ImageURL,
	}
}

// mirrorSnapshot reshapes a mirror price row onto the band matching the
// item's kind.
func mirrorSnapshot(item domain.CatalogItem, p mirror.Price) *domain.PricingSnapshot {
	band := domain.PriceBand{
		Market: p.MarketPrice,
		Low:    p.LowPrice,
		Mid:    p.MidPrice,
		High:   p.HighPrice,
	}
	snap := &domain.PricingSnapshot{
		ItemID:    item.ID,
		Currency:  "USD",
		UpdatedAt: time.Now(),
	}
	if item.Kind == domain.KindSealed {
		snap.Sealed = band
	} else {
		snap.Raw = band
	}
	return snap
}
