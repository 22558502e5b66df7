package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/cardkeep/cardkeep/internal/domain"
	"github.com/cardkeep/cardkeep/internal/pricing"
)

// ItemReader resolves catalog items for display names and kinds.
type ItemReader interface {
	GetItem(ctx context.Context, id string) (*domain.CatalogItem, error)
}

// Pricer is the pricing orchestrator's batch surface.
type Pricer interface {
	GetPricingBatch(ctx context.Context, itemIDs []string, opts pricing.Options) (map[string]pricing.Result, error)
}

// Service manages the collection and values it.
type Service struct {
	repo   Repository
	items  ItemReader
	pricer Pricer
}

// NewService creates the collection service.
func NewService(repo Repository, items ItemReader, pricer Pricer) *Service {
	return &Service{repo: repo, items: items, pricer: pricer}
}

func (s *Service) AddHolding(ctx context.Context, h domain.Holding) (int64, error) {
	if h.Quantity <= 0 {
		return 0, fmt.Errorf("adding holding for %s: quantity must be positive", h.ItemID)
	}
	return s.repo.AddHolding(ctx, h)
}

func (s *Service) UpdateHolding(ctx context.Context, h domain.Holding) error {
	if h.Quantity <= 0 {
		return fmt.Errorf("updating holding %d: quantity must be positive", h.ID)
	}
	return s.repo.UpdateHolding(ctx, h)
}

func (s *Service) DeleteHolding(ctx context.Context, id int64) error {
	return s.repo.DeleteHolding(ctx, id)
}

func (s *Service) ListHoldings(ctx context.Context) ([]domain.Holding, error) {
	return s.repo.ListHoldings(ctx)
}

func (s *Service) AddSale(ctx context.Context, sale domain.Sale) (int64, error) {
	if sale.Quantity <= 0 {
		return 0, fmt.Errorf("adding sale for %s: quantity must be positive", sale.ItemID)
	}
	return s.repo.AddSale(ctx, sale)
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

// Value prices every holding at the current market quote through the pricing
// orchestrator's batch path. Holdings whose item has no pricing anywhere stay
// in the result with a zero market value and count as unpriced.
func (s *Service) Value(ctx context.Context) (*domain.CollectionValuation, error) {
	holdings, err := s.repo.ListHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("valuing collection: %w", err)
	}

	ids := lo.Uniq(lo.Map(holdings, func(h domain.Holding, _ int) string { return h.ItemID }))
	priced, err := s.pricer.GetPricingBatch(ctx, ids, pricing.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("valuing collection: %w", err)
	}

	valuation := &domain.CollectionValuation{GeneratedAt: time.Now()}
	for _, h := range holdings {
		line := s.valueLine(ctx, h, priced)
		valuation.Lines = append(valuation.Lines, line)
		valuation.TotalPaid = valuation.TotalPaid.Add(line.PaidTotal)
		valuation.TotalMarket = valuation.TotalMarket.Add(line.MarketTotal)
		if line.Priced {
			valuation.Priced++
		} else {
			valuation.Unpriced++
		}
	}
	valuation.TotalGain = valuation.TotalMarket.Sub(valuation.TotalPaid)
	return valuation, nil
}

func (s *Service) valueLine(ctx context.Context, h domain.Holding, priced map[string]pricing.Result) domain.ValuationLine {
	qty := decimal.NewFromInt(int64(h.Quantity))
	line := domain.ValuationLine{
		ItemID:    h.ItemID,
		Quantity:  h.Quantity,
		PaidTotal: h.AcquiredPrice.Mul(qty),
	}

	kind := domain.KindCard
	if item, err := s.items.GetItem(ctx, h.ItemID); err == nil && item != nil {
		line.Name = item.Name
		kind = item.Kind
	}
	line.Kind = kind

	if res, ok := priced[h.ItemID]; ok && res.Snapshot != nil {
		line.MarketUnit = res.Snapshot.BandFor(kind).Market
		line.MarketTotal = line.MarketUnit.Mul(qty)
		line.Priced = !line.MarketUnit.IsZero()
	}
	line.Gain = line.MarketTotal.Sub(line.PaidTotal)
	return line
}
