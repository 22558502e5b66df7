package search

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/cardkeep/cardkeep/internal/cache"
	"github.com/cardkeep/cardkeep/internal/catalog"
	"github.com/cardkeep/cardkeep/internal/domain"
	"github.com/cardkeep/cardkeep/internal/sealedapi"
)

// Catalog is the database search surface the router depends on.
type Catalog interface {
	SearchCards(ctx context.Context, q catalog.SearchQuery) ([]domain.CatalogItem, int, error)
	SearchSealed(ctx context.Context, q catalog.SearchQuery) ([]domain.CatalogItem, int, error)
	GetExpansion(ctx context.Context, id string) (*domain.Expansion, error)
}

// SealedProvider is the external sealed-product search used when the database
// has no sealed rows for a query.
type SealedProvider interface {
	Search(ctx context.Context, query string) ([]sealedapi.Product, error)
}

// Request is one search invocation. Mode, when set, overrides the classifier.
type Request struct {
	Query       string
	Game        string
	Mode        Mode
	ExpansionID string
	Rarity      string
	Page        int
	PageSize    int
}

// cardNumberPattern marks titles that name a single card (e.g. "025/198"),
// which the sealed fallback must exclude.
var cardNumberPattern = regexp.MustCompile(`\d+/\d+`)

// Service is the hybrid search router.
type Service struct {
	catalog    Catalog
	sealed     SealedProvider
	classifier *Classifier
	store      *cache.Store
}

// NewService creates the search router.
func NewService(cat Catalog, sealed SealedProvider, classifier *Classifier, store *cache.Store) *Service {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Service{catalog: cat, sealed: sealed, classifier: classifier, store: store}
}

func requestKey(req Request, mode Mode) string {
	return cache.Key("search", map[string]string{
		"q":         req.Query,
		"game":      req.Game,
		"type":      string(mode),
		"expansion": req.ExpansionID,
		"rarity":    req.Rarity,
		"page":      strconv.Itoa(req.Page),
		"pageSize":  strconv.Itoa(req.PageSize),
	}, cache.TypeSearch)
}

// Search classifies the query and dispatches it. Singles-only queries hit the
// card path, sealed-only queries the sealed path, ambiguous queries both
// concurrently with the page size split between them. A failing path degrades
// to an empty result for that path; it never aborts the other or the caller.
func (s *Service) Search(ctx context.Context, req Request) *domain.SearchResult {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	mode := req.Mode
	if mode == "" {
		mode = s.classifier.Classify(req.Query)
	}

	key := requestKey(req, mode)
	if cached, ok := s.store.Get(key); ok {
		return cached.(*domain.SearchResult)
	}

	var result *domain.SearchResult
	switch mode {
	case ModeSingles:
		items, total := s.searchCards(ctx, req, req.PageSize)
		result = &domain.SearchResult{
			Items:        items,
			SinglesCount: total,
			TotalCount:   total,
			Page:         req.Page,
			PageSize:     req.PageSize,
		}
	case ModeSealed:
		items, total := s.searchSealed(ctx, req, req.PageSize)
		result = &domain.SearchResult{
			Items:       items,
			SealedCount: total,
			TotalCount:  total,
			Page:        req.Page,
			PageSize:    req.PageSize,
		}
	default:
		result = s.searchBoth(ctx, req)
	}

	s.store.Set(key, result, cache.TypeSearch)
	return result
}

// searchBoth fans out to both paths. Each path gets half the page size
// (singles taking the odd slot) and runs independently; results concatenate
// singles first. Pagination stays per-path, not global across the union.
func (s *Service) searchBoth(ctx context.Context, req Request) *domain.SearchResult {
	sealedSize := req.PageSize / 2
	singlesSize := req.PageSize - sealedSize

	var (
		wg          sync.WaitGroup
		cards       []domain.CatalogItem
		cardsTotal  int
		sealed      []domain.CatalogItem
		sealedTotal int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		cards, cardsTotal = s.searchCards(ctx, req, singlesSize)
	}()
	go func() {
		defer wg.Done()
		sealed, sealedTotal = s.searchSealed(ctx, req, sealedSize)
	}()
	wg.Wait()

	return &domain.SearchResult{
		Items:        append(cards, sealed...),
		SinglesCount: cardsTotal,
		SealedCount:  sealedTotal,
		TotalCount:   cardsTotal + sealedTotal,
		Page:         req.Page,
		PageSize:     req.PageSize,
	}
}

func (s *Service) searchCards(ctx context.Context, req Request, pageSize int) ([]domain.CatalogItem, int) {
	items, total, err := s.catalog.SearchCards(ctx, catalog.SearchQuery{
		Text:        req.Query,
		Game:        req.Game,
		ExpansionID: req.ExpansionID,
		Rarity:      req.Rarity,
		Page:        req.Page,
		PageSize:    pageSize,
	})
	if err != nil {
		slog.Warn("card search failed", "query", req.Query, "error", err)
		return nil, 0
	}
	return items, total
}

// searchSealed tries the database first and falls back to the external
// sealed-pricing provider when the database has nothing.
func (s *Service) searchSealed(ctx context.Context, req Request, pageSize int) ([]domain.CatalogItem, int) {
	items, total, err := s.catalog.SearchSealed(ctx, catalog.SearchQuery{
		Text:        req.Query,
		Game:        req.Game,
		ExpansionID: req.ExpansionID,
		Page:        req.Page,
		PageSize:    pageSize,
	})
	if err != nil {
		slog.Warn("sealed database search failed", "query", req.Query, "error", err)
	}
	if err == nil && total > 0 {
		return items, total
	}
	return s.searchSealedFallback(ctx, req, pageSize)
}

func (s *Service) searchSealedFallback(ctx context.Context, req Request, pageSize int) ([]domain.CatalogItem, int) {
	if s.sealed == nil {
		return nil, 0
	}
	products, err := s.sealed.Search(ctx, req.Query)
	if err != nil {
		slog.Warn("sealed provider search failed", "query", req.Query, "error", err)
		return nil, 0
	}

	expansion := s.expansionFilter(ctx, req.ExpansionID)
	filtered := lo.Filter(products, func(p sealedapi.Product, _ int) bool {
		if cardNumberPattern.MatchString(p.Name) {
			return false
		}
		if expansion == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.Name), expansion) ||
			strings.Contains(strings.ToLower(p.ConsoleName), expansion)
	})

	total := len(filtered)
	page := paginate(filtered, req.Page, pageSize)
	items := lo.Map(page, func(p sealedapi.Product, _ int) domain.CatalogItem {
		return domain.CatalogItem{
			ID:        "sealed-" + p.ID,
			Name:      p.Name,
			Kind:      domain.KindSealed,
			Game:      req.Game,
			Category:  p.ConsoleName,
			UpdatedAt: time.Now(),
		}
	})
	return items, total
}

// expansionFilter resolves an expansion id to its lowercased name for
// substring matching; the raw id serves when the lookup fails.
func (s *Service) expansionFilter(ctx context.Context, expansionID string) string {
	if expansionID == "" {
		return ""
	}
	exp, err := s.catalog.GetExpansion(ctx, expansionID)
	if err != nil || exp == nil {
		return strings.ToLower(expansionID)
	}
	return strings.ToLower(exp.Name)
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}
