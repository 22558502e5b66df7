// Package catalog is the Postgres system of record for items, expansions, and
// the flattened per-item pricing columns.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// ErrNotFound indicates that the requested row was not found.
var ErrNotFound = errors.New("catalog: not found")

// SearchQuery is a paginated catalog search request.
type SearchQuery struct {
	Text        string
	Game        string
	ExpansionID string
	Rarity      string
	Page        int
	PageSize    int
}

// Repository defines persistent storage for the catalog.
type Repository interface {
	GetItem(ctx context.Context, id string) (*domain.CatalogItem, error)
	UpsertItem(ctx context.Context, item domain.CatalogItem) error
	SearchCards(ctx context.Context, q SearchQuery) ([]domain.CatalogItem, int, error)
	SearchSealed(ctx context.Context, q SearchQuery) ([]domain.CatalogItem, int, error)

	GetExpansion(ctx context.Context, id string) (*domain.Expansion, error)
	ListExpansions(ctx context.Context, game string) ([]domain.Expansion, error)
	UpsertExpansion(ctx context.Context, exp domain.Expansion) error

	GetPricing(ctx context.Context, itemID string) (*domain.PricingSnapshot, error)
	GetPricingBatch(ctx context.Context, itemIDs []string) (map[string]*domain.PricingSnapshot, error)
	SavePricing(ctx context.Context, snap *domain.PricingSnapshot) error
	ListStalePricing(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL catalog repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const itemColumns = `id, name, kind, game, expansion_id, number, rarity, category,
	image_small, image_large, updated_at`

func scanItem(row pgx.Row) (*domain.CatalogItem, error) {
	var it domain.CatalogItem
	var expansionID, number, rarity, category, imgSmall, imgLarge *string
	err := row.Scan(&it.ID, &it.Name, &it.Kind, &it.Game, &expansionID, &number,
		&rarity, &category, &imgSmall, &imgLarge, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.ExpansionID = deref(expansionID)
	it.Number = deref(number)
	it.Rarity = deref(rarity)
	it.Category = deref(category)
	it.ImageSmall = deref(imgSmall)
	it.ImageLarge = deref(imgLarge)
	return &it, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PgRepository) GetItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	it, err := scanItem(r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM catalog_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return it, nil
}

func (r *PgRepository) UpsertItem(ctx context.Context, item domain.CatalogItem) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO catalog_items (id, name, kind, game, expansion_id, number, rarity,
		                            category, image_small, image_large, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		     name = $2, kind = $3, game = $4, expansion_id = $5, number = $6,
		     rarity = $7, category = $8, image_small = $9, image_large = $10,
		     updated_at = NOW()`,
		item.ID, item.Name, item.Kind, item.Game, nullable(item.ExpansionID),
		nullable(item.Number), nullable(item.Rarity), nullable(item.Category),
		nullable(item.ImageSmall), nullable(item.ImageLarge))
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", item.ID, err)
	}
	return nil
}

func (r *PgRepository) SearchCards(ctx context.Context, q SearchQuery) ([]domain.CatalogItem, int, error) {
	return r.search(ctx, domain.KindCard, q)
}

func (r *PgRepository) SearchSealed(ctx context.Context, q SearchQuery) ([]domain.CatalogItem, int, error) {
	return r.search(ctx, domain.KindSealed, q)
}

// search runs a paginated ILIKE search over one item kind. The count query
// shares the filter so callers get the unpaginated total.
func (r *PgRepository) search(ctx context.Context, kind domain.ItemKind, q SearchQuery) ([]domain.CatalogItem, int, error) {
	where := []string{"kind = $1"}
	args := []any{kind}

	if q.Text != "" {
		args = append(args, "%"+q.Text+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if q.Game != "" {
		args = append(args, q.Game)
		where = append(where, fmt.Sprintf("game = $%d", len(args)))
	}
	if q.ExpansionID != "" {
		args = append(args, q.ExpansionID)
		where = append(where, fmt.Sprintf("expansion_id = $%d", len(args)))
	}
	if q.Rarity != "" {
		args = append(args, q.Rarity)
		where = append(where, fmt.Sprintf("rarity = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM catalog_items WHERE `+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting search results: %w", err)
	}

	page := max(q.Page, 1)
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM catalog_items WHERE `+cond+
			fmt.Sprintf(` ORDER BY name, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("searching items: %w", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning search row: %w", err)
		}
		items = append(items, *it)
	}
	return items, total, rows.Err()
}

func (r *PgRepository) GetExpansion(ctx context.Context, id string) (*domain.Expansion, error) {
	var e domain.Expansion
	var series, logo, symbol *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, series, release_date, online_only, card_count, logo_url, symbol_url
		 FROM expansions WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &series, &e.ReleaseDate, &e.OnlineOnly, &e.CardCount, &logo, &symbol)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting expansion %s: %w", id, err)
	}
	e.Series = deref(series)
	e.LogoURL = deref(logo)
	e.SymbolURL = deref(symbol)
	return &e, nil
}

func (r *PgRepository) ListExpansions(ctx context.Context, game string) ([]domain.Expansion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, series, release_date, online_only, card_count, logo_url, symbol_url
		 FROM expansions ORDER BY release_date DESC NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("listing expansions: %w", err)
	}
	defer rows.Close()

	var exps []domain.Expansion
	for rows.Next() {
		var e domain.Expansion
		var series, logo, symbol *string
		if err := rows.Scan(&e.ID, &e.Name, &series, &e.ReleaseDate, &e.OnlineOnly,
			&e.CardCount, &logo, &symbol); err != nil {
			return nil, fmt.Errorf("scanning expansion: %w", err)
		}
		e.Series = deref(series)
		e.LogoURL = deref(logo)
		e.SymbolURL = deref(symbol)
		exps = append(exps, e)
	}
	return exps, rows.Err()
}

func (r *PgRepository) UpsertExpansion(ctx context.Context, exp domain.Expansion) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO expansions (id, name, series, release_date, online_only, card_count,
		                         logo_url, symbol_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     name = $2, series = $3, release_date = $4, online_only = $5,
		     card_count = $6, logo_url = $7, symbol_url = $8`,
		exp.ID, exp.Name, nullable(exp.Series), exp.ReleaseDate, exp.OnlineOnly,
		exp.CardCount, nullable(exp.LogoURL), nullable(exp.SymbolURL))
	if err != nil {
		return fmt.Errorf("upserting expansion %s: %w", exp.ID, err)
	}
	return nil
}

// pricingColumns are the flattened per-item pricing columns reshaped into a
// nested PricingSnapshot on read.
const pricingColumns = `id,
	COALESCE(price_raw_market, 0), COALESCE(price_raw_low, 0),
	COALESCE(price_raw_mid, 0), COALESCE(price_raw_high, 0),
	COALESCE(price_graded_market, 0), COALESCE(price_graded_low, 0),
	COALESCE(price_graded_mid, 0), COALESCE(price_graded_high, 0),
	COALESCE(price_sealed_market, 0), COALESCE(price_sealed_low, 0),
	COALESCE(price_sealed_mid, 0), COALESCE(price_sealed_high, 0),
	COALESCE(price_currency, 'USD'),
	COALESCE(trend_raw_7d, 0), COALESCE(trend_raw_30d, 0),
	COALESCE(trend_raw_90d, 0), COALESCE(trend_raw_180d, 0),
	price_updated_at`

func scanPricing(row pgx.Row) (*domain.PricingSnapshot, error) {
	var p domain.PricingSnapshot
	var updatedAt *time.Time
	err := row.Scan(&p.ItemID,
		&p.Raw.Market, &p.Raw.Low, &p.Raw.Mid, &p.Raw.High,
		&p.Graded.Market, &p.Graded.Low, &p.Graded.Mid, &p.Graded.High,
		&p.Sealed.Market, &p.Sealed.Low, &p.Sealed.Mid, &p.Sealed.High,
		&p.Currency,
		&p.RawTrend.Days7, &p.RawTrend.Days30, &p.RawTrend.Days90, &p.RawTrend.Days180,
		&updatedAt)
	if err != nil {
		return nil, err
	}
	// A row without price_updated_at has never been priced
	if updatedAt == nil {
		return nil, nil
	}
	p.UpdatedAt = *updatedAt
	return &p, nil
}

// GetPricing reads the pricing columns for one item. A missing row or a row
// that has never been priced is a normal "no data yet" case, not an error.
func (r *PgRepository) GetPricing(ctx context.Context, itemID string) (*domain.PricingSnapshot, error) {
	p, err := scanPricing(r.pool.QueryRow(ctx,
		`SELECT `+pricingColumns+` FROM catalog_items WHERE id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting pricing for %s: %w", itemID, err)
	}
	return p, nil
}

// GetPricingBatch reads pricing for many items with a single ANY-filter query.
// IDs with no pricing are absent from the returned map.
func (r *PgRepository) GetPricingBatch(ctx context.Context, itemIDs []string) (map[string]*domain.PricingSnapshot, error) {
	result := make(map[string]*domain.PricingSnapshot, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+pricingColumns+` FROM catalog_items WHERE id = ANY($1)`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("getting pricing batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPricing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pricing row: %w", err)
		}
		if p != nil {
			result[p.ItemID] = p
		}
	}
	return result, rows.Err()
}

// ListStalePricing returns ids whose pricing is older than the cutoff, never-
// priced items first so new catalog rows get quoted before refreshes run.
func (r *PgRepository) ListStalePricing(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM catalog_items
		 WHERE price_updated_at IS NULL OR price_updated_at < $1
		 ORDER BY price_updated_at ASC NULLS FIRST
		 LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale pricing: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stale id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SavePricing writes a snapshot back onto the item's row. Plain last-writer-
// wins upsert, no optimistic concurrency.
func (r *PgRepository) SavePricing(ctx context.Context, snap *domain.PricingSnapshot) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE catalog_items SET
		     price_raw_market = $2, price_raw_low = $3, price_raw_mid = $4, price_raw_high = $5,
		     price_graded_market = $6, price_graded_low = $7, price_graded_mid = $8, price_graded_high = $9,
		     price_sealed_market = $10, price_sealed_low = $11, price_sealed_mid = $12, price_sealed_high = $13,
		     price_currency = $14,
		     trend_raw_7d = $15, trend_raw_30d = $16, trend_raw_90d = $17, trend_raw_180d = $18,
		     price_updated_at = NOW()
		 WHERE id = $1`,
		snap.ItemID,
		snap.Raw.Market, snap.Raw.Low, snap.Raw.Mid, snap.Raw.High,
		snap.Graded.Market, snap.Graded.Low, snap.Graded.Mid, snap.Graded.High,
		snap.Sealed.Market, snap.Sealed.Low, snap.Sealed.Mid, snap.Sealed.High,
		snap.Currency,
		snap.RawTrend.Days7, snap.RawTrend.Days30, snap.RawTrend.Days90, snap.RawTrend.Days180)
	if err != nil {
		return fmt.Errorf("saving pricing for %s: %w", snap.ItemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saving pricing for %s: %w", snap.ItemID, ErrNotFound)
	}
	return nil
}
