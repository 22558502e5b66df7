// Package tcgapi is the client for the upstream card-catalog API. Credentials
// are injected here, server-side; they never reach a browser.
package tcgapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// Client calls the card-catalog API (card search, card by id, expansions,
// pricing by id).
type Client struct {
	http *resty.Client
}

// NewClient creates a card-catalog API client. apiKey and teamID are sent as
// headers on every request; retries back off exponentially on 429/5xx.
func NewClient(baseURL, apiKey, teamID string, retryMax int, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryMax).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})
	if apiKey != "" {
		c.SetHeader("X-Api-Key", apiKey)
	}
	if teamID != "" {
		c.SetHeader("X-Team-Id", teamID)
	}
	return &Client{http: c}
}

type cardDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Set    struct {
		ID string `json:"id"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer *struct {
		UpdatedAt string                `json:"updatedAt"`
		Prices    map[string]priceband `json:"prices"`
	} `json:"tcgplayer"`
}

type priceband struct {
	Market decimal.Decimal `json:"market"`
	Low    decimal.Decimal `json:"low"`
	Mid    decimal.Decimal `json:"mid"`
	High   decimal.Decimal `json:"high"`
}

type setDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      string `json:"series"`
	Total       int    `json:"total"`
	ReleaseDate string `json:"releaseDate"`
	OnlineOnly  bool   `json:"onlineOnly"`
	Images      struct {
		Symbol string `json:"symbol"`
		Logo   string `json:"logo"`
	} `json:"images"`
}

type listResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

type itemResponse[T any] struct {
	Data T `json:"data"`
}

// SearchCards runs a name search and returns normalized items plus the
// upstream total count.
func (c *Client) SearchCards(ctx context.Context, name string, page, pageSize int) ([]domain.CatalogItem, int, error) {
	var out listResponse[cardDTO]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        fmt.Sprintf("name:%q", name),
			"page":     fmt.Sprint(page),
			"pageSize": fmt.Sprint(pageSize),
		}).
		SetResult(&out).
		Get("/cards")
	if err != nil {
		return nil, 0, fmt.Errorf("searching cards: %w", err)
	}
	if resp.IsError() {
		return nil, 0, fmt.Errorf("searching cards: HTTP %d", resp.StatusCode())
	}

	items := make([]domain.CatalogItem, 0, len(out.Data))
	for _, d := range out.Data {
		items = append(items, d.toDomain())
	}
	return items, out.TotalCount, nil
}

// CardsBySet pages through every card in one expansion. Sync jobs use this to
// mirror an expansion into the catalog.
func (c *Client) CardsBySet(ctx context.Context, setID string, page, pageSize int) ([]domain.CatalogItem, int, error) {
	var out listResponse[cardDTO]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        fmt.Sprintf("set.id:%s", setID),
			"page":     fmt.Sprint(page),
			"pageSize": fmt.Sprint(pageSize),
		}).
		SetResult(&out).
		Get("/cards")
	if err != nil {
		return nil, 0, fmt.Errorf("listing cards for set %s: %w", setID, err)
	}
	if resp.IsError() {
		return nil, 0, fmt.Errorf("listing cards for set %s: HTTP %d", setID, resp.StatusCode())
	}

	items := make([]domain.CatalogItem, 0, len(out.Data))
	for _, d := range out.Data {
		items = append(items, d.toDomain())
	}
	return items, out.TotalCount, nil
}

// GetCard fetches one card by its provider-scoped id.
func (c *Client) GetCard(ctx context.Context, id string) (*domain.CatalogItem, error) {
	var out itemResponse[cardDTO]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/cards/" + id)
	if err != nil {
		return nil, fmt.Errorf("getting card %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("getting card %s: HTTP %d", id, resp.StatusCode())
	}
	item := out.Data.toDomain()
	return &item, nil
}

// GetPricing fetches fresh pricing for a card and reshapes it into the same
// snapshot structure the database reader produces.
func (c *Client) GetPricing(ctx context.Context, id string) (*domain.PricingSnapshot, error) {
	var out itemResponse[cardDTO]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "id,tcgplayer").
		SetResult(&out).
		Get("/cards/" + id)
	if err != nil {
		return nil, fmt.Errorf("getting pricing for %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("getting pricing for %s: HTTP %d", id, resp.StatusCode())
	}
	return out.Data.toPricing(), nil
}

// ListExpansions fetches all expansions, paging until exhausted.
func (c *Client) ListExpansions(ctx context.Context) ([]domain.Expansion, error) {
	const pageSize = 250
	var all []domain.Expansion

	for page := 1; ; page++ {
		var out listResponse[setDTO]
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"page":     fmt.Sprint(page),
				"pageSize": fmt.Sprint(pageSize),
			}).
			SetResult(&out).
			Get("/sets")
		if err != nil {
			return nil, fmt.Errorf("listing expansions page %d: %w", page, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("listing expansions page %d: HTTP %d", page, resp.StatusCode())
		}
		for _, d := range out.Data {
			all = append(all, d.toDomain())
		}
		if len(out.Data) < pageSize {
			return all, nil
		}
	}
}

// GetExpansion fetches one expansion by id.
func (c *Client) GetExpansion(ctx context.Context, id string) (*domain.Expansion, error) {
	var out itemResponse[setDTO]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/sets/" + id)
	if err != nil {
		return nil, fmt.Errorf("getting expansion %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("getting expansion %s: HTTP %d", id, resp.StatusCode())
	}
	exp := out.Data.toDomain()
	return &exp, nil
}

func (d cardDTO) toDomain() domain.CatalogItem {
	return domain.CatalogItem{
		ID:          d.ID,
		Name:        d.Name,
		Kind:        domain.KindCard,
		Game:        "pokemon",
		ExpansionID: d.Set.ID,
		Number:      d.Number,
		Rarity:      d.Rarity,
		ImageSmall:  d.Images.Small,
		ImageLarge:  d.Images.Large,
	}
}

// toPricing maps the provider's variant-keyed price blocks onto the raw band.
// "holofoil" wins over "normal" when both are present; graded and sealed
// quotes come from other providers and stay zero here.
func (d cardDTO) toPricing() *domain.PricingSnapshot {
	if d.TCGPlayer == nil {
		return nil
	}
	snap := &domain.PricingSnapshot{
		ItemID:    d.ID,
		Currency:  "USD",
		UpdatedAt: time.Now(),
	}
	for _, variant := range []string{"normal", "reverseHolofoil", "holofoil"} {
		band, ok := d.TCGPlayer.Prices[variant]
		if !ok {
			continue
		}
		snap.Raw = domain.PriceBand{
			Market: band.Market,
			Low:    band.Low,
			Mid:    band.Mid,
			High:   band.High,
		}
	}
	if snap.IsEmpty() {
		return nil
	}
	return snap
}

func (d setDTO) toDomain() domain.Expansion {
	exp := domain.Expansion{
		ID:         d.ID,
		Name:       d.Name,
		Series:     d.Series,
		OnlineOnly: d.OnlineOnly,
		CardCount:  d.Total,
		LogoURL:    d.Images.Logo,
		SymbolURL:  d.Images.Symbol,
	}
	if t, err := time.Parse("2006/01/02", d.ReleaseDate); err == nil {
		exp.ReleaseDate = &t
	}
	return exp
}
