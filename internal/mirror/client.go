// Package mirror is the client for the CSV-based pricing mirror, which serves
// bulk expansion ("group") product and price dumps. Sync jobs are its only
// consumers.
package mirror

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// pokemonCategoryID is the mirror's category for the Pokémon product line.
const pokemonCategoryID = 3

// Group is an expansion as the mirror numbers it.
type Group struct {
	GroupID      int64  `json:"groupId"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	PublishedOn  string `json:"publishedOn"`
}

// Product is one catalog row within a group.
type Product struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl"`
	GroupID   int64  `json:"groupId"`
}

// Price is one price row within a group. Prices are already major units.
type Price struct {
	ProductID   int64           `json:"productId"`
	LowPrice    decimal.Decimal `json:"lowPrice"`
	MidPrice    decimal.Decimal `json:"midPrice"`
	HighPrice   decimal.Decimal `json:"highPrice"`
	MarketPrice decimal.Decimal `json:"marketPrice"`
	SubTypeName string          `json:"subTypeName"`
}

// Client calls the CSV mirror's bulk endpoints.
type Client struct {
	http *resty.Client
}

// NewClient creates a mirror client.
func NewClient(baseURL string, retryMax int, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryMax).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})
	return &Client{http: c}
}

type resultsResponse[T any] struct {
	Results []T `json:"results"`
}

// Groups lists all expansion groups in the Pokémon category.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var out resultsResponse[Group]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/%d/groups", pokemonCategoryID))
	if err != nil {
		return nil, fmt.Errorf("listing mirror groups: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing mirror groups: HTTP %d", resp.StatusCode())
	}
	return out.Results, nil
}

// Products lists all products in a group.
func (c *Client) Products(ctx context.Context, groupID int64) ([]Product, error) {
	var out resultsResponse[Product]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/%d/%d/products", pokemonCategoryID, groupID))
	if err != nil {
		return nil, fmt.Errorf("listing products for group %d: %w", groupID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing products for group %d: HTTP %d", groupID, resp.StatusCode())
	}
	return out.Results, nil
}

// Prices lists all price rows in a group.
func (c *Client) Prices(ctx context.Context, groupID int64) ([]Price, error) {
	var out resultsResponse[Price]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/%d/%d/prices", pokemonCategoryID, groupID))
	if err != nil {
		return nil, fmt.Errorf("listing prices for group %d: %w", groupID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing prices for group %d: HTTP %d", groupID, resp.StatusCode())
	}
	return out.Results, nil
}
