// Package sealedapi is the client for the sealed-product pricing API. The
// provider quotes prices in minor currency units (cents); everything leaving
// this package is converted to decimal major units.
package sealedapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/cardkeep/cardkeep/internal/domain"
)

// Product is a sealed product as the pricing provider reports it, with prices
// already converted to major units.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ConsoleName string         `json:"consoleName"`
	LoosePrice decimal.Decimal `json:"loosePrice"`
	NewPrice   decimal.Decimal `json:"newPrice"`
}

// Client calls the sealed-product pricing API.
type Client struct {
	http  *resty.Client
	token string
}

// NewClient creates a sealed-pricing API client.
func NewClient(baseURL, token string, retryMax int, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryMax).
		SetRetryWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})
	return &Client{http: c, token: token}
}

type productDTO struct {
	ID          string `json:"id"`
	ProductName string `json:"product-name"`
	ConsoleName string `json:"console-name"`
	LoosePrice  int64  `json:"loose-price"` // minor units
	NewPrice    int64  `json:"new-price"`   // minor units
}

type searchResponse struct {
	Status   string       `json:"status"`
	Products []productDTO `json:"products"`
}

type productResponse struct {
	Status string `json:"status"`
	productDTO
}

// Search runs a free-text product search.
func (c *Client) Search(ctx context.Context, query string) ([]Product, error) {
	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"t": c.token, "q": query}).
		SetResult(&out).
		Get("/api/products")
	if err != nil {
		return nil, fmt.Errorf("searching sealed products: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("searching sealed products: HTTP %d", resp.StatusCode())
	}

	products := make([]Product, 0, len(out.Products))
	for _, d := range out.Products {
		products = append(products, d.toProduct())
	}
	return products, nil
}

// GetProduct fetches details and pricing for one product id.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var out productResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"t": c.token, "id": id}).
		SetResult(&out).
		Get("/api/product")
	if err != nil {
		return nil, fmt.Errorf("getting sealed product %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("getting sealed product %s: HTTP %d", id, resp.StatusCode())
	}
	p := out.productDTO.toProduct()
	return &p, nil
}

// GetPricing fetches pricing for a product and reshapes it into the shared
// snapshot structure, filling the sealed band.
func (c *Client) GetPricing(ctx context.Context, id string) (*domain.PricingSnapshot, error) {
	p, err := c.GetProduct(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return &domain.PricingSnapshot{
		ItemID:   id,
		Currency: "USD",
		Sealed: domain.PriceBand{
			Market: p.NewPrice,
			Low:    p.LoosePrice,
			High:   p.NewPrice,
		},
		UpdatedAt: time.Now(),
	}, nil
}

func (d productDTO) toProduct() Product {
	return Product{
		ID:          d.ID,
		Name:        d.ProductName,
		ConsoleName: d.ConsoleName,
		LoosePrice:  minorToMajor(d.LoosePrice),
		NewPrice:    minorToMajor(d.NewPrice),
	}
}

// minorToMajor converts provider cents to decimal dollars.
func minorToMajor(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
