package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBand holds the market/low/mid/high quotes for one condition class.
type PriceBand struct {
	Market decimal.Decimal `json:"market"`
	Low    decimal.Decimal `json:"low"`
	Mid    decimal.Decimal `json:"mid"`
	High   decimal.Decimal `json:"high"`
}

// IsZero reports whether no quote in the band is set.
func (b PriceBand) IsZero() bool {
	return b.Market.IsZero() && b.Low.IsZero() && b.Mid.IsZero() && b.High.IsZero()
}

// Trend holds percentage price changes over the standard lookback windows.
type Trend struct {
	Days7   decimal.Decimal `json:"days7"`
	Days30  decimal.Decimal `json:"days30"`
	Days90  decimal.Decimal `json:"days90"`
	Days180 decimal.Decimal `json:"days180"`
}

// PricingSnapshot is the per-item pricing bundle the staleness policy operates
// on. Raw covers ungraded singles, Graded covers slabbed copies, Sealed covers
// unopened product. The same shape is produced by the database reader and the
// real-time fetcher; callers cannot tell which path filled it.
type PricingSnapshot struct {
	ItemID    string    `json:"itemId"`
	Raw       PriceBand `json:"raw"`
	Graded    PriceBand `json:"graded"`
	Sealed    PriceBand `json:"sealed"`
	Currency  string    `json:"currency"`
	RawTrend  Trend     `json:"rawTrend"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Age returns how old the snapshot is.
func (p *PricingSnapshot) Age() time.Duration {
	return time.Since(p.UpdatedAt)
}

// IsStale reports whether the snapshot is older than the given threshold.
func (p *PricingSnapshot) IsStale(threshold time.Duration) bool {
	return p.Age() >= threshold
}

// IsEmpty reports whether the snapshot carries no quotes at all.
func (p *PricingSnapshot) IsEmpty() bool {
	return p.Raw.IsZero() && p.Graded.IsZero() && p.Sealed.IsZero()
}

// BandFor returns the price band matching an item kind: sealed product reads
// the sealed band, everything else the raw band.
func (p *PricingSnapshot) BandFor(kind ItemKind) PriceBand {
	if kind == KindSealed {
		return p.Sealed
	}
	return p.Raw
}

// PricedValue is an item quantity priced at the current market quote.
type PricedValue struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Unit     decimal.Decimal `json:"unit"`
	Total    decimal.Decimal `json:"total"`
}
