package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is an owned quantity of one catalog item.
type Holding struct {
	ID            int64           `json:"id"`
	ItemID        string          `json:"itemId"`
	Quantity      int             `json:"quantity"`
	Condition     string          `json:"condition,omitempty"`
	AcquiredPrice decimal.Decimal `json:"acquiredPrice"`
	AcquiredAt    *time.Time      `json:"acquiredAt,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Sale records a completed sale out of the collection.
type Sale struct {
	ID        int64           `json:"id"`
	ItemID    string          `json:"itemId"`
	Quantity  int             `json:"quantity"`
	SalePrice decimal.Decimal `json:"salePrice"`
	SoldAt    time.Time       `json:"soldAt"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ValuationLine is one holding priced at the current market quote.
type ValuationLine struct {
	ItemID      string          `json:"itemId"`
	Name        string          `json:"name"`
	Kind        ItemKind        `json:"kind"`
	Quantity    int             `json:"quantity"`
	PaidTotal   decimal.Decimal `json:"paidTotal"`
	MarketUnit  decimal.Decimal `json:"marketUnit"`
	MarketTotal decimal.Decimal `json:"marketTotal"`
	Gain        decimal.Decimal `json:"gain"`
	Priced      bool            `json:"priced"`
}

// CollectionValuation is the whole collection priced at one point in time.
type CollectionValuation struct {
	Lines       []ValuationLine `json:"lines"`
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	TotalMarket decimal.Decimal `json:"totalMarket"`
	TotalGain   decimal.Decimal `json:"totalGain"`
	Priced      int             `json:"priced"`
	Unpriced    int             `json:"unpriced"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
