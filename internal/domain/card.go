package domain

import "time"

// ItemKind distinguishes individual cards from sealed retail products.
type ItemKind string

const (
	KindCard   ItemKind = "card"
	KindSealed ItemKind = "sealed"
)

// CatalogItem is a card or sealed product known to the catalog.
// IDs are provider-scoped (e.g. "sv1-025") and unique within the provider
// namespace.
type CatalogItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        ItemKind  `json:"kind"`
	Game        string    `json:"game"`
	ExpansionID string    `json:"expansionId,omitempty"`
	Number      string    `json:"number,omitempty"`
	Rarity      string    `json:"rarity,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageSmall  string    `json:"imageSmall,omitempty"`
	ImageLarge  string    `json:"imageLarge,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Expansion is a named card release, the unit catalog sync organizes around.
type Expansion struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Series      string     `json:"series,omitempty"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty"`
	OnlineOnly  bool       `json:"onlineOnly"`
	CardCount   int        `json:"cardCount,omitempty"`
	LogoURL     string     `json:"logoUrl,omitempty"`
	SymbolURL   string     `json:"symbolUrl,omitempty"`
}

// SearchResult is the normalized shape every search path returns, regardless
// of which provider produced it.
type SearchResult struct {
	Items        []CatalogItem `json:"items"`
	SinglesCount int           `json:"singlesCount"`
	SealedCount  int           `json:"sealedCount"`
	TotalCount   int           `json:"totalCount"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
}
