// Package images resolves card artwork through a free-text image-search API.
// Lookups degrade to a placeholder rather than failing.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cardkeep/cardkeep/internal/cache"
)

// PlaceholderURL is served whenever no acceptable candidate is found.
const PlaceholderURL = "/static/card-back.png"

// Candidate is one image returned by the search provider.
type Candidate struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}

// Finder searches for card images and caches accepted results.
type Finder struct {
	http  *resty.Client
	cache *cache.Store
}

// NewFinder creates an image finder. Image search is the one outbound path
// with a hard wall-clock timeout regardless of caller context.
func NewFinder(baseURL, apiKey string, store *cache.Store) *Finder {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(8 * time.Second)
	if apiKey != "" {
		c.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Finder{http: c, cache: store}
}

type searchResponse struct {
	Results []Candidate `json:"results"`
}

// FindCardImage returns the best image URL for a card name (plus optional set
// name). Failures and empty result sets downgrade to the placeholder.
func (f *Finder) FindCardImage(ctx context.Context, cardName, setName string) string {
	key := cache.Key("images", map[string]string{"name": cardName, "set": setName}, cache.TypeImage)
	if cached, ok := f.cache.Get(key); ok {
		return cached.(string)
	}

	var out searchResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": buildQuery(cardName, setName)}).
		SetResult(&out).
		Get("/search")
	if err != nil {
		slog.Warn("image search failed", "card", cardName, "error", err)
		return PlaceholderURL
	}
	if resp.StatusCode() != http.StatusOK {
		slog.Warn("image search returned error status", "card", cardName, "status", resp.StatusCode())
		return PlaceholderURL
	}

	best := SelectBest(out.Results, cardName, setName)
	if best == "" {
		return PlaceholderURL
	}

	f.cache.Set(key, best, cache.TypeImage)
	return best
}

func buildQuery(cardName, setName string) string {
	if setName == "" {
		return cardName
	}
	return fmt.Sprintf("%s %s", cardName, setName)
}

// SelectBest scores candidates by how well their title matches the card name:
// exact match beats prefix match beats substring match, with a bonus when the
// set name also appears. Non-image content types are rejected outright.
func SelectBest(candidates []Candidate, cardName, setName string) string {
	name := strings.ToLower(cardName)
	set := strings.ToLower(setName)

	bestScore := 0
	bestURL := ""
	for _, c := range candidates {
		if c.ContentType != "" && !strings.HasPrefix(c.ContentType, "image/") {
			continue
		}
		title := strings.ToLower(c.Title)

		var score int
		switch {
		case title == name:
			score = 100
		case strings.HasPrefix(title, name):
			score = 50
		case strings.Contains(title, name):
			score = 25
		default:
			continue
		}
		if set != "" && strings.Contains(title, set) {
			score += 10
		}
		if score > bestScore {
			bestScore = score
			bestURL = c.URL
		}
	}
	return bestURL
}
