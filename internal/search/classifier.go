// Package search routes free-text catalog queries: a keyword classifier
// decides whether the query targets sealed products, single cards, or both,
// and the router dispatches to the matching search paths.
package search

import "strings"

// Mode is the classification outcome for a query.
type Mode string

const (
	ModeSingles   Mode = "singles"
	ModeSealed    Mode = "sealed"
	ModeAmbiguous Mode = "ambiguous"
)

// Classifier buckets queries by two disjoint keyword lists. Multi-word terms
// match as substrings of the normalized query; single-word terms match whole
// tokens only, so "ex" flags "booster box ex" but not "exeggutor".
type Classifier struct {
	sealedTerms []string
	singleTerms []string
}

var defaultSealedTerms = []string{
	"booster box",
	"booster bundle",
	"booster pack",
	"elite trainer box",
	"etb",
	"collection box",
	"premium collection",
	"build & battle",
	"build and battle",
	"blister",
	"display",
	"tin",
	"bundle",
	"case",
}

var defaultSingleTerms = []string{
	"full art",
	"alt art",
	"secret rare",
	"reverse holo",
	"vmax",
	"vstar",
	"gx",
	"ex",
	"holo",
	"rainbow",
	"promo",
	"1st edition",
	"shadowless",
}

// NewClassifier builds a classifier with custom keyword lists.
func NewClassifier(sealedTerms, singleTerms []string) *Classifier {
	return &Classifier{sealedTerms: sealedTerms, singleTerms: singleTerms}
}

// DefaultClassifier uses the stock Pokémon TCG keyword lists.
func DefaultClassifier() *Classifier {
	return NewClassifier(defaultSealedTerms, defaultSingleTerms)
}

// Classify returns the routing mode for a query. A query matching both lists,
// or neither, is ambiguous.
func (c *Classifier) Classify(query string) Mode {
	q := strings.ToLower(strings.TrimSpace(query))
	sealed := matchesAny(q, c.sealedTerms)
	single := matchesAny(q, c.singleTerms)

	switch {
	case sealed && !single:
		return ModeSealed
	case single && !sealed:
		return ModeSingles
	default:
		return ModeAmbiguous
	}
}

func matchesAny(query string, terms []string) bool {
	tokens := strings.Fields(query)
	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(query, term) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tok == term {
				return true
			}
		}
	}
	return false
}
