package feed

import (
	"strings"

	"deal-feed-service/internal/models"
)

// UnknownBrand is returned when no brand can be derived from a record
const UnknownBrand = "Unknown"

// DefaultBrandKeywords are the brand tokens recognized by the keyword matcher
var DefaultBrandKeywords = []string{"nike", "adidas", "levi", "zara", "h&m", "uniqlo", "gap"}

// BrandMatcher derives a brand name for a feed record
type BrandMatcher interface {
	ExtractBrand(rec *models.FeedRecord) string
}

// KeywordMatcher guesses brands from a fixed keyword list.
// Matching is substring based, so misses and collisions are expected.
type KeywordMatcher struct {
	keywords []string
}

// NewKeywordMatcher creates a matcher for the given keywords, or the defaults when none are given
func NewKeywordMatcher(keywords ...string) *KeywordMatcher {
	if len(keywords) == 0 {
		keywords = DefaultBrandKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &KeywordMatcher{keywords: lowered}
}

// ExtractBrand scans the product name and category for a keyword,
// falling back to the first word of the product name
func (m *KeywordMatcher) ExtractBrand(rec *models.FeedRecord) string {
	name := strings.ToLower(rec.ProductName)
	category := strings.ToLower(rec.CategoryName)

	for _, k := range m.keywords {
		if strings.Contains(name, k) || strings.Contains(category, k) {
			return capitalize(k)
		}
	}

	if words := strings.Fields(rec.ProductName); len(words) > 0 {
		return words[0]
	}
	return UnknownBrand
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// AffinitySet is a snapshot of the brands users are interested in
type AffinitySet struct {
	names []string
	index map[string]struct{}
}

// NewAffinitySet builds a set from brand names ranked by popularity
func NewAffinitySet(names []string) AffinitySet {
	set := AffinitySet{
		names: make([]string, 0, len(names)),
		index: make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		key := strings.ToLower(n)
		if _, ok := set.index[key]; ok {
			continue
		}
		set.index[key] = struct{}{}
		set.names = append(set.names, n)
	}
	return set
}

// Contains reports whether brand is in the set, ignoring case
func (s AffinitySet) Contains(brand string) bool {
	_, ok := s.index[strings.ToLower(brand)]
	return ok
}

// Len returns the number of brands in the set
func (s AffinitySet) Len() int {
	return len(s.names)
}

// Names returns the brands in popularity order
func (s AffinitySet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
