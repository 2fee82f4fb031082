// Package query turns raw user queries into canonical essences used
// for cache-key derivation and similarity search.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Category is the closed set of query classes the normalizer produces.
type Category string

const (
	CategoryFoodPairing    Category = "food_pairing"
	CategoryRecommendation Category = "recommendations"
	CategoryGeneral        Category = "sommelier"
)

// ErrEmptyQuery is returned when the input is blank after cleaning.
var ErrEmptyQuery = errors.New("query: empty query")

// Essence is the canonical semantic fingerprint of a query. Text is
// the string fed to key derivation; the extracted fields drive data
// source selection and the food-pairing fallback search.
type Essence struct {
	Text       string
	Category   Category
	Foods      []string
	WineType   string
	PriceRange string
	Region     string
}

// Normalizer derives essences from raw query text. Zero-cost to share;
// all methods are pure functions of the input.
type Normalizer struct {
	rules ruleSet
}

// New returns a Normalizer with the default rule tables.
func New() *Normalizer {
	return &Normalizer{rules: defaultRules()}
}

// CleanText lower-cases and trims the query and strips conversational
// role markers that would otherwise leak into cache keys. Idempotent.
func CleanText(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = roleMarkerReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Normalize derives the essence of a query. Deterministic and
// idempotent: Normalize(CleanText(q)) equals Normalize(q).
func (n *Normalizer) Normalize(raw string) (Essence, error) {
	cleaned := CleanText(raw)
	if cleaned == "" {
		return Essence{}, ErrEmptyQuery
	}

	// Entity-bearing queries fingerprint on category + entities alone,
	// so wordings that extract the same entities share a cache key.
	if n.rules.isFoodPairing(cleaned) {
		foods := n.rules.extractFoods(cleaned)
		if len(foods) > 0 {
			return Essence{
				Text:     "pair_with_" + strings.Join(foods, " "),
				Category: CategoryFoodPairing,
				Foods:    foods,
			}, nil
		}
		// Pairing query with no extractable food (bare follow-up):
		// fall back to the exact essence but keep the category.
		return Essence{
			Text:     n.exactEssence(cleaned),
			Category: CategoryFoodPairing,
		}, nil
	}

	if n.rules.isRecommendation(cleaned) {
		wineType := n.rules.extractWineType(cleaned)
		priceRange := n.rules.extractPriceRange(cleaned)
		region := n.rules.extractRegion(cleaned)

		var constraints []string
		for _, c := range []string{wineType, priceRange, region} {
			if c != "" {
				constraints = append(constraints, c)
			}
		}
		if len(constraints) > 0 {
			return Essence{
				Text:       "recommend_" + strings.Join(constraints, " "),
				Category:   CategoryRecommendation,
				WineType:   wineType,
				PriceRange: priceRange,
				Region:     region,
			}, nil
		}
		return Essence{
			Text:     n.exactEssence(cleaned),
			Category: CategoryRecommendation,
		}, nil
	}

	return Essence{
		Text:     n.exactEssence(cleaned),
		Category: CategoryGeneral,
	}, nil
}

// IsFollowUp reports whether the query reads as a follow-up to an
// earlier turn rather than a standalone question.
func (n *Normalizer) IsFollowUp(raw string) bool {
	return n.rules.isFollowUp(CleanText(raw))
}

// exactEssence composes the entity-free essence: the exact-match
// component plus the highest-weighted key terms.
func (n *Normalizer) exactEssence(cleaned string) string {
	return "exact_" + n.exactComponent(cleaned) + "_" + n.keyTerms(cleaned)
}

// exactComponent builds the exact-match part of the essence: the
// stopword-stripped query, hashed to a short token when it gets long.
func (n *Normalizer) exactComponent(cleaned string) string {
	var kept []string
	for _, w := range strings.Fields(cleaned) {
		if _, skip := exactStopwords[strings.Trim(w, punctuation)]; skip {
			continue
		}
		kept = append(kept, w)
	}
	exact := strings.Join(kept, " ")
	if exact == "" {
		exact = cleaned
	}
	if len(exact) > exactHashCutoff {
		sum := sha256.Sum256([]byte(exact))
		return "q_" + hex.EncodeToString(sum[:])[:10]
	}
	return exact
}

const exactHashCutoff = 30

const punctuation = ".,?!:;"

// exactStopwords are question filler words removed before building the
// exact-match component. Smaller than the key-term stopword set so the
// component keeps enough of the query to stay distinctive.
var exactStopwords = map[string]struct{}{
	"what": {}, "whats": {}, "which": {}, "is": {}, "are": {}, "the": {},
	"a": {}, "an": {}, "can": {}, "could": {}, "would": {}, "you": {},
	"please": {}, "tell": {}, "me": {}, "do": {}, "does": {}, "i": {},
}
