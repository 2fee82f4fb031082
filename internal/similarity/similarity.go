// Package similarity scores previously answered queries against an
// incoming one so the cache can generalize beyond exact key matches.
package similarity

import (
	"strings"
	"time"

	"github.com/PavoWillow/wine-data-toolkit/internal/query"
)

// DefaultThreshold is the minimum Jaccard score a candidate must
// exceed to be reused. Policy, not a correctness requirement.
const DefaultThreshold = 0.7

// Candidate is a previously answered query under consideration.
type Candidate struct {
	Key       string
	QueryText string
	CreatedAt time.Time
}

// Jaccard computes token-set similarity between two strings:
// |intersection| / |union| over their word sets. Symmetric, and 1.0
// for a non-empty string with itself.
func Jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// BestMatch returns the candidate most similar to queryText with a
// score strictly above threshold, or nil when none qualifies. Role
// markers embedded in candidate text are stripped before comparison.
// Ties go to the most recently created candidate.
func BestMatch(queryText string, candidates []Candidate, threshold float64) *Candidate {
	cleaned := query.CleanText(queryText)

	var best *Candidate
	bestScore := threshold
	for i := range candidates {
		c := &candidates[i]
		score := Jaccard(cleaned, query.CleanText(c.QueryText))
		if score > bestScore {
			bestScore = score
			best = c
		} else if best != nil && score == bestScore && c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	return best
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
