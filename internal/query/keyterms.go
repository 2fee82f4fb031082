package query

import (
	"sort"
	"strings"
)

// stopwords never contribute to key terms.
var stopwords = map[string]struct{}{
	"what": {}, "which": {}, "how": {}, "is": {}, "are": {}, "the": {}, "a": {}, "an": {},
	"in": {}, "with": {}, "for": {}, "to": {}, "of": {}, "would": {}, "should": {},
	"could": {}, "will": {}, "can": {}, "do": {}, "does": {}, "has": {}, "have": {},
	"had": {}, "i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {}, "it": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "am": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "there": {}, "their": {}, "me": {}, "and": {},
	"or": {}, "but": {}, "if": {}, "then": {}, "so": {}, "because": {}, "since": {},
	"while": {}, "when": {}, "where": {}, "why": {}, "all": {}, "any": {}, "both": {},
	"each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {},
	"no": {}, "nor": {}, "not": {}, "only": {}, "own": {}, "same": {}, "than": {},
	"too": {}, "very": {}, "just": {}, "now": {}, "also": {}, "really": {}, "quite": {},
}

// wineStopwords are common in wine queries but carry no distinguishing
// meaning, so they are down-weighted in longer queries.
var wineStopwords = map[string]struct{}{
	"wine": {}, "wines": {}, "drink": {}, "bottle": {}, "glass": {}, "recommend": {},
	"suggestion": {}, "taste": {}, "flavor": {}, "tell": {}, "about": {}, "know": {},
	"like": {}, "good": {},
}

// importantTerms are domain-significant wine terms; they score double.
var importantTerms = map[string]struct{}{
	"cabernet": {}, "merlot": {}, "chardonnay": {}, "pinot": {}, "sauvignon": {},
	"riesling": {}, "shiraz": {}, "zinfandel": {}, "syrah": {}, "malbec": {},
	"champagne": {}, "prosecco": {}, "bordeaux": {}, "burgundy": {}, "vintage": {},
	"terroir": {}, "tannin": {}, "acidity": {}, "oak": {}, "body": {}, "dry": {},
	"sweet": {}, "pairing": {}, "decant": {}, "cellar": {}, "sommelier": {},
	"vineyard": {}, "winery": {}, "german": {}, "french": {}, "italian": {}, "spanish": {},
}

const maxKeyTerms = 5

// keyTerms extracts up to five weighted key terms from a query.
// Domain-significant terms score double, later position in the
// sentence earns a linear bonus, and ties keep the original order.
func (n *Normalizer) keyTerms(cleaned string) string {
	words := strings.Fields(cleaned)

	type weighted struct {
		word   string
		weight float64
		pos    int
	}

	var scored []weighted
	for i, word := range words {
		word = strings.Trim(word, punctuation)
		if _, skip := stopwords[word]; skip {
			continue
		}
		if len(word) <= 2 {
			continue
		}

		weight := 1.0
		if _, common := wineStopwords[word]; common && len(words) > 3 {
			weight = 0.5
		} else if _, important := importantTerms[word]; important {
			weight = 2.0
		}
		weight += float64(i+1) / float64(len(words))

		scored = append(scored, weighted{word: word, weight: weight, pos: i})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].weight > scored[b].weight
	})

	if len(scored) == 0 {
		return cleaned
	}
	if len(scored) > maxKeyTerms {
		scored = scored[:maxKeyTerms]
	}

	terms := make([]string, len(scored))
	for i, w := range scored {
		terms[i] = w.word
	}
	return strings.Join(terms, " ")
}
