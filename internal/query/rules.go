package query

import (
	"regexp"
	"strings"
)

// roleMarkerReplacer strips conversational role labels embedded in a
// query before any classification runs.
var roleMarkerReplacer = strings.NewReplacer(
	"assistant:", "",
	"user:", "",
	"sommelier:", "",
)

// ruleSet holds the ordered classification and extraction tables.
// Precedence is fixed: food-pairing beats recommendation beats generic.
type ruleSet struct {
	pairingTerms       []string
	foodContextTerms   []string
	followUpIndicators []string
	recommendTerms     []string
	foods              []string
	wineTypes          []vocabRule
	regions            []vocabRule
	pricePatterns      []pricePattern
}

// vocabRule maps a canonical tag to the terms that imply it.
type vocabRule struct {
	tag   string
	terms []string
}

type pricePattern struct {
	re     *regexp.Regexp
	format func(groups []string) string
}

func defaultRules() ruleSet {
	return ruleSet{
		pairingTerms: []string{
			"pair", "pairing", "goes with", "good with", "match", "matching", "complement",
		},
		foodContextTerms: []string{
			"food", "dish", "meal", "restaurant", "cuisine",
		},
		followUpIndicators: []string{
			"first suggestion", "second suggestion", "third suggestion",
			"that suggestion", "that wine", "that option", "option", "sounds good",
		},
		recommendTerms: []string{
			"recommend", "suggest", "looking for", "what wine",
		},
		foods: []string{
			// Meats
			"steak", "beef", "pork", "lamb", "veal", "chicken", "turkey", "duck", "goose",
			"meat", "burgers", "barbecue", "bbq", "ribs", "bacon", "ham", "sausage",
			// Seafood
			"fish", "salmon", "tuna", "cod", "halibut", "trout", "seafood", "shrimp", "lobster",
			"crab", "oyster", "mussel", "clam", "scallop", "squid", "octopus", "eel",
			// Italian
			"pasta", "pizza", "risotto", "lasagna", "spaghetti", "gnocchi", "ravioli",
			// Cheese and dairy
			"cheese", "cheddar", "brie", "camembert", "gouda", "blue cheese", "goat cheese",
			"parmesan", "feta", "mozzarella", "ricotta", "dairy",
			// Desserts
			"chocolate", "dessert", "cake", "pie", "tart", "cookie", "pudding", "ice cream",
			// Vegetables
			"vegetable", "salad", "greens", "tomato", "mushroom", "truffle", "potato",
			"eggplant", "zucchini", "cucumber", "carrot", "asparagus", "broccoli",
			// Cuisines
			"italian", "french", "indian", "chinese", "japanese", "mexican", "thai", "spanish",
		},
		wineTypes: []vocabRule{
			{tag: "red", terms: []string{"red", "cabernet", "merlot", "pinot noir", "syrah", "shiraz", "malbec", "zinfandel"}},
			{tag: "white", terms: []string{"white", "chardonnay", "sauvignon blanc", "pinot grigio", "riesling", "moscato"}},
			{tag: "sparkling", terms: []string{"sparkling", "champagne", "prosecco", "cava", "bubbly"}},
			{tag: "rose", terms: []string{"rosé", "rose", "pink wine"}},
		},
		regions: []vocabRule{
			{tag: "france", terms: []string{"french", "france", "bordeaux", "burgundy", "champagne", "rhone", "loire"}},
			{tag: "italy", terms: []string{"italian", "italy", "tuscany", "piedmont", "veneto", "sicily"}},
			{tag: "spain", terms: []string{"spanish", "spain", "rioja", "catalonia", "ribera"}},
			{tag: "usa", terms: []string{"american", "california", "napa", "sonoma", "oregon", "washington"}},
			{tag: "australia", terms: []string{"australian", "australia", "barossa", "margaret river"}},
			{tag: "new_zealand", terms: []string{"new zealand", "marlborough"}},
			{tag: "argentina", terms: []string{"argentinian", "argentina", "mendoza"}},
			{tag: "chile", terms: []string{"chilean", "chile"}},
			{tag: "germany", terms: []string{"german", "germany", "mosel", "rheingau"}},
		},
		pricePatterns: defaultPricePatterns(),
	}
}

func defaultPricePatterns() []pricePattern {
	single := func(groups []string) string { return "price_" + groups[0] }
	return []pricePattern{
		{re: regexp.MustCompile(`under\s+\$(\d+)`), format: single},
		{re: regexp.MustCompile(`less than\s+\$(\d+)`), format: single},
		{re: regexp.MustCompile(`around\s+\$(\d+)`), format: single},
		{re: regexp.MustCompile(`\$(\d+)-\$?(\d+)`), format: func(groups []string) string {
			return "price_" + groups[0] + "_to_" + groups[1]
		}},
		{re: regexp.MustCompile(`\$(\d+)`), format: single},
		{re: regexp.MustCompile(`(\d+)\s+dollars`), format: single},
	}
}

// isFoodPairing reports whether the query asks about pairings. A query
// containing a deictic reference ("that"/"this") must also carry an
// explicit food-context noun, so bare follow-ups like "that sounds
// good" are not classified as pairing requests.
func (r ruleSet) isFoodPairing(q string) bool {
	isPairing := containsAny(q, r.pairingTerms)
	if strings.Contains(q, "that") || strings.Contains(q, "this") {
		return isPairing && containsAny(q, r.foodContextTerms)
	}
	return isPairing
}

func (r ruleSet) isRecommendation(q string) bool {
	return containsAny(q, r.recommendTerms)
}

// isFollowUp reports whether the query references an earlier
// suggestion rather than naming a food itself.
func (r ruleSet) isFollowUp(q string) bool {
	return containsAny(q, r.followUpIndicators)
}

// extractFoods pulls food entities out of a pairing query. Follow-up
// queries and bare deictic references yield an empty set, never the
// pronoun itself.
func (r ruleSet) extractFoods(q string) []string {
	if r.isFollowUp(q) {
		return nil
	}

	var found []string
	for _, food := range r.foods {
		if strings.Contains(q, food) {
			found = append(found, food)
		}
	}

	// "what wine pairs with X" pattern: take the words after "with".
	if len(found) == 0 && (strings.Contains(q, "pair") || strings.Contains(q, "pairing")) {
		if _, after, ok := strings.Cut(q, "with"); ok {
			words := strings.Fields(strings.TrimSpace(after))
			if len(words) > 3 {
				words = words[:3]
			}
			if part := strings.Join(words, " "); part != "" {
				found = append(found, part)
			}
		}
	}

	if len(found) == 0 && (strings.Contains(q, "that") || strings.Contains(q, "this")) {
		return nil
	}

	var cleaned []string
	for _, food := range found {
		food = strings.TrimRight(food, punctuation)
		if food = strings.TrimSpace(food); food == "" {
			continue
		}
		if _, pronoun := deicticPronouns[food]; pronoun {
			continue
		}
		cleaned = append(cleaned, food)
	}
	return cleaned
}

func (r ruleSet) extractWineType(q string) string {
	for _, rule := range r.wineTypes {
		if containsAny(q, rule.terms) {
			return rule.tag
		}
	}
	return ""
}

func (r ruleSet) extractRegion(q string) string {
	for _, rule := range r.regions {
		if containsAny(q, rule.terms) {
			return rule.tag
		}
	}
	return ""
}

// extractPriceRange recognizes "under $N", "$A-$B", "$N", "N dollars",
// and the qualitative budget/premium wordings.
func (r ruleSet) extractPriceRange(q string) string {
	for _, p := range r.pricePatterns {
		if m := p.re.FindStringSubmatch(q); m != nil {
			return p.format(m[1:])
		}
	}
	if containsAny(q, []string{"cheap", "inexpensive", "budget"}) {
		return "price_budget"
	}
	if containsAny(q, []string{"expensive", "premium", "luxury"}) {
		return "price_premium"
	}
	return ""
}

var deicticPronouns = map[string]struct{}{
	"that": {}, "this": {}, "these": {}, "those": {}, "it": {},
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
