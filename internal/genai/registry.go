package genai

import (
	"strings"

	"github.com/PavoWillow/wine-data-toolkit/internal/query"
)

// Prompt is one registered system prompt.
type Prompt struct {
	ID           string
	Name         string
	Instructions string
}

// DataSource is one registered wine subset.
type DataSource struct {
	ID      string
	Name    string
	Filters string
}

// Registry holds the closed prompt and data-source sets and routes a
// query to the right pair.
type Registry struct {
	prompts     map[string]Prompt
	dataSources map[string]DataSource
}

const (
	PromptSommelier       = "sommelier"
	PromptRecommendations = "recommendations"
	PromptFoodPairing     = "food_pairing"
	PromptEducation       = "education"
	PromptVineyardInfo    = "vineyard_info"
	PromptTasting         = "tasting"
)

const (
	SourceAllWines       = "all_wines"
	SourceRedWines       = "red_wines"
	SourceWhiteWines     = "white_wines"
	SourceSparklingWines = "sparkling_wines"
	SourceRoseWines      = "rose_wines"
	SourcePremiumWines   = "premium_wines"
)

// NewRegistry builds the default prompt and data-source sets.
func NewRegistry() *Registry {
	r := &Registry{
		prompts:     make(map[string]Prompt),
		dataSources: make(map[string]DataSource),
	}

	for _, p := range []Prompt{
		{
			ID:   PromptSommelier,
			Name: "Sommelier Assistant",
			Instructions: "You are a sophisticated sommelier assistant with deep knowledge of wines, vineyards, and wine culture. " +
				"Use the wine database to answer questions, make recommendations, and educate the user. " +
				"Blend expertise with approachability, cite specific wines when possible, and keep the conversation contextual.",
		},
		{
			ID:   PromptRecommendations,
			Name: "Wine Recommendations",
			Instructions: "You are a sommelier specializing in wine recommendations. " +
				"Recommend 3-5 specific wines matching the user's preferences, occasion, and budget. " +
				"For each, give the name, winery, region, vintage, taste profile, price tier, and serving advice, and explain why it fits.",
		},
		{
			ID:   PromptFoodPairing,
			Name: "Food and Wine Pairing",
			Instructions: "You are a sommelier specializing in food and wine pairings. " +
				"Suggest specific wines from the database that complement the dish, explain the pairing principles, " +
				"and account for preparation, sauces, and dominant flavors.",
		},
		{
			ID:   PromptEducation,
			Name: "Wine Education",
			Instructions: "You are a wine educator. Explain wine terminology, production methods, regions, and grape varieties " +
				"in accessible terms, using wines from the database as examples. Distinguish primary, secondary, and tertiary tastes.",
		},
		{
			ID:   PromptVineyardInfo,
			Name: "Vineyard and Winery Information",
			Instructions: "You are a sommelier with vineyard and winery expertise. " +
				"Cover history, terroir, soil, climate, and winemaking philosophy, and reference wines from the database.",
		},
		{
			ID:   PromptTasting,
			Name: "Wine Tasting Guide",
			Instructions: "You are a sommelier guiding wine tasting. Walk the user through look, smell, taste, and finish, " +
				"and assess balance, intensity, clarity, complexity, and typicity using actual taste profile data.",
		},
	} {
		r.prompts[p.ID] = p
	}

	for _, ds := range []DataSource{
		{ID: SourceAllWines, Name: "All Wines"},
		{ID: SourceRedWines, Name: "Red Wines", Filters: "type_id:1"},
		{ID: SourceWhiteWines, Name: "White Wines", Filters: "type_id:2"},
		{ID: SourceSparklingWines, Name: "Sparkling Wines", Filters: "type_id:3"},
		{ID: SourceRoseWines, Name: "Rosé Wines", Filters: "type_id:4"},
		{ID: SourcePremiumWines, Name: "Premium Wines", Filters: "average_rating>=4.0"},
	} {
		r.dataSources[ds.ID] = ds
	}

	return r
}

// Prompt returns the registered prompt by ID.
func (r *Registry) Prompt(id string) (Prompt, bool) {
	p, ok := r.prompts[id]
	return p, ok
}

// DataSource returns the registered data source by ID.
func (r *Registry) DataSource(id string) (DataSource, bool) {
	ds, ok := r.dataSources[id]
	return ds, ok
}

// SelectPrompt picks a prompt for the query. An explicit hint wins
// when it names a registered prompt; otherwise the normalized category
// routes, with keyword checks as a tiebreak and the general sommelier
// prompt as default.
func (r *Registry) SelectPrompt(queryText string, ess query.Essence, hint string) Prompt {
	if hint != "" {
		if p, ok := r.prompts[hint]; ok {
			return p
		}
	}

	switch ess.Category {
	case query.CategoryFoodPairing:
		return r.prompts[PromptFoodPairing]
	case query.CategoryRecommendation:
		return r.prompts[PromptRecommendations]
	}

	lower := strings.ToLower(queryText)
	switch {
	case containsAny(lower, "vineyard", "winery", "terroir", "estate"):
		return r.prompts[PromptVineyardInfo]
	case containsAny(lower, "tasting", "taste like", "how to taste", "evaluate"):
		return r.prompts[PromptTasting]
	case containsAny(lower, "what is", "what are", "explain", "difference between", "how is", "why do"):
		return r.prompts[PromptEducation]
	}

	return r.prompts[PromptSommelier]
}

// SelectDataSource picks the wine subset the query should run against.
// Wine-type mentions narrow to the typed subsets; premium wording
// routes to the premium subset; everything else reads from all wines.
func (r *Registry) SelectDataSource(queryText string, ess query.Essence) DataSource {
	lower := strings.ToLower(queryText)

	switch {
	case ess.WineType == "red" || strings.Contains(lower, "red"):
		return r.dataSources[SourceRedWines]
	case ess.WineType == "white" || strings.Contains(lower, "white"):
		return r.dataSources[SourceWhiteWines]
	case ess.WineType == "sparkling" || containsAny(lower, "sparkling", "champagne", "prosecco", "bubbly"):
		return r.dataSources[SourceSparklingWines]
	case ess.WineType == "rose" || containsAny(lower, "rosé", "rose"):
		return r.dataSources[SourceRoseWines]
	case containsAny(lower, "premium", "expensive", "high quality", "best"):
		return r.dataSources[SourcePremiumWines]
	}

	return r.dataSources[SourceAllWines]
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
