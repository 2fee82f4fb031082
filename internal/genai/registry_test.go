package genai

import (
	"testing"

	"github.com/PavoWillow/wine-data-toolkit/internal/query"
)

func normalize(t *testing.T, q string) query.Essence {
	t.Helper()
	ess, err := query.New().Normalize(q)
	if err != nil {
		t.Fatalf("normalize %q: %v", q, err)
	}
	return ess
}

func TestSelectPromptByCategory(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		q    string
		want string
	}{
		{"What wine pairs with steak?", PromptFoodPairing},
		{"Recommend a good red under $30", PromptRecommendations},
		{"Tell me about the terroir of this vineyard", PromptVineyardInfo},
		{"How to taste wine properly?", PromptTasting},
		{"What is the difference between primary and secondary tastes?", PromptEducation},
		{"Hello there", PromptSommelier},
	}
	for _, tc := range cases {
		got := r.SelectPrompt(tc.q, normalize(t, tc.q), "")
		if got.ID != tc.want {
			t.Fatalf("SelectPrompt(%q) = %q, want %q", tc.q, got.ID, tc.want)
		}
	}
}

func TestSelectPromptHintWins(t *testing.T) {
	r := NewRegistry()
	q := "What wine pairs with steak?"

	got := r.SelectPrompt(q, normalize(t, q), PromptTasting)
	if got.ID != PromptTasting {
		t.Fatalf("explicit hint must win, got %q", got.ID)
	}

	// Unknown hints fall through to content routing.
	got = r.SelectPrompt(q, normalize(t, q), "mystery")
	if got.ID != PromptFoodPairing {
		t.Fatalf("unknown hint must fall through, got %q", got.ID)
	}
}

func TestSelectDataSource(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		q    string
		want string
	}{
		{"Recommend a red wine under $30", SourceRedWines},
		{"A crisp white for summer", SourceWhiteWines},
		{"Something bubbly for a celebration", SourceSparklingWines},
		{"A nice rosé for the afternoon", SourceRoseWines},
		{"Show me your most expensive bottles", SourcePremiumWines},
		{"What wine pairs with steak?", SourceAllWines},
	}
	for _, tc := range cases {
		got := r.SelectDataSource(tc.q, normalize(t, tc.q))
		if got.ID != tc.want {
			t.Fatalf("SelectDataSource(%q) = %q, want %q", tc.q, got.ID, tc.want)
		}
	}
}

func TestRegistryClosedSets(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Prompt("freeform"); ok {
		t.Fatalf("unregistered prompt must not resolve")
	}
	if _, ok := r.DataSource("everything"); ok {
		t.Fatalf("unregistered data source must not resolve")
	}
	if p, ok := r.Prompt(PromptSommelier); !ok || p.Instructions == "" {
		t.Fatalf("sommelier prompt must be registered with instructions")
	}
	if ds, ok := r.DataSource(SourcePremiumWines); !ok || ds.Filters == "" {
		t.Fatalf("premium data source must carry a filter")
	}
}
