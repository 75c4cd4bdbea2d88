package devbackend

import (
	"context"
	"testing"

	"github.com/myrjola/aivisibility/internal/ai"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/stretchr/testify/require"
)

var ember = models.BrandInput{Name: "Ember Cookware", Domain: "https://www.embercookware.com", Keywords: "ceramic pans"}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		answer ai.Answer
		check  func(t *testing.T, item models.AnalysisItem)
	}{
		{
			name: "full match ranked second",
			answer: ai.Answer{
				Text:    "Top picks:\n1. GreenPan\n2. Ember Cookware\n3. Caraway\nEmber Cookware is durable.",
				Sources: []string{"embercookware.com", "reviews.example.com"},
			},
			check: func(t *testing.T, item models.AnalysisItem) {
				require.True(t, item.IsVisible)
				require.True(t, item.IsFullMatch)
				require.False(t, item.IsPartialMatch)
				require.Equal(t, 2, item.Rank)
				require.Equal(t, 2, item.Mentions)
				require.Empty(t, item.Recommendations)
			},
		},
		{
			name:   "partial match",
			answer: ai.Answer{Text: "1. GreenPan\n2. Caraway\n3. Ember pans are nice"},
			check: func(t *testing.T, item models.AnalysisItem) {
				require.True(t, item.IsVisible)
				require.False(t, item.IsFullMatch)
				require.True(t, item.IsPartialMatch)
				require.Equal(t, "ember", item.PartialMatchKeyword)
				require.Equal(t, 1, item.NumPartialMentions)
				require.Equal(t, 3, item.Rank)
				require.Len(t, item.Recommendations, 1)
			},
		},
		{
			name:   "only cited",
			answer: ai.Answer{Text: "Many brands exist.", Sources: []string{"shop.EmberCookware.com"}},
			check: func(t *testing.T, item models.AnalysisItem) {
				require.True(t, item.IsVisible)
				require.Zero(t, item.Rank)
				require.Len(t, item.Recommendations, 1)
			},
		},
		{
			name:   "absent",
			answer: ai.Answer{Text: "1. GreenPan\n2. Caraway"},
			check: func(t *testing.T, item models.AnalysisItem) {
				require.False(t, item.IsVisible)
				require.Zero(t, item.Rank)
				require.Zero(t, item.Mentions)
				require.Equal(t, []string{}, item.Sources)
				require.Len(t, item.Recommendations, 2)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Analyze(ember, "best ceramic pans", tt.answer)
			require.Equal(t, "best ceramic pans", item.Query)
			require.Equal(t, tt.answer.Text, item.AIAnswer)
			tt.check(t, item)
		})
	}
}

func TestCannedGenerator(t *testing.T) {
	ctx := context.Background()
	g := CannedGenerator{}

	queries, err := g.GenerateQueries(ctx, models.BrandInput{Name: "Ember", Keywords: "ceramic pans, woks"}, QueryCount)
	require.NoError(t, err)
	require.Len(t, queries, QueryCount)
	require.Equal(t, "What are the best ceramic pans?", queries[0])
	require.Equal(t, "Which woks brands are worth buying?", queries[1])

	first, err := g.Answer(ctx, ember, "best ceramic pans")
	require.NoError(t, err)
	second, err := g.Answer(ctx, ember, "Best Ceramic Pans")
	require.NoError(t, err)
	require.Equal(t, first, second, "answers are deterministic")

	// Over a handful of queries the brand shows up in some answers and is missing from others.
	visible := 0
	for _, q := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		answer, err := g.Answer(ctx, ember, q)
		require.NoError(t, err)
		if Analyze(ember, q, answer).IsVisible {
			visible++
		}
	}
	require.Positive(t, visible)
	require.Less(t, visible, 10)

	recs, err := g.Recommendations(ctx, ember, models.AnalysisItem{Query: "q"})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Contains(t, recs[0], "embercookware.com")
}
