package devbackend

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/myrjola/aivisibility/internal/ai"
	"github.com/myrjola/aivisibility/internal/models"
)

// Generator produces the content the backend would otherwise get from an AI model.
type Generator interface {
	GenerateQueries(ctx context.Context, brand models.BrandInput, count int) ([]string, error)
	Answer(ctx context.Context, brand models.BrandInput, query string) (ai.Answer, error)
	Recommendations(ctx context.Context, brand models.BrandInput, item models.AnalysisItem) ([]string, error)
}

// OpenAIGenerator asks a chat model. The model never learns which brand is being measured.
type OpenAIGenerator struct {
	Client *ai.Client
}

func (g OpenAIGenerator) GenerateQueries(ctx context.Context, brand models.BrandInput, count int) ([]string, error) {
	return g.Client.GenerateQueries(ctx, brand, count) //nolint:wrapcheck // already annotated
}

func (g OpenAIGenerator) Answer(ctx context.Context, _ models.BrandInput, query string) (ai.Answer, error) {
	return g.Client.Answer(ctx, query) //nolint:wrapcheck // already annotated
}

func (g OpenAIGenerator) Recommendations(
	ctx context.Context,
	brand models.BrandInput,
	item models.AnalysisItem,
) ([]string, error) {
	return g.Client.Recommendations(ctx, brand, item.Query) //nolint:wrapcheck // already annotated
}

// CannedGenerator returns deterministic content derived from its input. It makes the backend usable
// offline and in tests.
type CannedGenerator struct{}

var queryTemplates = []string{
	"What are the best %s?",
	"Which %s brands are worth buying?",
	"Are %s worth the money?",
	"What should I look for when buying %s?",
	"Where can I buy affordable %s online?",
}

var competitors = []string{"Northwind Goods", "Harbor & Pine", "Lumen Supply", "Crestline Co."}

func (CannedGenerator) GenerateQueries(_ context.Context, brand models.BrandInput, count int) ([]string, error) {
	keywords := brand.KeywordList()
	if len(keywords) == 0 {
		keywords = []string{brand.Name + " products"}
	}
	queries := make([]string, 0, count)
	for i := 0; len(queries) < count && i < count*len(keywords); i++ {
		template := queryTemplates[i%len(queryTemplates)]
		keyword := keywords[i%len(keywords)]
		queries = append(queries, fmt.Sprintf(template, keyword))
	}
	return queries, nil
}

// Answer ranks the brand at a position picked from a hash of the query, or leaves it out entirely.
func (CannedGenerator) Answer(_ context.Context, brand models.BrandInput, query string) (ai.Answer, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(query)))
	slot := int(h.Sum32() % uint32(len(competitors)+1))

	names := append([]string(nil), competitors...)
	sources := []string{"reviews.example.com", "forum.example.org"}
	if slot < len(competitors) {
		names = append(names[:slot], append([]string{brand.Name}, names[slot:]...)...)
		sources = append(sources, models.BareDomain(brand.Domain))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here is what shoppers recommend for %q:\n", query)
	for i, name := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return ai.Answer{Text: strings.TrimSpace(b.String()), Sources: sources}, nil
}

func (CannedGenerator) Recommendations(
	_ context.Context,
	brand models.BrandInput,
	item models.AnalysisItem,
) ([]string, error) {
	domain := models.BareDomain(brand.Domain)
	return []string{
		fmt.Sprintf("Publish a guide on %s answering %q.", domain, item.Query),
		fmt.Sprintf("Collect reviews that mention %s by name on independent sites.", brand.Name),
		"Add structured product data so assistants can cite your pages.",
	}, nil
}
