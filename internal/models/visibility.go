package models

import (
	"strings"
)

// BrandInput is what the visitor tells us about their brand on the first wizard step.
type BrandInput struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	// Keywords is a comma-separated list exactly as typed.
	Keywords string `json:"keywords"`
}

// KeywordList splits Keywords on commas and drops blank entries.
func (b BrandInput) KeywordList() []string {
	parts := strings.Split(b.Keywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

// Complete reports whether every field has a non-blank value.
func (b BrandInput) Complete() bool {
	return strings.TrimSpace(b.Name) != "" &&
		strings.TrimSpace(b.Domain) != "" &&
		strings.TrimSpace(b.Keywords) != ""
}

// AnalysisItem is the backend's verdict for a single search query.
type AnalysisItem struct {
	Query               string   `json:"query"`
	AIAnswer            string   `json:"ai_answer"`
	Sources             []string `json:"sources"`
	IsVisible           bool     `json:"is_visible"`
	IsFullMatch         bool     `json:"is_full_match"`
	IsPartialMatch      bool     `json:"is_partial_match"`
	PartialMatchKeyword string   `json:"partial_match_keyword"`
	// Rank of the brand in the answer. Zero or negative means unranked.
	Rank               int      `json:"rank"`
	Mentions           int      `json:"mentions"`
	NumPartialMentions int      `json:"num_partial_mentions"`
	Recommendations    []string `json:"recommendations"`
}

// Ranked reports whether the brand was ranked in the answer.
func (a AnalysisItem) Ranked() bool {
	return a.Rank > 0
}

// Report is a stored analysis owned by the backend and identified by its doc id.
type Report struct {
	Name      string         `json:"name"`
	Domain    string         `json:"domain"`
	Keywords  string         `json:"keywords"`
	Analysis  []AnalysisItem `json:"analysis"`
	CreatedAt Timestamp      `json:"created_at"`
	CreatedBy string         `json:"created_by"`
}

// Brand returns the brand details the report was created for.
func (r Report) Brand() BrandInput {
	return BrandInput{Name: r.Name, Domain: r.Domain, Keywords: r.Keywords}
}

// Queries returns the analysed queries in stored order.
func (r Report) Queries() []string {
	queries := make([]string, len(r.Analysis))
	for i, item := range r.Analysis {
		queries[i] = item.Query
	}
	return queries
}

// BareDomain strips scheme, a leading www. and any path from a domain as typed by the visitor.
func BareDomain(domain string) string {
	d := strings.TrimSpace(domain)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}
	return d
}

// MatchesDomain reports whether an answer source belongs to the brand domain.
func MatchesDomain(brandDomain, source string) bool {
	domain := BareDomain(brandDomain)
	if domain == "" {
		return false
	}
	return strings.Contains(strings.ToLower(source), strings.ToLower(domain))
}
