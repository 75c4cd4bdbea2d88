package main

import (
	"net/http"
	"net/url"

	"github.com/myrjola/aivisibility/internal/analysis"
	"github.com/myrjola/aivisibility/internal/contexthelpers"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/queries"
	"github.com/myrjola/aivisibility/internal/wizard"
)

type BaseTemplateData struct {
	CurrentPath string
	// Step is the wizard step the page shows.
	Step     string
	GuideURL string
}

func (app *application) newBaseTemplateData(r *http.Request, step wizard.Step) BaseTemplateData {
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(r.Context()),
		Step:        wizard.StepName(step),
		GuideURL:    app.guideURL,
	}
}

type inputTemplateData struct {
	BaseTemplateData

	Brand models.BrandInput
	Error string
}

type queryView struct {
	Index  int
	Number int
	Text   string
}

type queriesTemplateData struct {
	BaseTemplateData

	Brand        models.BrandInput
	Queries      []queryView
	Full         bool
	MaxQueries   int
	Verification wizard.Verification
	CodeSent     bool
	CodeLength   int
}

func newQueriesTemplateData(base BaseTemplateData, step wizard.QueryConfirmationStep) queriesTemplateData {
	texts := step.Editor.Queries()
	views := make([]queryView, len(texts))
	for i, text := range texts {
		views[i] = queryView{Index: i, Number: i + 1, Text: text}
	}
	return queriesTemplateData{
		BaseTemplateData: base,
		Brand:            step.Brand,
		Queries:          views,
		Full:             len(texts) >= queries.MaxQueries,
		MaxQueries:       queries.MaxQueries,
		Verification:     step.Verification,
		CodeSent:         step.Verification.Stage == wizard.StageCodeSent,
		CodeLength:       wizard.CodeLength,
	}
}

type sourceView struct {
	Host      string
	Highlight bool
}

// itemView is one query row of the results.
type itemView struct {
	Index  int
	Query  string
	Status string
	// Prefix is shown in front of the query while it waits or is analysed.
	Prefix  string
	Queued  bool
	Loading bool
	Failed  bool
	// Open expands the row. Failed rows are expanded so that retrying is one click away.
	Open                      bool
	Item                      *models.AnalysisItem
	Score                     int
	Sources                   []sourceView
	Recommendations           []string
	GeneratingRecommendations bool
	// Poll refreshes a loading row on its own once no live stream delivers its answer.
	Poll bool
}

// newItemView renders entry. settled tells whether the run's live stream has closed.
func newItemView(entry analysis.Entry, brandDomain string, settled bool) itemView {
	v := itemView{
		Index:                     entry.Index,
		Query:                     entry.Query,
		Status:                    entry.Status.String(),
		Item:                      entry.Item,
		GeneratingRecommendations: entry.GeneratingRecommendations,
	}
	switch entry.Status {
	case analysis.StatusIdle:
		v.Prefix = "Queued: "
		v.Queued = true
	case analysis.StatusLoading:
		v.Prefix = "Analyzing: "
		v.Loading = true
		v.Poll = settled
	case analysis.StatusFailed:
		v.Failed = true
		v.Open = true
	case analysis.StatusDone:
	}
	if entry.Item != nil {
		v.Score = analysis.ItemScore(*entry.Item)
		v.Sources = make([]sourceView, len(entry.Item.Sources))
		for i, source := range entry.Item.Sources {
			v.Sources[i] = sourceView{Host: source, Highlight: models.MatchesDomain(brandDomain, source)}
		}
		// Recommendations generated on demand replace the ones that came with the analysis.
		v.Recommendations = entry.Item.Recommendations
		if entry.Recommendations != nil {
			v.Recommendations = entry.Recommendations
		}
	}
	return v
}

type metricsView struct {
	analysis.Metrics

	// Pending shows spinners until the first query has an answer.
	Pending bool
	// OOB swaps the panel out of band next to a row update.
	OOB bool
}

type itemUpdateView struct {
	Item    itemView
	Metrics metricsView
}

type resultsView struct {
	Brand      models.BrandInput
	DocID      string
	FromReport bool
	Settled    bool
	Metrics    metricsView
	Items      []itemView
	ReportPath string
}

func newMetricsView(run *analysis.Run) metricsView {
	pending := false
	if entry, err := run.Entry(0); err == nil {
		pending = entry.Status == analysis.StatusLoading && entry.Item == nil
	}
	return metricsView{Metrics: run.Metrics(), Pending: pending}
}

func newResultsView(step wizard.ResultsStep) resultsView {
	settled := step.Run.IsSettled()
	entries := step.Run.Entries()
	items := make([]itemView, len(entries))
	for i, entry := range entries {
		items[i] = newItemView(entry, step.Brand.Domain, settled)
	}
	return resultsView{
		Brand:      step.Brand,
		DocID:      step.DocID,
		FromReport: step.FromReport,
		Settled:    settled,
		Metrics:    newMetricsView(step.Run),
		Items:      items,
		ReportPath: reportPath(step.DocID),
	}
}

// reportPath is the shareable address of a stored report.
func reportPath(docID string) string {
	return "/ai-visibility/report?" + url.Values{"id": {docID}}.Encode()
}

type resultsTemplateData struct {
	BaseTemplateData

	Results resultsView
}
