package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedReport() models.Report {
	return models.Report{
		Name:     "Ember Cookware",
		Domain:   "embercookware.com",
		Keywords: "ceramic pans",
		Analysis: []models.AnalysisItem{
			{
				Query:           "best ceramic pans",
				AIAnswer:        "1. Caraway\n2. Ember Cookware",
				Sources:         []string{"www.embercookware.com", "reviews.example.com"},
				IsVisible:       true,
				IsFullMatch:     true,
				Rank:            2,
				Mentions:        1,
				Recommendations: []string{"Publish a comparison page.", "Collect reviews."},
			},
			{
				Query:    "non-toxic cookware brands",
				AIAnswer: "GreenPan and Caraway are popular.",
				Sources:  []string{"forum.example.org"},
			},
		},
	}
}

func openReport(ctx context.Context, t *testing.T, s testServer) *goquery.Document {
	t.Helper()
	id := s.backend.Backend.AddReport(storedReport())
	doc, err := s.Client().GetDoc(ctx, reportPath(id))
	require.NoError(t, err)
	require.Equal(t, "results", stepOf(doc))
	return doc
}

func TestReport(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	doc := openReport(ctx, t, s)

	assert.Equal(t, []string{"done", "done"}, rowStatuses(doc))
	assert.Equal(t, 0, doc.Find("#results-live[sse-connect]").Length())
	assert.Equal(t, "1/2", metric(doc.Selection, "visibility"))
	assert.Equal(t, "#2.0", metric(doc.Selection, "rank"))
	assert.Equal(t, "50%", metric(doc.Selection, "score"))
	assert.Equal(t, "2", metric(doc.Selection, "insights"))
	assert.Equal(t, "Run New Analysis", strings.TrimSpace(doc.Find("form[action='/reset'] button").Text()))
	assert.Empty(t, s.backend.Requests("/get-answer"), "stored reports are never analysed again")

	first := doc.Find("#result-0")
	assert.Equal(t, "Yes", strings.TrimSpace(first.Find("[data-field=visible] dd").Text()))
	assert.Equal(t, "#2", strings.TrimSpace(first.Find("[data-field=rank] dd").Text()))
	assert.Equal(t, "100%", strings.TrimSpace(first.Find("[data-field=score] dd").Text()))
	assert.Equal(t, 2, first.Find("ul.recommendations li").Length())
	assert.Equal(t, "www.embercookware.com", first.Find("a.source-match").Text())

	second := doc.Find("#result-1")
	assert.Equal(t, "N/A", strings.TrimSpace(second.Find("[data-field=rank] dd").Text()))
	assert.Equal(t, 1, second.Find("form[action='/results/items/1/recommendations']").Length())
	assert.Equal(t, 0, second.Find("a.source-match").Length())
}

func TestReport_Unknown(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	doc, err := s.Client().GetDoc(ctx, reportPath("missing"))
	require.NoError(t, err)

	assert.Equal(t, "input", stepOf(doc))
	assert.Equal(t, "Could not find the requested report.", strings.TrimSpace(doc.Find("p.error").Text()))
}

func TestReport_BlankID(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	doc, err := s.Client().GetDoc(ctx, "/ai-visibility/report?id=")
	require.NoError(t, err)
	assert.Equal(t, "input", stepOf(doc))
	assert.Empty(t, s.backend.Requests("/get-report"))
}

func TestGenerateRecommendations(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	doc := openReport(ctx, t, s)

	resp, err := s.Client().PostForm(ctx, doc, "/results/items/1/recommendations", nil, htmxHeaders)
	require.NoError(t, err)
	row := readFragment(t, resp)

	require.Equal(t, 1, row.Find("li#result-1").Length(), "htmx gets the row only")
	assert.Equal(t, 0, row.Find("main").Length())
	assert.Equal(t, 3, row.Find("ul.recommendations li").Length())
	assert.Len(t, s.backend.Requests("/generate-recommendations"), 1)

	// The generated recommendations stay with the row.
	doc, err = s.Client().GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Find("#result-1 ul.recommendations li").Length())
}

func TestGenerateRecommendations_Failure(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	doc := openReport(ctx, t, s)
	s.backend.Respond("/generate-recommendations", http.StatusInternalServerError, "")

	resp, err := s.Client().PostForm(ctx, doc, "/results/items/1/recommendations", nil, htmxHeaders)
	require.NoError(t, err)
	row := readFragment(t, resp)

	assert.Equal(t, 0, row.Find("ul.recommendations").Length())
	assert.Equal(t, 1, row.Find("form[action='/results/items/1/recommendations']").Length(), "generating can be tried again")
}

func TestRetry(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	client := s.Client()
	s.backend.Respond("/get-answer", http.StatusInternalServerError, "")

	submitBrand(ctx, t, client)
	verify(ctx, t, s)
	doc := waitForRows(ctx, t, client, "failed")
	assert.Equal(t, 5, doc.Find("details[open]").Length(), "failed rows are expanded")
	assert.Equal(t, "0/5", metric(doc.Selection, "visibility"))
	assert.Equal(t, "0%", metric(doc.Selection, "score"))
	assert.Equal(t, 0, doc.Find("#results-live[sse-connect]").Length(), "failures settle the analysis")

	s.backend.Override("/get-answer", nil)
	resp, err := client.PostForm(ctx, doc, "/results/items/3/retry", nil, htmxHeaders)
	require.NoError(t, err)
	row := readFragment(t, resp)
	status, _ := row.Find("li#result-3").Attr("data-status")
	require.Equal(t, "done", status, "the retry answers with the analysed row")
	assert.Equal(t, 0, row.Find("li#result-3[hx-trigger]").Length())
	require.Equal(t, 1, row.Find("#metrics[hx-swap-oob]").Length(), "metrics are refreshed next to the row")
	fragmentVisibility := metric(row.Selection, "visibility")

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"failed", "failed", "failed", "done", "failed"}, rowStatuses(doc))
	assert.Equal(t, metric(doc.Selection, "visibility"), fragmentVisibility)
	assert.Len(t, s.backend.Requests("/get-answer"), 6)
}

func TestRetry_SlowAnswerPolls(t *testing.T) {
	// Retries wait one second for their answer.
	s := startTestServerWithEnv(t, map[string]string{"AIVIS_REQUEST_TIMEOUT": "2s"})
	ctx := testContext(t)
	client := s.Client()
	s.backend.Respond("/get-answer", http.StatusInternalServerError, "")

	submitBrand(ctx, t, client)
	verify(ctx, t, s)
	doc := waitForRows(ctx, t, client, "failed")

	release := make(chan struct{})
	var releaseOnce sync.Once
	releaseAll := func() { releaseOnce.Do(func() { close(release) }) }
	t.Cleanup(releaseAll)
	s.backend.Override("/get-answer", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		s.backend.Backend.ServeHTTP(w, r)
	})

	resp, err := client.PostForm(ctx, doc, "/results/items/2/retry", nil, htmxHeaders)
	require.NoError(t, err)
	row := readFragment(t, resp)
	status, _ := row.Find("li#result-2").Attr("data-status")
	require.Equal(t, "loading", status)
	poll := row.Find("li#result-2[hx-trigger]")
	require.Equal(t, 1, poll.Length(), "a loading row without a live stream polls")
	assert.Equal(t, "/results/items/2", poll.AttrOr("hx-get", ""))

	releaseAll()
	require.Eventually(t, func() bool {
		row, err = client.GetDoc(ctx, "/results/items/2")
		if err != nil {
			return false
		}
		got, _ := row.Find("li#result-2").Attr("data-status")
		return got == "done"
	}, testTimeout, testTick)
	assert.Equal(t, 0, row.Find("li#result-2[hx-trigger]").Length(), "polling stops with the answer")
	assert.Equal(t, 1, row.Find("#metrics[hx-swap-oob]").Length())

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, metric(doc.Selection, "score"), metric(row.Selection, "score"))
}

func TestResultsFragments(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	openReport(ctx, t, s)

	doc, err := s.Client().GetDoc(ctx, "/results/items/0")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("li#result-0").Length())

	doc, err = s.Client().GetDoc(ctx, "/results/metrics")
	require.NoError(t, err)
	assert.Equal(t, "1/2", metric(doc.Selection, "visibility"))

	resp, err := s.Client().Get(ctx, "/results/items/7")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResults_WrongStep(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	doc := openReport(ctx, t, s)

	// The results page is still open in another tab after starting over.
	_, err := s.Client().SubmitForm(ctx, "/", "/reset", nil)
	require.NoError(t, err)

	resp, err := s.Client().PostForm(ctx, doc, "/results/items/0/retry", nil, htmxHeaders)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("HX-Redirect"))
}
