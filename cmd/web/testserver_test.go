package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/aivisibility/internal/backendtest"
	"github.com/myrjola/aivisibility/internal/e2etest"
	"github.com/myrjola/aivisibility/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = 5 * time.Second
	testTick    = 20 * time.Millisecond
)

type testServer struct {
	*e2etest.Server
	backend *backendtest.Server
}

// startTestServer starts the web server against a fresh development backend and an in-memory database.
func startTestServer(t *testing.T) testServer {
	t.Helper()
	return startTestServerWithEnv(t, nil)
}

// startTestServerWithEnv is startTestServer with additional environment variables.
func startTestServerWithEnv(t *testing.T, env map[string]string) testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := backendtest.NewServer(t, testhelpers.NewLogger(io.Discard))
	lookupEnv := func(key string) (string, bool) {
		switch key {
		case "AIVIS_ADDR":
			return "localhost:0", true
		case "AIVIS_BACKEND_URL":
			return backend.URL, true
		case "AIVIS_SQLITE_URL":
			return ":memory:", true
		default:
			value, ok := env[key]
			return value, ok
		}
	}
	server, err := e2etest.StartServer(ctx, io.Discard, lookupEnv, run)
	require.NoError(t, err)
	return testServer{Server: server, backend: backend}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var testBrand = url.Values{
	"name":     {"Ember Cookware"},
	"domain":   {"https://www.embercookware.com/"},
	"keywords": {"ceramic pans, non-toxic cookware"},
}

const testEmail = "founder@embercookware.com"

// submitBrand posts testBrand and returns the query confirmation page.
func submitBrand(ctx context.Context, t *testing.T, client *e2etest.Client) *goquery.Document {
	t.Helper()
	doc, err := client.SubmitForm(ctx, "/", "/brand", testBrand)
	require.NoError(t, err)
	require.Equal(t, "queries", stepOf(doc))
	return doc
}

// verify passes the verification gate with the code the backend issued and returns the results page.
func verify(ctx context.Context, t *testing.T, s testServer) *goquery.Document {
	t.Helper()
	client := s.Client()
	doc, err := client.SubmitForm(ctx, "/", "/verification/open", nil)
	require.NoError(t, err)
	doc, err = client.SubmitForm(ctx, "/", "/verification/code", url.Values{"email": {testEmail}})
	require.NoError(t, err)
	require.Contains(t, doc.Find("[role=dialog]").Text(), "Check Your Inbox")

	code, ok := s.backend.Backend.LastCode(testEmail)
	require.True(t, ok)
	doc, err = client.SubmitForm(ctx, "/", "/verification/confirm", url.Values{"code": {code}})
	require.NoError(t, err)
	require.Equal(t, "results", stepOf(doc))
	return doc
}

func stepOf(doc *goquery.Document) string {
	step, _ := doc.Find("main").Attr("data-step")
	return step
}

func rowStatuses(doc *goquery.Document) []string {
	var statuses []string
	doc.Find("li.result").Each(func(_ int, s *goquery.Selection) {
		status, _ := s.Attr("data-status")
		statuses = append(statuses, status)
	})
	return statuses
}

func allEqual(values []string, want string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if v != want {
			return false
		}
	}
	return true
}

// waitForRows polls the results page until every row has status.
func waitForRows(ctx context.Context, t *testing.T, client *e2etest.Client, status string) *goquery.Document {
	t.Helper()
	var doc *goquery.Document
	require.Eventually(t, func() bool {
		var err error
		if doc, err = client.GetDoc(ctx, "/"); err != nil {
			return false
		}
		return allEqual(rowStatuses(doc), status)
	}, testTimeout, testTick)
	return doc
}

func metric(doc *goquery.Selection, name string) string {
	return strings.TrimSpace(doc.Find("[data-metric=" + name + "] .metric-value").Text())
}

// htmxHeaders make a request look like it was sent by htmx.
var htmxHeaders = map[string]string{"HX-Request": "true"}

func readFragment(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

// sseEvent is a parsed Server-Sent Event.
type sseEvent struct {
	Name string
	Data string
}

// readEvents parses events from an SSE stream and sends them on the returned channel until the stream ends.
func readEvents(body io.Reader) <-chan sseEvent {
	events := make(chan sseEvent)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var (
			current sseEvent
			data    []string
		)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				current.Data = strings.Join(data, "\n")
				events <- current
				current, data = sseEvent{}, nil
			case strings.HasPrefix(line, "event: "):
				current.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = append(data, strings.TrimPrefix(line, "data: "))
			}
		}
	}()
	return events
}
