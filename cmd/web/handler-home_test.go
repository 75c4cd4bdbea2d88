package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	doc, err := s.Client().GetDoc(ctx, "/")
	require.NoError(t, err)

	assert.Equal(t, "input", stepOf(doc))
	form := doc.Find("form[action='/brand']")
	require.Equal(t, 1, form.Length())
	for _, name := range []string{"name", "domain", "keywords"} {
		assert.Equal(t, 1, form.Find("input[name="+name+"]").Length(), name)
	}
	token, ok := form.Find("input[name=csrf_token]").Attr("value")
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	nonce, ok := doc.Find("script[src*=htmx]").First().Attr("nonce")
	assert.True(t, ok)
	assert.NotEmpty(t, nonce)
	_, ok = s.Client().Cookie(sessionCookieName)
	assert.True(t, ok, "the visitor gets a session")
}

func TestHome_SecureHeaders(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	resp, err := s.Client().Get(ctx, "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	csp := resp.Header.Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'nonce-")
	assert.Contains(t, csp, "object-src 'none'")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestSubmitBrand_Incomplete(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	doc, err := s.Client().SubmitForm(ctx, "/", "/brand", url.Values{
		"name":   {"Ember Cookware"},
		"domain": {"embercookware.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "input", stepOf(doc))
	assert.Equal(t, "Please fill in the brand name, domain and keywords.", strings.TrimSpace(doc.Find("p.error").Text()))
	value, _ := doc.Find("input[name=name]").Attr("value")
	assert.Equal(t, "Ember Cookware", value, "typed values are kept")
	assert.Empty(t, s.backend.Requests("/generate-queries"))
}

func TestSubmitBrand_BackendFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "rejected",
			status:  http.StatusOK,
			body:    `{"response":"error","message":"Failed to generate queries. Please try again."}`,
			message: "Failed to generate queries. Please try again.",
		},
		{
			name:    "offline",
			status:  http.StatusBadGateway,
			body:    "bad gateway",
			message: "Connection failed. Backend might be offline.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startTestServer(t)
			ctx := testContext(t)
			s.backend.Respond("/generate-queries", tt.status, tt.body)

			doc, err := s.Client().SubmitForm(ctx, "/", "/brand", testBrand)
			require.NoError(t, err)

			assert.Equal(t, "input", stepOf(doc))
			assert.Equal(t, tt.message, strings.TrimSpace(doc.Find("p.error").Text()))
		})
	}
}

func TestSubmitBrand_SendsBrand(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	doc := submitBrand(ctx, t, s.Client())

	assert.Equal(t, 5, doc.Find("li.query-row").Length())
	requests := s.backend.Requests("/generate-queries")
	require.Len(t, requests, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(requests[0].Body, &body))
	assert.Equal(t, "Ember Cookware", body["name"])
	assert.Equal(t, "ceramic pans, non-toxic cookware", body["keywords"])
}

func TestReset(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	client := s.Client()
	completeWizard(ctx, t, s)

	doc, err := client.SubmitForm(ctx, "/", "/reset", nil)
	require.NoError(t, err)

	assert.Equal(t, "input", stepOf(doc))
	value, _ := doc.Find("input[name=name]").Attr("value")
	assert.Empty(t, value)
}

func TestCSRF(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	client := s.Client()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	doc.Find("form[action='/brand'] input[name=csrf_token]").SetAttr("value", "forged")

	resp, err := client.PostForm(ctx, doc, "/brand", testBrand, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, s.backend.Requests("/generate-queries"))
}

func TestStaleStep(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)
	client := s.Client()

	input, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	submitBrand(ctx, t, client)

	// The input page was left open in another tab.
	resp, err := client.PostForm(ctx, input, "/brand", testBrand, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, s.backend.Requests("/generate-queries"), 1)
}

func TestNotFound(t *testing.T) {
	s := startTestServer(t)
	ctx := testContext(t)

	resp, err := s.Client().Get(ctx, "/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
