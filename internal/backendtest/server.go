// Package backendtest runs the development backend behind httptest for tests that talk to it over HTTP.
package backendtest

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/myrjola/aivisibility/internal/devbackend"
)

// Request is a recorded backend call.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is a development backend that records every request and can be told to answer differently.
type Server struct {
	*httptest.Server
	Backend *devbackend.Server

	mu        sync.Mutex
	requests  []Request
	overrides map[string]http.HandlerFunc
}

// NewServer starts a backend with canned content. It is closed when the test finishes.
func NewServer(t testing.TB, logger *slog.Logger) *Server {
	t.Helper()
	s := &Server{
		Backend:   devbackend.NewServer(devbackend.CannedGenerator{}, logger),
		overrides: make(map[string]http.HandlerFunc),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	override := s.overrides[r.URL.Path]
	s.mu.Unlock()

	if override != nil {
		override(w, r)
		return
	}
	s.Backend.ServeHTTP(w, r)
}

// Override answers requests to path with handler instead of the backend. A nil handler restores the
// backend.
func (s *Server) Override(path string, handler http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handler == nil {
		delete(s.overrides, path)
		return
	}
	s.overrides[path] = handler
}

// Respond makes path answer with a fixed status and body.
func (s *Server) Respond(path string, status int, body string) {
	s.Override(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// Requests returns the recorded requests to path, or all requests when path is empty.
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matching []Request
	for _, r := range s.requests {
		if path == "" || r.Path == path {
			matching = append(matching, r)
		}
	}
	return matching
}
