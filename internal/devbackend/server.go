// Package devbackend is an in-memory implementation of the remote visibility analysis service. It backs
// local development and the end-to-end tests.
package devbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/random"
)

const (
	// QueryCount is how many queries a new report proposes.
	QueryCount = 5
	// CodeTTL is how long a one-time code stays valid.
	CodeTTL = 10 * time.Minute

	codeLength = 6
)

type issuedCode struct {
	code    string
	expires time.Time
}

type report struct {
	brand     models.BrandInput
	createdAt time.Time
	createdBy string
	analysis  map[int]models.AnalysisItem
}

// Server serves the backend endpoints. It is safe for concurrent use.
type Server struct {
	generator Generator
	logger    *slog.Logger
	now       func() time.Time
	mux       *http.ServeMux

	mu      sync.Mutex
	reports map[string]*report
	codes   map[string]issuedCode
}

// NewServer creates a backend answering with content from generator.
func NewServer(generator Generator, logger *slog.Logger) *Server {
	s := &Server{
		generator: generator,
		logger:    logger.With(slog.String("source", "devbackend")),
		now:       time.Now,
		reports:   make(map[string]*report),
		codes:     make(map[string]issuedCode),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate-queries", s.generateQueries)
	mux.HandleFunc("POST /get-answer", s.getAnswer)
	mux.HandleFunc("GET /get-report", s.getReport)
	mux.HandleFunc("POST /generate-recommendations", s.generateRecommendations)
	mux.HandleFunc("POST /send-otp", s.sendOTP)
	mux.HandleFunc("POST /verify-otp", s.verifyOTP)
	s.mux = mux
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type envelope struct {
	Response  string  `json:"response"`
	Data      any     `json:"data,omitempty"`
	DocID     string  `json:"doc_id,omitempty"`
	Message   string  `json:"message,omitempty"`
	Error     string  `json:"error,omitempty"`
	TimeTaken float64 `json:"time_taken,omitempty"`
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "write response", errors.SlogError(err))
	}
}

func (s *Server) success(ctx context.Context, w http.ResponseWriter, body envelope) {
	body.Response = "success"
	s.writeJSON(ctx, w, http.StatusOK, body)
}

func (s *Server) failure(ctx context.Context, w http.ResponseWriter, status int, body envelope) {
	body.Response = "error"
	s.writeJSON(ctx, w, status, body)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.failure(r.Context(), w, http.StatusBadRequest, envelope{Error: "malformed request body"})
		return false
	}
	return true
}

func (s *Server) generateQueries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var brand models.BrandInput
	if !s.decode(w, r, &brand) {
		return
	}
	if !brand.Complete() {
		s.failure(ctx, w, http.StatusOK, envelope{Data: map[string]string{
			"message": "Brand name, domain and keywords are required.",
		}})
		return
	}

	queries, err := s.generator.GenerateQueries(ctx, brand, QueryCount)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "generate queries", errors.SlogError(err))
		s.failure(ctx, w, http.StatusOK, envelope{Data: map[string]string{
			"message": "Query generation is temporarily unavailable.",
		}})
		return
	}

	docID := uuid.NewString()
	s.mu.Lock()
	s.reports[docID] = &report{brand: brand, createdAt: s.now(), analysis: make(map[int]models.AnalysisItem)}
	s.mu.Unlock()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "report created", slog.String("doc_id", docID))
	s.success(ctx, w, envelope{Data: queries, DocID: docID})
}

type answerRequest struct {
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	Keywords     string `json:"keywords"`
	Query        string `json:"query"`
	DocID        string `json:"doc_id"`
	NumQuery     int    `json:"num_query"`
	TotalQueries int    `json:"total_queries"`
}

func (s *Server) getAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := s.now()
	var req answerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.NumQuery < 0 || req.NumQuery >= req.TotalQueries {
		s.failure(ctx, w, http.StatusOK, envelope{Message: "num_query out of range"})
		return
	}

	s.mu.Lock()
	rep, ok := s.reports[req.DocID]
	s.mu.Unlock()
	if !ok {
		s.failure(ctx, w, http.StatusOK, envelope{Message: "Unknown report."})
		return
	}

	brand := models.BrandInput{Name: req.Name, Domain: req.Domain, Keywords: req.Keywords}
	answer, err := s.generator.Answer(ctx, brand, req.Query)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "answer query", errors.SlogError(err))
		s.failure(ctx, w, http.StatusBadGateway, envelope{Message: "Answering failed."})
		return
	}
	item := Analyze(brand, req.Query, answer)

	s.mu.Lock()
	rep.analysis[req.NumQuery] = item
	s.mu.Unlock()

	s.success(ctx, w, envelope{Data: item, TimeTaken: s.now().Sub(start).Seconds()})
}

func (s *Server) snapshot(id string) (models.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reports[id]
	if !ok {
		return models.Report{}, false
	}
	indexes := make([]int, 0, len(rep.analysis))
	for i := range rep.analysis {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	analysis := make([]models.AnalysisItem, 0, len(indexes))
	for _, i := range indexes {
		analysis = append(analysis, rep.analysis[i])
	}
	return models.Report{
		Name:      rep.brand.Name,
		Domain:    rep.brand.Domain,
		Keywords:  rep.brand.Keywords,
		Analysis:  analysis,
		CreatedAt: models.Timestamp{Time: rep.createdAt},
		CreatedBy: rep.createdBy,
	}, true
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rep, ok := s.snapshot(r.URL.Query().Get("id"))
	if !ok {
		s.failure(ctx, w, http.StatusOK, envelope{Message: "Report not found."})
		return
	}
	s.success(ctx, w, envelope{Data: rep})
}

type recommendationsRequest struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
}

func (s *Server) generateRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req recommendationsRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	rep, ok := s.reports[req.ID]
	var item models.AnalysisItem
	if ok {
		item, ok = rep.analysis[req.Index]
	}
	s.mu.Unlock()
	if !ok {
		s.failure(ctx, w, http.StatusOK, envelope{Message: "Query has not been analysed."})
		return
	}

	recs, err := s.generator.Recommendations(ctx, rep.brand, item)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "generate recommendations", errors.SlogError(err))
		s.failure(ctx, w, http.StatusBadGateway, envelope{Message: "Recommendations failed."})
		return
	}
	s.success(ctx, w, envelope{Data: recs})
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

func (s *Server) sendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req sendOTPRequest
	if !s.decode(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		s.failure(ctx, w, http.StatusBadRequest, envelope{Error: "A valid email address is required."})
		return
	}

	code, err := random.Digits(codeLength)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "generate code", errors.SlogError(err))
		s.failure(ctx, w, http.StatusInternalServerError, envelope{Error: "Could not issue a code."})
		return
	}
	s.mu.Lock()
	s.codes[email] = issuedCode{code: code, expires: s.now().Add(CodeTTL)}
	s.mu.Unlock()

	// There is no mail delivery, the log is the inbox.
	s.logger.LogAttrs(ctx, slog.LevelInfo, "issued one-time code", slog.String("email", email), slog.String("code", code))
	s.success(ctx, w, envelope{Message: "Verification code sent."})
}

type verifyOTPRequest struct {
	Email    string   `json:"email"`
	OTP      int      `json:"otp"`
	Brand    string   `json:"brand"`
	Domain   string   `json:"domain"`
	Keywords []string `json:"keywords"`
	Queries  []string `json:"queries"`
	DocID    string   `json:"doc_id"`
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req verifyOTPRequest
	if !s.decode(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	submitted := fmt.Sprintf("%06d", req.OTP)

	s.mu.Lock()
	issued, ok := s.codes[email]
	valid := ok && issued.code == submitted && s.now().Before(issued.expires)
	if valid {
		delete(s.codes, email)
		if rep, found := s.reports[req.DocID]; found {
			rep.createdBy = email
		}
	}
	s.mu.Unlock()

	if !valid {
		s.failure(ctx, w, http.StatusUnauthorized, envelope{Error: "Invalid or expired verification code."})
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "email verified",
		slog.String("doc_id", req.DocID), slog.Int("queries", len(req.Queries)))
	s.success(ctx, w, envelope{Message: "Verified. The report will be emailed once the analysis completes."})
}

// LastCode returns the code most recently issued to email.
func (s *Server) LastCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issued, ok := s.codes[strings.ToLower(strings.TrimSpace(email))]
	return issued.code, ok
}

// AddReport stores a finished report and returns its id.
func (s *Server) AddReport(rep models.Report) string {
	id := uuid.NewString()
	stored := &report{
		brand:     rep.Brand(),
		createdAt: rep.CreatedAt.Time,
		createdBy: rep.CreatedBy,
		analysis:  make(map[int]models.AnalysisItem, len(rep.Analysis)),
	}
	for i, item := range rep.Analysis {
		stored.analysis[i] = item
	}
	s.mu.Lock()
	s.reports[id] = stored
	s.mu.Unlock()
	return id
}
