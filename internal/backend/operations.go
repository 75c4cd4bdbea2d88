package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
)

const (
	pathGenerateQueries         = "/generate-queries"
	pathGetAnswer               = "/get-answer"
	pathGetReport               = "/get-report"
	pathGenerateRecommendations = "/generate-recommendations"
	pathSendOTP                 = "/send-otp"
	pathVerifyOTP               = "/verify-otp"
)

// GeneratedQueries is the backend's proposal of search queries for a brand.
type GeneratedQueries struct {
	// DocID identifies the report the backend created for this brand.
	DocID   string
	Queries []string
}

type generateQueriesResponse struct {
	envelope
	DocID string `json:"doc_id"`
}

type messageData struct {
	Message string `json:"message"`
}

// GenerateQueries asks the backend for search queries a buyer might ask an AI assistant about the brand.
func (c *Client) GenerateQueries(ctx context.Context, brand models.BrandInput) (GeneratedQueries, error) {
	var resp generateQueriesResponse
	if err := c.roundTrip(ctx, http.MethodPost, pathGenerateQueries, nil, brand, &resp, false); err != nil {
		return GeneratedQueries{}, errors.Wrap(err, "generate queries")
	}

	var queries []string
	if resp.ok() && json.Unmarshal(resp.Data, &queries) == nil && queries != nil {
		return GeneratedQueries{DocID: resp.DocID, Queries: queries}, nil
	}

	rejection := resp.reject(pathGenerateQueries)
	var msg messageData
	if json.Unmarshal(resp.Data, &msg) == nil && msg.Message != "" {
		rejection.Message = msg.Message
	}
	return GeneratedQueries{}, errors.Wrap(rejection, "generate queries")
}

// AnalyzeQueryParams identifies one query of a report to analyse.
type AnalyzeQueryParams struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Keywords string `json:"keywords"`
	Query    string `json:"query"`
	DocID    string `json:"doc_id"`
	// NumQuery is the 0-based position of the query in the confirmed list.
	NumQuery     int `json:"num_query"`
	TotalQueries int `json:"total_queries"`
}

// AnalyzeQuery runs the visibility analysis of a single query.
func (c *Client) AnalyzeQuery(ctx context.Context, params AnalyzeQueryParams) (models.AnalysisItem, error) {
	var resp envelope
	attrs := []slog.Attr{slog.Int("num_query", params.NumQuery), slog.String("doc_id", params.DocID)}
	if err := c.roundTrip(ctx, http.MethodPost, pathGetAnswer, nil, params, &resp, false); err != nil {
		return models.AnalysisItem{}, errors.Wrap(err, "analyze query", attrs...)
	}
	var item models.AnalysisItem
	if !resp.ok() || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return models.AnalysisItem{}, errors.Wrap(resp.reject(pathGetAnswer), "analyze query", attrs...)
	}
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return models.AnalysisItem{}, errors.Wrap(ErrConnection, "decode analysis item", attrs...)
	}
	return item, nil
}

// GetReport fetches a stored report by doc id.
func (c *Client) GetReport(ctx context.Context, id string) (models.Report, error) {
	var resp envelope
	query := url.Values{"id": []string{id}}
	attrs := []slog.Attr{slog.String("doc_id", id)}
	if err := c.roundTrip(ctx, http.MethodGet, pathGetReport, query, nil, &resp, false); err != nil {
		return models.Report{}, errors.Wrap(err, "get report", attrs...)
	}
	if !resp.ok() || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return models.Report{}, errors.Wrap(resp.reject(pathGetReport), "get report", attrs...)
	}
	var report models.Report
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		return models.Report{}, errors.Wrap(ErrConnection, "decode report", attrs...)
	}
	return report, nil
}

type generateRecommendationsRequest struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
}

// GenerateRecommendations asks the backend for improvement ideas for the query at index of report id.
func (c *Client) GenerateRecommendations(ctx context.Context, id string, index int) ([]string, error) {
	var resp envelope
	attrs := []slog.Attr{slog.String("doc_id", id), slog.Int("index", index)}
	req := generateRecommendationsRequest{ID: id, Index: index}
	if err := c.roundTrip(ctx, http.MethodPost, pathGenerateRecommendations, nil, req, &resp, false); err != nil {
		return nil, errors.Wrap(err, "generate recommendations", attrs...)
	}
	var recommendations []string
	if !resp.ok() || json.Unmarshal(resp.Data, &recommendations) != nil {
		return nil, errors.Wrap(resp.reject(pathGenerateRecommendations), "generate recommendations", attrs...)
	}
	return recommendations, nil
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

// SendOTP asks the backend to email a one-time code to email.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	var resp envelope
	if err := c.roundTrip(ctx, http.MethodPost, pathSendOTP, nil, sendOTPRequest{Email: email}, &resp, true); err != nil {
		return errors.Wrap(err, "send otp")
	}
	if !resp.ok() {
		return errors.Wrap(resp.reject(pathSendOTP), "send otp")
	}
	return nil
}

// VerifyOTPParams carries the code together with the confirmed wizard state so that the backend can email
// the finished report.
type VerifyOTPParams struct {
	Email    string   `json:"email"`
	OTP      int      `json:"otp"`
	Brand    string   `json:"brand"`
	Domain   string   `json:"domain"`
	Keywords []string `json:"keywords"`
	Queries  []string `json:"queries"`
	DocID    string   `json:"doc_id"`
}

// VerifyOTP checks the code the visitor received.
func (c *Client) VerifyOTP(ctx context.Context, params VerifyOTPParams) error {
	var resp envelope
	if err := c.roundTrip(ctx, http.MethodPost, pathVerifyOTP, nil, params, &resp, true); err != nil {
		return errors.Wrap(err, "verify otp")
	}
	if !resp.ok() {
		return errors.Wrap(resp.reject(pathVerifyOTP), "verify otp")
	}
	return nil
}
