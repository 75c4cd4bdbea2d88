// Package backend is a typed client for the remote visibility analysis service.
//
// Every operation is a single JSON round trip. Transport failures and non-success HTTP statuses surface as
// [ErrConnection]; well-formed responses flagged as failures surface as [*ApplicationError].
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/myrjola/aivisibility/internal/errors"
)

// ErrConnection is returned when the backend could not be reached or answered with a non-success status.
var ErrConnection = errors.NewSentinel("connection failed")

// SkipBrowserWarningHeader makes the tunnelling proxy in front of the backend skip its interstitial page.
const SkipBrowserWarningHeader = "ngrok-skip-browser-warning"

const statusSuccess = "success"

// maxErrorBodyBytes bounds how much of an unexpected response body ends up in logs.
const maxErrorBodyBytes = 512

// ApplicationError is a well-formed backend response that reports a failure.
type ApplicationError struct {
	// Op is the backend path that rejected the request.
	Op string
	// Message is the backend's human-readable message field, if any.
	Message string
	// Detail is the backend's error field, if any.
	Detail string
}

func (e *ApplicationError) Error() string {
	reason := e.Detail
	if reason == "" {
		reason = e.Message
	}
	if reason == "" {
		return fmt.Sprintf("%s rejected", e.Op)
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, reason)
}

// Client talks to the remote backend. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the backend at baseURL.
//
// httpClient may be nil in which case a pooled client without an overall timeout is used, deferring to the
// transport defaults.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse backend url", slog.String("url", baseURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("backend url must be http or https", slog.String("url", baseURL))
	}
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		logger:     logger.With(slog.String("source", "backend")),
	}, nil
}

// envelope is the response wrapper shared by every backend operation.
type envelope struct {
	Response string          `json:"response"`
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
}

func (e envelope) ok() bool {
	return e.Response == statusSuccess
}

func (e envelope) reject(op string) *ApplicationError {
	return &ApplicationError{Op: op, Message: e.Message, Detail: e.Error}
}

// roundTrip sends body as JSON to path and decodes the response into out.
//
// When decodeFailures is set, a non-success status with a decodable body is still decoded so that the
// caller can surface the backend's message.
func (c *Client) roundTrip(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	out any,
	decodeFailures bool,
) error {
	endpoint := c.baseURL.JoinPath(path)
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(SkipBrowserWarningHeader, "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(ErrConnection, "do request", slog.String("path", path), slog.String("cause", err.Error()))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "close response body", errors.SlogError(closeErr))
		}
	}()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !success && !decodeFailures {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return errors.Wrap(ErrConnection, "unexpected status",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		if !success {
			return errors.Wrap(ErrConnection, "unexpected status",
				slog.String("path", path), slog.Int("status", resp.StatusCode))
		}
		return errors.Wrap(ErrConnection, "decode response", slog.String("path", path), slog.String("cause", err.Error()))
	}
	return nil
}
