// Package api is the typed client for the vibecheck assessment backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vibecheck/vibecheck-dash/internal/metrics"
)

const (
	defaultTimeout   = 60 * time.Second
	maxErrorBodySize = 1 << 20 // 1 MiB
)

// APIError is a non-2xx backend response. Message carries the backend's
// error.message verbatim when present, otherwise an HTTP-status fallback.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ValidationError is a request rejected before any network call.
type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a backend client. baseURL must be the http(s) origin of the
// vibecheck API, without a trailing slash.
func New(baseURL string) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("backend base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("backend base URL must be http(s): %q", base)
	}
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

// WebSocketURL returns the push channel endpoint for an assessment,
// derived from the HTTP base by scheme substitution.
func (c *Client) WebSocketURL(assessmentID string) string {
	base := c.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/v1/assessments/" + url.PathEscape(assessmentID) + "/ws"
}

func (c *Client) ListAssessments(ctx context.Context, limit int) ([]Assessment, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("per_page", strconv.Itoa(limit))
	}
	q.Set("sort", "-created_at")

	var payload struct {
		Data []Assessment `json:"data"`
	}
	if err := c.do(ctx, "list_assessments", http.MethodGet, "/v1/assessments", q, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	if strings.TrimSpace(id) == "" {
		return Assessment{}, errors.New("assessment id is required")
	}
	var out Assessment
	err := c.do(ctx, "get_assessment", http.MethodGet, "/v1/assessments/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// CreateAssessmentRequest is the create call payload.
type CreateAssessmentRequest struct {
	Mode            string   `json:"mode"`
	RepoURL         string   `json:"repo_url,omitempty"`
	TargetURL       string   `json:"target_url,omitempty"`
	Agents          []string `json:"agents,omitempty"`
	Depth           string   `json:"depth,omitempty"`
	TunnelSessionID string   `json:"tunnel_session_id,omitempty"`
	IdempotencyKey  string   `json:"idempotency_key,omitempty"`
}

// Validate enforces the create-form invariants before any network call.
func (r CreateAssessmentRequest) Validate() error {
	switch r.Mode {
	case "lightweight":
		if strings.TrimSpace(r.RepoURL) == "" {
			return ValidationError("repository URL is required for lightweight mode")
		}
	case "robust":
		if strings.TrimSpace(r.TargetURL) == "" {
			return ValidationError("target URL is required for robust mode")
		}
		if len(r.Agents) == 0 {
			return ValidationError("select at least one robust agent")
		}
	default:
		return ValidationError(fmt.Sprintf("unknown assessment mode %q", r.Mode))
	}
	return nil
}

func (c *Client) CreateAssessment(ctx context.Context, req CreateAssessmentRequest) (Assessment, error) {
	if err := req.Validate(); err != nil {
		return Assessment{}, err
	}
	var out Assessment
	err := c.do(ctx, "create_assessment", http.MethodPost, "/v1/assessments", nil, req, &out)
	return out, err
}

func (c *Client) ListFindings(ctx context.Context, assessmentID string, limit int) ([]Finding, error) {
	if strings.TrimSpace(assessmentID) == "" {
		return nil, errors.New("assessment id is required")
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("per_page", strconv.Itoa(limit))
	}
	q.Set("sort", "severity")

	var payload struct {
		Data []Finding `json:"data"`
	}
	path := "/v1/assessments/" + url.PathEscape(assessmentID) + "/findings"
	if err := c.do(ctx, "list_findings", http.MethodGet, path, q, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// AnalyzeFinding runs the backend analyzer for one finding. The payload is
// passed through opaque; the dashboard does not interpret it beyond JSON
// validity.
func (c *Client) AnalyzeFinding(ctx context.Context, assessmentID, findingID string) (json.RawMessage, error) {
	if strings.TrimSpace(assessmentID) == "" || strings.TrimSpace(findingID) == "" {
		return nil, errors.New("assessment id and finding id are required")
	}
	var out json.RawMessage
	path := "/v1/assessments/" + url.PathEscape(assessmentID) + "/findings/" + url.PathEscape(findingID) + "/analyze"
	err := c.do(ctx, "analyze_finding", http.MethodPost, path, nil, struct{}{}, &out)
	return out, err
}

func (c *Client) SearchMemory(ctx context.Context, query string, limit int, assessmentID string) (MemorySearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return MemorySearchResult{}, errors.New("memory search query is required")
	}
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if assessmentID != "" {
		q.Set("assessment_id", assessmentID)
	}
	var out MemorySearchResult
	err := c.do(ctx, "memory_search", http.MethodGet, "/v1/memory/search", q, nil, &out)
	return out, err
}

func (c *Client) ListTunnelSessions(ctx context.Context) ([]TunnelSession, error) {
	var payload struct {
		Data []TunnelSession `json:"data"`
	}
	if err := c.do(ctx, "list_tunnel_sessions", http.MethodGet, "/v1/tunnel/sessions", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	if c.HTTP == nil {
		return errors.New("backend http client is not configured")
	}

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vibecheck-dash")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(operation, "transport_error").Inc()
		return err
	}
	defer resp.Body.Close()
	metrics.BackendRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFromResponse(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func apiErrorFromResponse(statusCode int, body []byte) *APIError {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error.Message) != "" {
		return &APIError{StatusCode: statusCode, Message: payload.Error.Message}
	}
	return &APIError{StatusCode: statusCode, Message: fmt.Sprintf("HTTP %d", statusCode)}
}
