// Package analyzer defines the interface to the external content-analysis
// service that scores content for generative-engine readability. The scoring
// itself happens upstream; this package only carries requests across.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is one piece of content to score.
type Request struct {
	Content  string `json:"content" validate:"required"`
	Skill    string `json:"skill,omitempty"`
	Category string `json:"category,omitempty"`
}

// Insight is one finding from the analysis.
type Insight struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Status      string `json:"status"`   // passed, warning, failed
	Priority    string `json:"priority"` // high, medium, low
	Description string `json:"description"`
}

// Result is the analysis outcome.
type Result struct {
	Score       int       `json:"score"`
	Insights    []Insight `json:"insights"`
	Suggestions []string  `json:"suggestions"`
}

// Client is the content-analysis interface consumed by the analyze handler.
type Client interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// HTTPClient posts analysis requests to a configured upstream service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates an HTTPClient. The upstream may be slow (LLM-backed),
// so the timeout is generous.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Analyze sends the content upstream and decodes the scored result.
func (c *HTTPClient) Analyze(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analysis service returned HTTP %d: %s", resp.StatusCode, data)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &result, nil
}

// Noop is used when no analyzer is configured; it returns an empty result so
// the editor can fall back to local heuristics.
type Noop struct{}

func (Noop) Analyze(ctx context.Context, req Request) (*Result, error) {
	return &Result{Suggestions: []string{"configure ANALYZER_URL to enable AI analysis"}}, nil
}
