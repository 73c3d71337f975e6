package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/openstars/internal/logging"
)

// HTTPAnalyzer asks a remote classification service for the industry of a URL.
//
// Request:  POST <endpoint> {"url": "..."}
// Response: 200 {"industry": "..."}
type HTTPAnalyzer struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPAnalyzer creates an analyzer for endpoint. apiKey is optional.
func NewHTTPAnalyzer(endpoint, apiKey string, logger *slog.Logger) *HTTPAnalyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HTTPAnalyzer{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client.
func (a *HTTPAnalyzer) WithHTTPClient(c *http.Client) *HTTPAnalyzer {
	if c != nil {
		a.httpClient = c
	}
	return a
}

// Analyze implements ports.Analyzer.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, url string) (string, error) {
	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return "", fmt.Errorf("analysis: payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("analysis: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("analysis: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Industry string `json:"industry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("analysis: decode: %w", err)
	}
	a.logger.Debug("URL classified", "url", url, "industry", parsed.Industry)
	return strings.TrimSpace(parsed.Industry), nil
}
