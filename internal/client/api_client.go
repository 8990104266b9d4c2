package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/metrics"
)

// APIError is a non-2xx answer from an upstream API
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
}

// apiClient carries the JSON plumbing shared by upstream clients.
type apiClient struct {
	provider   string
	baseURL    string
	httpClient *http.Client
	authorize  func(*http.Request)
	metrics    *metrics.Metrics
	logger     *log.Entry
}

func newAPIClient(provider, baseURL string, timeout time.Duration, m *metrics.Metrics) apiClient {
	return apiClient{
		provider:   provider,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     log.WithField("component", provider),
	}
}

// post sends a POST request with JSON body and returns the raw response body
func (c *apiClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(endpoint), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

// get sends a GET request and parses the JSON response
func (c *apiClient) get(ctx context.Context, endpoint string, result interface{}) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *apiClient) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + endpoint
}

// doRequest executes an HTTP request and parses the response
func (c *apiClient) doRequest(req *http.Request, result interface{}) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.authorize != nil {
		c.authorize(req)
	}

	entry := c.logger.WithFields(log.Fields{"method": req.Method, "path": req.URL.Path})
	entry.Debug("→ upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.count("transport_error")
		entry.WithError(err).Warn("upstream request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.count("read_error")
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	entry.WithField("status", resp.StatusCode).Debugf("← %s", truncate(string(respBody), 500))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.count("http_error")
		return respBody, &APIError{Provider: c.provider, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			c.count("decode_error")
			entry.WithError(err).Warn("failed to decode upstream response")
			return respBody, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	c.count("ok")
	return respBody, nil
}

func (c *apiClient) count(status string) {
	if c.metrics != nil {
		c.metrics.UpstreamRequestTotal.WithLabelValues(c.provider, status).Inc()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
