package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/metrics"
)

const ProviderBackend = "backend"

// TextToImage generates images on a self-hosted diffusion backend
type TextToImage interface {
	GenerateImages(ctx context.Context, modelKey string, req *BackendImageRequest) (*GenerationResult, error)
}

// BackendClient calls the tunneled Stable Diffusion / Flux Dev backends
type BackendClient struct {
	api      apiClient
	breakers *Breakers
}

// BackendImageRequest is the body of POST {backend}/{model}/generate
type BackendImageRequest struct {
	Prompt    string `json:"prompt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	NumImages int    `json:"num_images"`
}

func NewBackendClient(cfg *config.BackendConfig, breakers *Breakers, m *metrics.Metrics) *BackendClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	api := newAPIClient(ProviderBackend, cfg.BaseURL, timeout, m)
	api.authorize = func(r *http.Request) { r.Header.Set("ngrok-skip-browser-warning", "true") }

	return &BackendClient{api: api, breakers: breakers}
}

// IsConfigured returns true if the client has valid configuration
func (c *BackendClient) IsConfigured() bool {
	return c.api.baseURL != ""
}

// GenerateImages runs one generation and normalizes the response
func (c *BackendClient) GenerateImages(ctx context.Context, modelKey string, req *BackendImageRequest) (*GenerationResult, error) {
	if req.NumImages <= 0 {
		req.NumImages = 1
	}

	started := time.Now()
	var body []byte
	err := c.breakers.Execute(ProviderBackend, func() error {
		var err error
		body, err = c.api.post(ctx, "/"+modelKey+"/generate", req, nil)
		return err
	})
	if c.api.metrics != nil {
		c.api.metrics.GenerationDuration.WithLabelValues(ProviderBackend).Observe(time.Since(started).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("backend %s generation failed: %w", modelKey, err)
	}

	return NormalizeGeneration(body)
}
