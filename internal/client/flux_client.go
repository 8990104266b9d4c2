package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/metrics"
)

const ProviderFlux = "flux"

const (
	FluxModelPro = "flux-kontext-pro"
	FluxModelMax = "flux-kontext-max"
)

var (
	ErrFluxModerated = errors.New("flux request moderated")
	ErrFluxTimeout   = errors.New("flux generation timed out")

	aspectRatioPattern = regexp.MustCompile(`^\d+:\d+$`)
)

// ImageGenerator produces one image from a prompt and reference images
type ImageGenerator interface {
	Generate(ctx context.Context, req *FluxRequest) (*GenerationResult, error)
}

// FluxClient talks to the BFL Flux Kontext API
type FluxClient struct {
	api          apiClient
	apiKey       string
	defaultModel string
	pollInterval time.Duration
	pollAttempts int
	breakers     *Breakers
}

// FluxRequest is the submit body for Flux Kontext endpoints
type FluxRequest struct {
	Model               string `json:"-"`
	Prompt              string `json:"prompt"`
	InputImage          string `json:"input_image,omitempty"`
	ModelReferenceImage string `json:"model_reference_image,omitempty"`
	AspectRatio         string `json:"aspect_ratio,omitempty"`
	OutputFormat        string `json:"output_format,omitempty"`
	PromptUpsampling    bool   `json:"prompt_upsampling"`
	SafetyTolerance     int    `json:"safety_tolerance"`
	Seed                *int   `json:"seed,omitempty"`
}

type fluxSubmitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

type fluxPollResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

// NewFluxClient creates a new Flux API client
func NewFluxClient(cfg *config.FluxConfig, gen *config.GenerationConfig, breakers *Breakers, m *metrics.Metrics) *FluxClient {
	api := newAPIClient(ProviderFlux, cfg.BaseURL, 60*time.Second, m)
	apiKey := cfg.APIKey
	api.authorize = func(r *http.Request) { r.Header.Set("x-key", apiKey) }

	model := cfg.DefaultModel
	if model == "" {
		model = FluxModelPro
	}

	return &FluxClient{
		api:          api,
		apiKey:       apiKey,
		defaultModel: model,
		pollInterval: gen.FluxPollInterval,
		pollAttempts: gen.FluxPollAttempts,
		breakers:     breakers,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *FluxClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Validate checks request fields the API rejects.
func (r *FluxRequest) Validate() error {
	if r.Prompt == "" {
		return errors.New("prompt is required")
	}
	if r.SafetyTolerance < 0 || r.SafetyTolerance > 6 {
		return fmt.Errorf("safety_tolerance must be between 0 and 6, got %d", r.SafetyTolerance)
	}
	if r.AspectRatio != "" && !aspectRatioPattern.MatchString(r.AspectRatio) {
		return fmt.Errorf("invalid aspect_ratio %q", r.AspectRatio)
	}
	return nil
}

// Generate submits a request and polls until the image is ready.
func (c *FluxClient) Generate(ctx context.Context, req *FluxRequest) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model != FluxModelMax {
		model = c.defaultModel
	}

	started := time.Now()
	var submitted fluxSubmitResponse
	err := c.breakers.Execute(ProviderFlux, func() error {
		_, err := c.api.post(ctx, "/"+model, req, &submitted)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("flux submit failed: %w", err)
	}
	if submitted.PollingURL == "" {
		return nil, fmt.Errorf("flux submit returned no polling_url (id=%s)", submitted.ID)
	}

	result, err := c.poll(ctx, submitted.PollingURL)
	if c.api.metrics != nil {
		c.api.metrics.GenerationDuration.WithLabelValues(ProviderFlux).Observe(time.Since(started).Seconds())
	}
	return result, err
}

// poll checks the polling URL until Ready, a failure status, or the attempt limit.
func (c *FluxClient) poll(ctx context.Context, pollingURL string) (*GenerationResult, error) {
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return nil, err
		}

		var status fluxPollResponse
		if _, err := c.api.get(ctx, pollingURL, &status); err != nil {
			c.api.logger.WithError(err).Warnf("Poll #%d failed", attempt)
			continue
		}

		c.api.logger.Debugf("Poll #%d status: %s", attempt, status.Status)

		switch status.Status {
		case "Ready":
			env := generationEnvelope{Result: status.Result}
			return env.normalize()
		case "Request Moderated", "Content Moderated":
			return nil, ErrFluxModerated
		case "Error", "Failed":
			return nil, fmt.Errorf("flux generation failed: %s", status.Status)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrFluxTimeout, c.pollAttempts)
}
