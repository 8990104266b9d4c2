package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoImageURL = errors.New("generation response contained no image url")

// ResultSource names the response field an image URL was taken from
type ResultSource string

const (
	SourceImageURL         ResultSource = "imageUrl"
	SourceImageURLs        ResultSource = "image_urls"
	SourceResultSample     ResultSource = "result.sample"
	SourceOriginalImageURL ResultSource = "originalImageUrl"
)

// GenerationResult is the single internal shape of a successful generation
type GenerationResult struct {
	URL    string
	URLs   []string
	Source ResultSource
}

// generationEnvelope is every success spelling seen from generation APIs
type generationEnvelope struct {
	Success   *bool    `json:"success,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Result    *struct {
		Sample string `json:"sample"`
	} `json:"result,omitempty"`
	OriginalImageURL string `json:"originalImageUrl,omitempty"`
	Error            string `json:"error,omitempty"`
}

// NormalizeGeneration decodes a generation response and picks the image URL,
// trying imageUrl, image_urls, result.sample and originalImageUrl in order.
func NormalizeGeneration(body []byte) (*GenerationResult, error) {
	var env generationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	return env.normalize()
}

func (e *generationEnvelope) normalize() (*GenerationResult, error) {
	if e.Success != nil && !*e.Success {
		if e.Error != "" {
			return nil, fmt.Errorf("generation failed: %s", e.Error)
		}
		return nil, errors.New("generation failed")
	}

	var urls []string
	for _, u := range e.ImageURLs {
		if strings.TrimSpace(u) != "" {
			urls = append(urls, u)
		}
	}

	switch {
	case e.ImageURL != "":
		return &GenerationResult{URL: e.ImageURL, URLs: []string{e.ImageURL}, Source: SourceImageURL}, nil
	case len(urls) > 0:
		return &GenerationResult{URL: urls[0], URLs: urls, Source: SourceImageURLs}, nil
	case e.Result != nil && e.Result.Sample != "":
		return &GenerationResult{URL: e.Result.Sample, URLs: []string{e.Result.Sample}, Source: SourceResultSample}, nil
	case e.OriginalImageURL != "":
		return &GenerationResult{URL: e.OriginalImageURL, URLs: []string{e.OriginalImageURL}, Source: SourceOriginalImageURL}, nil
	}

	if e.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoImageURL, e.Error)
	}
	return nil, ErrNoImageURL
}
