package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wildmind/studio-api/pkg/httputil"
)

// MaxDownloadSize caps a single fetched asset
const MaxDownloadSize = 200 << 20

// Fetcher downloads remote assets
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Download, error)
}

// Download is a fetched remote asset
type Download struct {
	Body        []byte
	ContentType string
}

// Downloader fetches assets with retries on transient failures
type Downloader struct {
	client *httputil.RetryClient
}

func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Downloader{
		client: httputil.NewRetryClient(&http.Client{Timeout: timeout}, httputil.DefaultRetryConfig()),
	}
}

func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "WildMind-Studio/1.0")
	req.Header.Set("ngrok-skip-browser-warning", "true")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", truncate(rawURL, 120), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: "download", StatusCode: resp.StatusCode, Body: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > MaxDownloadSize {
		return nil, fmt.Errorf("asset exceeds %d bytes", MaxDownloadSize)
	}

	return &Download{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}
