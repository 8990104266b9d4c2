package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/internal/storage"
)

// AssetRehoster copies a provider asset into owned storage
type AssetRehoster interface {
	Rehost(ctx context.Context, srcURL, folder, name string) (string, error)
}

// Rehoster downloads remote assets and uploads them to the blob store
type Rehoster struct {
	fetcher client.Fetcher
	blobs   storage.BlobStore
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *log.Entry
}

func NewRehoster(fetcher client.Fetcher, blobs storage.BlobStore, m *metrics.Metrics) *Rehoster {
	return &Rehoster{
		fetcher: fetcher,
		blobs:   blobs,
		metrics: m,
		now:     time.Now,
		logger:  log.WithField("component", "Rehoster"),
	}
}

// Rehost returns the owned URL of srcURL. URLs already in owned storage are
// returned unchanged.
func (r *Rehoster) Rehost(ctx context.Context, srcURL, folder, name string) (string, error) {
	if r.blobs.Owns(srcURL) {
		return srcURL, nil
	}

	dl, err := r.fetcher.Fetch(ctx, srcURL)
	if err != nil {
		r.count("fetch_error")
		return "", fmt.Errorf("failed to download asset: %w", err)
	}

	contentType := dl.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(name)
	}

	key := storage.BuildKey(folder, name, r.now())
	publicURL, err := r.blobs.Upload(ctx, key, bytes.NewReader(dl.Body), contentType)
	if err != nil {
		r.count("error")
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	r.count("ok")
	r.logger.WithFields(log.Fields{"key": key, "bytes": len(dl.Body)}).Debug("asset re-hosted")
	return publicURL, nil
}

func (r *Rehoster) count(status string) {
	if r.metrics != nil {
		r.metrics.BlobOperationsTotal.WithLabelValues("upload", status).Inc()
	}
}
