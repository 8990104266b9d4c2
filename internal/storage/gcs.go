package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/wildmind/studio-api/internal/config"
)

const firebaseDownloadBase = "https://firebasestorage.googleapis.com/v0/b"

// GCSStore implements BlobStore on a Google Cloud Storage bucket. Firebase
// Storage buckets are GCS buckets, so legacy Firebase URLs resolve here too.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	publicURL string
}

func NewGCSStore(ctx context.Context, cfg *config.GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("GCS bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s/o", firebaseDownloadBase, cfg.Bucket)
	}

	return &GCSStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS upload: %w", err)
	}

	return s.GetPublicURL(key), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}

func (s *GCSStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// GetPublicURL returns a Firebase-style download URL unless a public base is configured.
func (s *GCSStore) GetPublicURL(key string) string {
	u := joinPublicURL(s.publicURL, key)
	if strings.HasPrefix(s.publicURL, firebaseDownloadBase) {
		u += "?alt=media"
	}
	return u
}

func (s *GCSStore) Owns(rawURL string) bool {
	if strings.HasPrefix(rawURL, s.publicURL+"/") {
		return true
	}
	// legacy records may use either Firebase host form
	return strings.Contains(rawURL, "firebasestorage.googleapis.com") &&
		strings.Contains(rawURL, "/b/"+s.bucket+"/")
}
