package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/wildmind/studio-api/internal/config"
)

// Folders used for owned assets
const (
	FolderGeneratedImages = "generated-images"
	FolderGeneratedVideos = "generated-videos"
	FolderGeneratedMusic  = "generated-music"
	FolderReferenceImages = "reference-images"
)

var ErrNotOwned = errors.New("url does not point at owned storage")

// BlobStore defines the interface for object storage operations
type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	GetPublicURL(key string) string
	// Owns reports whether rawURL was produced by GetPublicURL of this store.
	Owns(rawURL string) bool
	Close() error
}

// New builds the configured blob store.
func New(ctx context.Context, cfg *config.StorageConfig) (BlobStore, error) {
	switch cfg.Provider {
	case "", "r2", "s3":
		return NewS3Store(ctx, &cfg.R2)
	case "gcs", "firebase":
		return NewGCSStore(ctx, &cfg.GCS)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// BuildKey returns folder/{millis}_{sanitized name}.
func BuildKey(folder, name string, now time.Time) string {
	clean := unsafeChars.ReplaceAllString(name, "_")
	clean = strings.Trim(clean, "_")
	if clean == "" {
		clean = "file"
	}
	return fmt.Sprintf("%s/%d_%s", strings.Trim(folder, "/"), now.UnixMilli(), clean)
}

// ObjectKeyFromURL reconstructs the storage key from a public URL. Public
// URLs carry the whole key as one escaped path segment, so the key is the
// decoded last segment of the path. The host is never part of the key.
func ObjectKeyFromURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	escaped := strings.TrimRight(u.EscapedPath(), "/")
	segment := escaped[strings.LastIndex(escaped, "/")+1:]
	if segment == "" {
		return "", fmt.Errorf("no path segment in %q", rawURL)
	}
	key, err := url.PathUnescape(segment)
	if err != nil {
		return "", fmt.Errorf("failed to decode key: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("empty key in %q", rawURL)
	}
	return key, nil
}

// joinPublicURL escapes the key into a single path segment.
func joinPublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(key)
}

// ContentTypeFor guesses a content type from a file name.
func ContentTypeFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(lower, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(lower, ".wav"):
		return "audio/wav"
	}
	return "application/octet-stream"
}
