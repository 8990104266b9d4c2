package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/storage"
)

// DefaultProxyHosts are the host suffixes the media proxy will fetch from
var DefaultProxyHosts = []string{
	"firebasestorage.googleapis.com",
	"storage.googleapis.com",
	"bfl.ai",
	"ngrok-free.app",
}

// MediaService streams allow-listed remote assets through the API
type MediaService struct {
	fetcher      client.Fetcher
	blobs        storage.BlobStore
	allowedHosts []string
}

func NewMediaService(fetcher client.Fetcher, blobs storage.BlobStore, allowedHosts []string) *MediaService {
	if len(allowedHosts) == 0 {
		allowedHosts = DefaultProxyHosts
	}
	return &MediaService{fetcher: fetcher, blobs: blobs, allowedHosts: allowedHosts}
}

// Allowed reports whether rawURL may be proxied. Owned storage URLs are
// always allowed; other hosts must match an allow-listed suffix.
func (s *MediaService) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return false
	}
	if s.blobs != nil && s.blobs.Owns(rawURL) {
		return true
	}

	host := strings.ToLower(u.Hostname())
	for _, allowed := range s.allowedHosts {
		allowed = strings.ToLower(strings.TrimPrefix(allowed, "."))
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Fetch downloads an allow-listed asset
func (s *MediaService) Fetch(ctx context.Context, rawURL string) (*client.Download, error) {
	if !s.Allowed(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, rawURL)
	}
	return s.fetcher.Fetch(ctx, rawURL)
}

// FileName derives a download file name from the URL path
func FileName(rawURL, fallback string) string {
	key, err := storage.ObjectKeyFromURL(rawURL)
	if err != nil {
		return fallback
	}
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	if key == "" {
		return fallback
	}
	return key
}
