package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process BlobStore used when no bucket is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	publicURL string
}

func NewMemoryStore(publicURL string) *MemoryStore {
	if publicURL == "" {
		publicURL = "https://storage.local/o"
	}
	return &MemoryStore{
		objects:   make(map[string][]byte),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (m *MemoryStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return m.GetPublicURL(key), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) GetPublicURL(key string) string {
	return joinPublicURL(m.publicURL, key)
}

func (m *MemoryStore) Owns(rawURL string) bool {
	return strings.HasPrefix(rawURL, m.publicURL+"/")
}

func (m *MemoryStore) Close() error { return nil }

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
