package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/internal/storage"
)

type fakeFetcher struct {
	fetched []string
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*client.Download, error) {
	f.fetched = append(f.fetched, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	return &client.Download{Body: []byte("jpeg-bytes"), ContentType: "application/octet-stream"}, nil
}

func TestRehoster_UploadsIntoFolder(t *testing.T) {
	blobs := storage.NewMemoryStore("")
	r := NewRehoster(&fakeFetcher{}, blobs, metrics.NewNop())
	r.now = func() time.Time { return time.UnixMilli(1720000000000) }

	u, err := r.Rehost(context.Background(), "https://delivery.bfl.ai/x.png", storage.FolderGeneratedImages, "jewelry-classic.jpg")
	require.NoError(t, err)
	assert.True(t, blobs.Owns(u))
	assert.True(t, blobs.Has("generated-images/1720000000000_jewelry-classic.jpg"))

	key, err := storage.ObjectKeyFromURL(u)
	require.NoError(t, err)
	assert.Equal(t, "generated-images/1720000000000_jewelry-classic.jpg", key)
}

func TestRehoster_OwnedURLUnchanged(t *testing.T) {
	blobs := storage.NewMemoryStore("")
	f := &fakeFetcher{}
	r := NewRehoster(f, blobs, metrics.NewNop())

	owned := blobs.GetPublicURL("generated-images/1_a.jpg")
	u, err := r.Rehost(context.Background(), owned, storage.FolderGeneratedImages, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, owned, u)
	assert.Empty(t, f.fetched)
}

func TestRehoster_FetchError(t *testing.T) {
	r := NewRehoster(&fakeFetcher{err: errors.New("expired link")}, storage.NewMemoryStore(""), metrics.NewNop())
	_, err := r.Rehost(context.Background(), "https://delivery.bfl.ai/gone.png", storage.FolderGeneratedImages, "a.jpg")
	assert.ErrorContains(t, err, "expired link")
}
