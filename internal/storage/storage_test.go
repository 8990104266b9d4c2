package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "firebase download url",
			url:  "https://firebasestorage.googleapis.com/v0/b/app.appspot.com/o/generated-images%2F1700000000000_jewelry-classic.jpg?alt=media&token=abc",
			want: "generated-images/1700000000000_jewelry-classic.jpg",
		},
		{
			name: "r2 public url",
			url:  "https://cdn.example.com/generated-videos%2F1_video_f.mp4",
			want: "generated-videos/1_video_f.mp4",
		},
		{
			name: "fragment ignored",
			url:  "https://cdn.example.com/a%2Fb.png#x",
			want: "a/b.png",
		},
		{name: "empty", url: "", wantErr: true},
		{
			name: "trailing slash",
			url:  "https://cdn.example.com/a%2Fb.png/",
			want: "a/b.png",
		},
		{name: "no segment", url: "https://cdn.example.com/", wantErr: true},
		{name: "host only", url: "https://cdn.example.com", wantErr: true},
		{name: "host only with query", url: "https://cdn.example.com?alt=media", wantErr: true},
		{name: "bad escape", url: "https://cdn.example.com/a%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectKeyFromURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "generated-images/1700000000123_jewelry-classic-1.jpg",
		BuildKey(FolderGeneratedImages, "jewelry-classic-1.jpg", now))
	assert.Equal(t, "reference-images/1700000000123_my_ring_.png",
		BuildKey("/reference-images/", "my ring!.png", now))
	assert.Equal(t, "x/1700000000123_file", BuildKey("x", "???", now))
}

func TestPublicURLRoundTrip(t *testing.T) {
	store := NewMemoryStore("https://cdn.example.com/o")
	key := BuildKey(FolderGeneratedImages, "fashion-profile.jpg", time.Now())

	u, err := store.Upload(context.Background(), key, strings.NewReader("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, store.Owns(u))
	assert.False(t, store.Owns("https://delivery-us1.bfl.ai/result/sample.jpg"))

	got, err := ObjectKeyFromURL(u)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("")

	_, err := store.Upload(ctx, "a/1", strings.NewReader("x"), "text/plain")
	require.NoError(t, err)
	_, err = store.Upload(ctx, "a/2", strings.NewReader("y"), "text/plain")
	require.NoError(t, err)

	assert.NoError(t, store.Delete(ctx, "a/1"))
	assert.NoError(t, store.Delete(ctx, "a/missing"))

	keys, err := store.ListKeys(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/2"}, keys)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeFor("x.JPG"))
	assert.Equal(t, "video/mp4", ContentTypeFor("video_1.mp4"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("blob"))
}
