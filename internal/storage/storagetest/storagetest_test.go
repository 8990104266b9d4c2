package storagetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmind/studio-api/internal/storage"
)

func TestFailDeletes(t *testing.T) {
	ctx := context.Background()
	inner := storage.NewMemoryStore("")
	blobs := FailDeletes(inner, "a/2")

	_, err := blobs.Upload(ctx, "a/1", strings.NewReader("x"), "text/plain")
	require.NoError(t, err)
	_, err = blobs.Upload(ctx, "a/2", strings.NewReader("y"), "text/plain")
	require.NoError(t, err)

	assert.NoError(t, blobs.Delete(ctx, "a/1"))
	assert.Error(t, blobs.Delete(ctx, "a/2"))

	assert.False(t, inner.Has("a/1"))
	assert.True(t, inner.Has("a/2"))
}
