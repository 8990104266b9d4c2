// Package storagetest provides BlobStore doubles for tests.
package storagetest

import (
	"context"
	"fmt"

	"github.com/wildmind/studio-api/internal/storage"
)

// FailingDeletes wraps a BlobStore so Delete fails for a fixed set of keys.
// Every other call goes to the wrapped store.
type FailingDeletes struct {
	storage.BlobStore
	keys map[string]bool
}

func FailDeletes(inner storage.BlobStore, keys ...string) *FailingDeletes {
	f := &FailingDeletes{BlobStore: inner, keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		f.keys[k] = true
	}
	return f
}

func (f *FailingDeletes) Delete(ctx context.Context, key string) error {
	if f.keys[key] {
		return fmt.Errorf("delete %s: simulated failure", key)
	}
	return f.BlobStore.Delete(ctx, key)
}
