package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmind/studio-api/internal/model"
)

func newRedisStore(t *testing.T) *RedisSetStore {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	t.Cleanup(func() { rdb.Close() })

	return NewRedisSetStore(rdb)
}

func repositories(t *testing.T) map[string]SetRepository {
	repos := map[string]SetRepository{"memory": NewMemorySetStore()}
	if !testing.Short() {
		rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		rdb.Close()
		if err == nil {
			repos["redis"] = newRedisStore(t)
		}
	}
	return repos
}

func sampleSet(ts time.Time, urls ...string) *model.GeneratedSet {
	set := &model.GeneratedSet{
		Category:      model.CategoryJewelry,
		OriginalImage: "https://example.com/ring.png",
		UserPrompt:    "gold ring with emerald",
		ItemType:      "ring",
		Model:         "flux-kontext-pro",
		Timestamp:     ts,
	}
	for i, u := range urls {
		set.GeneratedImages = append(set.GeneratedImages, model.GeneratedImage{
			ID:   string(rune('a' + i)),
			URL:  u,
			Type: model.ShotOrder[i%len(model.ShotOrder)],
		})
	}
	return set
}

func TestSetRepository_SaveGetDelete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			set := sampleSet(time.Time{}, "https://cdn/1.png", "https://cdn/2.png")

			require.NoError(t, repo.Save(ctx, set))
			assert.NotEmpty(t, set.ID)
			assert.False(t, set.Timestamp.IsZero())

			got, err := repo.Get(ctx, set.ID)
			require.NoError(t, err)
			assert.Equal(t, set.ImageURLs(), got.ImageURLs())
			assert.Equal(t, model.CategoryJewelry, got.Category)

			require.NoError(t, repo.Delete(ctx, set.ID))
			_, err = repo.Get(ctx, set.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, repo.Delete(ctx, set.ID), ErrNotFound)
		})
	}
}

func TestSetRepository_ListNewestFirst(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

			older := sampleSet(base, "https://cdn/old.png")
			newer := sampleSet(base.Add(time.Hour), "https://cdn/new.png")
			middle := sampleSet(base.Add(30*time.Minute), "https://cdn/mid.png")
			for _, s := range []*model.GeneratedSet{older, newer, middle} {
				require.NoError(t, repo.Save(ctx, s))
			}

			sets, err := repo.List(ctx, 10)
			require.NoError(t, err)
			require.Len(t, sets, 3)
			assert.Equal(t, newer.ID, sets[0].ID)
			assert.Equal(t, middle.ID, sets[1].ID)
			assert.Equal(t, older.ID, sets[2].ID)

			limited, err := repo.List(ctx, 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)
		})
	}
}

func TestSetRepository_Update(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			set := sampleSet(time.Now(), "https://bfl.ai/x.png")
			require.NoError(t, repo.Save(ctx, set))

			set.GeneratedImages[0].URL = "https://storage.example.com/generated-images/x.png"
			set.StoredInFirebase = true
			require.NoError(t, repo.Update(ctx, set))

			got, err := repo.Get(ctx, set.ID)
			require.NoError(t, err)
			assert.True(t, got.StoredInFirebase)
			assert.Equal(t, "https://storage.example.com/generated-images/x.png", got.GeneratedImages[0].URL)

			missing := sampleSet(time.Now())
			missing.ID = "does-not-exist"
			assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
		})
	}
}

func TestMemorySetStore_ReturnsCopies(t *testing.T) {
	repo := NewMemorySetStore()
	ctx := context.Background()
	set := sampleSet(time.Now(), "https://cdn/1.png")
	require.NoError(t, repo.Save(ctx, set))

	got, err := repo.Get(ctx, set.ID)
	require.NoError(t, err)
	got.GeneratedImages[0].URL = "mutated"

	again, err := repo.Get(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/1.png", again.GeneratedImages[0].URL)
}
