package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wildmind/studio-api/internal/model"
)

var ErrNotFound = errors.New("generated set not found")

const (
	setKeyPrefix = "generated_set:"
	setIndexKey  = "generated_sets:by_time"

	DefaultListLimit = 50
)

// SetRepository persists GeneratedSet documents
type SetRepository interface {
	Save(ctx context.Context, set *model.GeneratedSet) error
	Get(ctx context.Context, id string) (*model.GeneratedSet, error)
	List(ctx context.Context, limit int) ([]model.GeneratedSet, error)
	Update(ctx context.Context, set *model.GeneratedSet) error
	Delete(ctx context.Context, id string) error
}

// RedisSetStore keeps each set as a JSON string and indexes ids in a sorted
// set scored by timestamp.
type RedisSetStore struct {
	redis *redis.Client
}

func NewRedisSetStore(redisClient *redis.Client) *RedisSetStore {
	return &RedisSetStore{redis: redisClient}
}

// Save assigns an id and timestamp when missing and writes the document.
func (s *RedisSetStore) Save(ctx context.Context, set *model.GeneratedSet) error {
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	if set.Timestamp.IsZero() {
		set.Timestamp = time.Now().UTC()
	}
	return s.write(ctx, set)
}

func (s *RedisSetStore) Get(ctx context.Context, id string) (*model.GeneratedSet, error) {
	data, err := s.redis.Get(ctx, setKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var set model.GeneratedSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to decode set %s: %w", id, err)
	}
	return &set, nil
}

// List returns up to limit sets, newest first. Index entries whose document
// is gone are skipped.
func (s *RedisSetStore) List(ctx context.Context, limit int) ([]model.GeneratedSet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ids, err := s.redis.ZRevRange(ctx, setIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.GeneratedSet{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = setKeyPrefix + id
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sets := make([]model.GeneratedSet, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var set model.GeneratedSet
		if err := json.Unmarshal([]byte(raw), &set); err != nil {
			continue
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// Update overwrites an existing set.
func (s *RedisSetStore) Update(ctx context.Context, set *model.GeneratedSet) error {
	exists, err := s.redis.Exists(ctx, setKeyPrefix+set.ID).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.write(ctx, set)
}

func (s *RedisSetStore) Delete(ctx context.Context, id string) error {
	pipe := s.redis.TxPipeline()
	del := pipe.Del(ctx, setKeyPrefix+id)
	pipe.ZRem(ctx, setIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisSetStore) write(ctx context.Context, set *model.GeneratedSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, setKeyPrefix+set.ID, data, 0)
	pipe.ZAdd(ctx, setIndexKey, redis.Z{
		Score:  float64(set.Timestamp.UnixMilli()),
		Member: set.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}
