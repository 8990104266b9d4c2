package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wildmind/studio-api/internal/model"
)

// MemorySetStore is a process-local SetRepository for tests.
type MemorySetStore struct {
	mu   sync.RWMutex
	sets map[string]model.GeneratedSet
}

func NewMemorySetStore() *MemorySetStore {
	return &MemorySetStore{sets: make(map[string]model.GeneratedSet)}
}

func (m *MemorySetStore) Save(_ context.Context, set *model.GeneratedSet) error {
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	if set.Timestamp.IsZero() {
		set.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	m.sets[set.ID] = cloneSet(set)
	m.mu.Unlock()
	return nil
}

func (m *MemorySetStore) Get(_ context.Context, id string) (*model.GeneratedSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSet(&set)
	return &out, nil
}

func (m *MemorySetStore) List(_ context.Context, limit int) ([]model.GeneratedSet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	sets := make([]model.GeneratedSet, 0, len(m.sets))
	for _, s := range m.sets {
		sets = append(sets, cloneSet(&s))
	}
	m.mu.RUnlock()

	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].Timestamp.After(sets[j].Timestamp)
	})
	if len(sets) > limit {
		sets = sets[:limit]
	}
	return sets, nil
}

func (m *MemorySetStore) Update(_ context.Context, set *model.GeneratedSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[set.ID]; !ok {
		return ErrNotFound
	}
	m.sets[set.ID] = cloneSet(set)
	return nil
}

func (m *MemorySetStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[id]; !ok {
		return ErrNotFound
	}
	delete(m.sets, id)
	return nil
}

// Len returns the number of stored sets.
func (m *MemorySetStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sets)
}

func cloneSet(s *model.GeneratedSet) model.GeneratedSet {
	out := *s
	out.GeneratedImages = append([]model.GeneratedImage(nil), s.GeneratedImages...)
	return out
}
