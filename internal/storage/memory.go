package storage

import (
	"context"
	"sort"
	"spyosint/internal/models"
	"sync"
)

// Memory process-local repository
type Memory struct {
	mu    sync.RWMutex
	items map[string]models.Investigation
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]models.Investigation)}
}

func (m *Memory) Save(_ context.Context, inv *models.Investigation) error {
	prepare(inv)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[inv.ID] = clone(*inv)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.Investigation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(inv)
	return &out, nil
}

func (m *Memory) List(_ context.Context) ([]models.Investigation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Investigation, 0, len(m.items))
	for _, inv := range m.items {
		out = append(out, clone(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) Close() {}

// clone copies the result list so callers cannot reorder stored state.
// Results themselves are never mutated after normalization.
func clone(inv models.Investigation) models.Investigation {
	results := make(models.ResultList, len(inv.Results))
	copy(results, inv.Results)
	inv.Results = results
	return inv
}
