package goods

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	goods map[string]*Good
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory goods repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		goods: make(map[string]*Good),
	}
}

// Create stores a new good.
func (r *InMemoryRepository) Create(_ context.Context, g *Good) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *g
	r.goods[g.ID] = &cpy
	return nil
}

// Get retrieves a good by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Good, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.goods[id]
	if !ok {
		return nil, ErrGoodNotFound
	}
	cpy := *g
	return &cpy, nil
}

// List returns all goods ordered by creation time.
func (r *InMemoryRepository) List(_ context.Context) ([]*Good, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Good, 0, len(r.goods))
	for _, g := range r.goods {
		cpy := *g
		out = append(out, &cpy)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
