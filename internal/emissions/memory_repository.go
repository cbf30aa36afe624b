package emissions

import (
	"context"
	"sort"
	"sync"

	"github.com/freightledger/freightledger/internal/distance"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and the offline CLI.
type InMemoryRepository struct {
	mu      sync.RWMutex
	factors map[string]*Factor
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory factor repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		factors: make(map[string]*Factor),
	}
}

// List returns all factors ordered by creation time.
func (r *InMemoryRepository) List(_ context.Context) ([]*Factor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(*Factor) bool { return true }), nil
}

// ListByMode returns the factors for one transport mode.
func (r *InMemoryRepository) ListByMode(_ context.Context, mode distance.Mode) ([]*Factor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(f *Factor) bool { return f.Mode == mode }), nil
}

func (r *InMemoryRepository) sorted(keep func(*Factor) bool) []*Factor {
	out := make([]*Factor, 0, len(r.factors))
	for _, f := range r.factors {
		if keep(f) {
			cpy := *f
			out = append(out, &cpy)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Get retrieves a factor by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Factor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factors[id]
	if !ok {
		return nil, ErrFactorNotFound
	}
	cpy := *f
	return &cpy, nil
}

// Create stores a new factor.
func (r *InMemoryRepository) Create(_ context.Context, f *Factor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(f) {
		return ErrDuplicateFactor
	}
	cpy := *f
	r.factors[f.ID] = &cpy
	return nil
}

// CreateMany stores all factors or none.
func (r *InMemoryRepository) CreateMany(_ context.Context, factors []*Factor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[factorKey]bool, len(factors))
	for _, f := range factors {
		k := factorKey{mode: f.Mode, vehicle: f.VehicleType}
		if seen[k] || r.conflicts(f) {
			return ErrDuplicateFactor
		}
		seen[k] = true
	}
	for _, f := range factors {
		cpy := *f
		r.factors[f.ID] = &cpy
	}
	return nil
}

// Update replaces an existing factor.
func (r *InMemoryRepository) Update(_ context.Context, f *Factor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factors[f.ID]; !ok {
		return ErrFactorNotFound
	}
	if r.conflicts(f) {
		return ErrDuplicateFactor
	}
	cpy := *f
	r.factors[f.ID] = &cpy
	return nil
}

// Delete removes a factor by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factors[id]; !ok {
		return ErrFactorNotFound
	}
	delete(r.factors, id)
	return nil
}

// Count returns the number of stored factors.
func (r *InMemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factors), nil
}

// conflicts reports whether another factor already uses f's key.
func (r *InMemoryRepository) conflicts(f *Factor) bool {
	for id, existing := range r.factors {
		if id != f.ID && existing.Mode == f.Mode && existing.VehicleType == f.VehicleType {
			return true
		}
	}
	return false
}
