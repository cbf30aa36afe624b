package shipment

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and the offline CLI.
type InMemoryRepository struct {
	mu        sync.RWMutex
	shipments map[string]*Shipment
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory shipment repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		shipments: make(map[string]*Shipment),
	}
}

// Create stores a shipment.
func (r *InMemoryRepository) Create(_ context.Context, s *Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shipments[s.ID] = clone(s)
	return nil
}

// Get retrieves a shipment by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shipments[id]
	if !ok {
		return nil, ErrShipmentNotFound
	}
	return clone(s), nil
}

// List returns shipments newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]*Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Shipment, 0, len(r.shipments))
	for _, s := range r.shipments {
		if !opts.Since.IsZero() && s.CreatedAt.Before(opts.Since) {
			continue
		}
		out = append(out, clone(s))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// DeleteMany removes the given shipments.
func (r *InMemoryRepository) DeleteMany(_ context.Context, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := r.shipments[id]; ok {
			delete(r.shipments, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteAll removes every shipment.
func (r *InMemoryRepository) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.shipments)
	r.shipments = make(map[string]*Shipment)
	return n, nil
}

func clone(s *Shipment) *Shipment {
	cpy := *s
	cpy.Legs = append([]Leg(nil), s.Legs...)
	return &cpy
}
