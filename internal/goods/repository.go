package goods

import "context"

// Repository defines the interface for good persistence.
type Repository interface {
	// Create stores a new good.
	Create(ctx context.Context, g *Good) error

	// Get retrieves a good by ID.
	Get(ctx context.Context, id string) (*Good, error)

	// List returns all goods ordered by creation time.
	List(ctx context.Context) ([]*Good, error)
}
