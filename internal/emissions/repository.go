package emissions

import (
	"context"

	"github.com/freightledger/freightledger/internal/distance"
)

// Repository defines the interface for emission factor persistence.
// Implementations enforce uniqueness of (mode, vehicle type).
type Repository interface {
	// List returns all factors ordered by creation time.
	List(ctx context.Context) ([]*Factor, error)

	// ListByMode returns the factors for one transport mode.
	ListByMode(ctx context.Context, mode distance.Mode) ([]*Factor, error)

	// Get retrieves a factor by ID.
	Get(ctx context.Context, id string) (*Factor, error)

	// Create stores a new factor. Returns ErrDuplicateFactor on a key clash.
	Create(ctx context.Context, f *Factor) error

	// CreateMany stores factors in one transaction.
	CreateMany(ctx context.Context, factors []*Factor) error

	// Update replaces an existing factor.
	Update(ctx context.Context, f *Factor) error

	// Delete removes a factor by ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored factors.
	Count(ctx context.Context) (int, error)
}
