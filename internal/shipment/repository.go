package shipment

import (
	"context"
	"time"
)

// ListOptions contains options for listing shipments.
type ListOptions struct {
	// Since restricts the listing to shipments created at or after it.
	Since time.Time
	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// Repository defines the interface for shipment persistence. Shipments are
// written whole and never updated.
type Repository interface {
	// Create stores a fully computed shipment atomically.
	Create(ctx context.Context, s *Shipment) error

	// Get retrieves a shipment by ID.
	Get(ctx context.Context, id string) (*Shipment, error)

	// List returns shipments newest first.
	List(ctx context.Context, opts ListOptions) ([]*Shipment, error)

	// DeleteMany removes the given shipments and returns how many existed.
	DeleteMany(ctx context.Context, ids []string) (int, error)

	// DeleteAll removes every shipment and returns how many existed.
	DeleteAll(ctx context.Context) (int, error)
}
