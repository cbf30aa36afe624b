// Package routing defines the external distance and geocoding providers used
// to resolve freight legs: driving distance, rail transit, sea routes and
// place lookup.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/freightledger/freightledger/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrNotConfigured indicates the provider has no API key or endpoint.
	ErrNotConfigured = errors.New("routing provider not configured")
)

// Coordinate represents a geographic point.
type Coordinate = geo.Point

// DrivingProvider returns road distances for trucks and cars.
type DrivingProvider interface {
	DrivingDistance(ctx context.Context, req DrivingRequest) (*DistanceResult, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// TransitProvider returns rail distances from public transit data.
type TransitProvider interface {
	// TransitDirections returns a rail itinerary. Legs without distance data
	// carry a nil DistanceMeters.
	TransitDirections(ctx context.Context, req TransitRequest) (*TransitRoute, error)
	// TransitDistance returns a single matrix distance for a train trip.
	TransitDistance(ctx context.Context, req TransitRequest) (*DistanceResult, error)
	Name() string
}

// SeaRouteProvider computes maritime routes between two coastal points.
type SeaRouteProvider interface {
	SeaRoute(ctx context.Context, origin, destination Coordinate) (*SeaRoute, error)
	Name() string
}

// Geocoder turns free text into places.
type Geocoder interface {
	// SearchPlaces runs a text search and returns candidate places.
	SearchPlaces(ctx context.Context, query string) ([]Place, error)
	// Geocode resolves an address to places.
	Geocode(ctx context.Context, address string) ([]Place, error)
	Name() string
}

// DrivingRequest is the request for a road distance.
type DrivingRequest struct {
	Origin      Coordinate
	Destination Coordinate
	AvoidTolls  bool
}

// TransitRequest is the request for a rail distance.
type TransitRequest struct {
	Origin      Coordinate
	Destination Coordinate
}

// DistanceResult is a provider-reported distance.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
	Provider        string
	FetchedAt       time.Time
}

// Km returns the distance in kilometers.
func (r *DistanceResult) Km() float64 {
	return float64(r.DistanceMeters) / 1000
}

// TransitRoute is a rail itinerary made of legs.
type TransitRoute struct {
	Legs      []RouteLeg
	Polyline  string // Encoded overview polyline (precision 5)
	Provider  string
	FetchedAt time.Time
}

// RouteLeg is one leg of a transit itinerary.
type RouteLeg struct {
	DistanceMeters *int
	Summary        string
}

// DistanceKm sums the legs that report a distance. The second value is
// false when no leg had distance data.
func (r *TransitRoute) DistanceKm() (float64, bool) {
	total := 0
	found := false
	for _, leg := range r.Legs {
		if leg.DistanceMeters == nil {
			continue
		}
		total += *leg.DistanceMeters
		found = true
	}
	return float64(total) / 1000, found
}

// SeaRoute is a maritime route between two points.
type SeaRoute struct {
	LengthKm    float64
	Coordinates []Coordinate
	Polyline    string
	Provider    string
	FetchedAt   time.Time
}

// Place is a geocoded location.
type Place struct {
	Address  string
	Location Coordinate
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
