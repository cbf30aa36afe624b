// Package emissions manages the emission factor catalog and computes
// per-leg greenhouse-gas emissions.
package emissions

import (
	"errors"
	"time"

	"github.com/freightledger/freightledger/internal/distance"
)

// Repository errors.
var (
	ErrFactorNotFound  = errors.New("emission factor not found")
	ErrDuplicateFactor = errors.New("emission factor already exists for this transport mode and vehicle type")
)

// Factor units.
const (
	UnitKgPerTonneKm = "kgCO2/tonne-km"
	UnitGPerKgKm     = "gCO2/kg-km"
)

// Factor is an emission factor for a (transport mode, vehicle type) pair.
type Factor struct {
	ID          string        `json:"id"`
	Mode        distance.Mode `json:"transport_mode"`
	VehicleType string        `json:"vehicle_type"`
	Value       float64       `json:"emission_factor"`
	Unit        string        `json:"unit"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// FactorInput holds the writable fields of a Factor.
type FactorInput struct {
	Mode        string
	VehicleType string
	Value       float64
	Unit        string
}

// Calculate returns kg CO2 for moving massKg over distanceKm with factor f.
// Units other than gCO2/kg-km are read as kgCO2/tonne-km.
func Calculate(f *Factor, massKg, distanceKm float64) float64 {
	if f == nil {
		return 0
	}
	if f.Unit == UnitGPerKgKm {
		return (f.Value / 1000) * massKg * distanceKm
	}
	return f.Value * (massKg / 1000) * distanceKm
}

type factorKey struct {
	mode    distance.Mode
	vehicle string
}

// Catalog is an immutable snapshot of the factor catalog.
type Catalog struct {
	factors []*Factor
	byKey   map[factorKey]*Factor
}

// NewCatalog builds a snapshot. When two factors share a key the first wins.
func NewCatalog(factors []*Factor) *Catalog {
	c := &Catalog{
		factors: make([]*Factor, 0, len(factors)),
		byKey:   make(map[factorKey]*Factor, len(factors)),
	}
	for _, f := range factors {
		cpy := *f
		c.factors = append(c.factors, &cpy)
		k := factorKey{mode: f.Mode, vehicle: f.VehicleType}
		if _, exists := c.byKey[k]; !exists {
			c.byKey[k] = &cpy
		}
	}
	return c
}

// Lookup returns the factor for a mode and vehicle type.
func (c *Catalog) Lookup(mode distance.Mode, vehicleType string) (*Factor, bool) {
	f, ok := c.byKey[factorKey{mode: mode, vehicle: vehicleType}]
	return f, ok
}

// LegEmissions computes emissions for a leg. found is false when no factor
// matches, in which case the emissions are zero.
func (c *Catalog) LegEmissions(mode distance.Mode, vehicleType string, massKg, distanceKm float64) (kg float64, found bool) {
	f, ok := c.Lookup(mode, vehicleType)
	if !ok {
		return 0, false
	}
	return Calculate(f, massKg, distanceKm), true
}

// Len returns the number of factors in the snapshot.
func (c *Catalog) Len() int {
	return len(c.factors)
}
