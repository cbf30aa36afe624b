// Package shipment aggregates multi-leg freight shipments into distance,
// cost and emissions totals.
package shipment

import (
	"errors"
	"fmt"
	"time"

	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/geo"
	"github.com/freightledger/freightledger/internal/goods"
)

// ErrShipmentNotFound is returned when a shipment doesn't exist.
var ErrShipmentNotFound = errors.New("shipment not found")

// Location kinds.
const (
	KindGeneral        = "general"
	KindAirport        = "airport"
	KindPort           = "port"
	KindRailwayStation = "railway_station"
)

// Location is a named point on the globe.
type Location struct {
	Address   string  `json:"address" yaml:"address"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Kind      string  `json:"type" yaml:"type"`
}

// Point returns the location's coordinate.
func (l Location) Point() geo.Point {
	return geo.Point{Lat: l.Latitude, Lon: l.Longitude}
}

// WithDefaults fills an empty kind with general.
func (l Location) WithDefaults() Location {
	if l.Kind == "" {
		l.Kind = KindGeneral
	}
	return l
}

// CostType selects how a leg's cost value is applied.
type CostType string

// Cost types.
const (
	CostTypePerKg  CostType = "per_kg"
	CostTypePerTon CostType = "per_ton"
	CostTypeTotal  CostType = "total"
)

// Valid reports whether c is a known cost type.
func (c CostType) Valid() bool {
	switch c {
	case CostTypePerKg, CostTypePerTon, CostTypeTotal:
		return true
	}
	return false
}

// LegRequest describes one leg of a shipment to be created.
type LegRequest struct {
	From        Location `json:"from_location" yaml:"from_location"`
	To          Location `json:"to_location" yaml:"to_location"`
	Mode        string   `json:"transport_mode" yaml:"transport_mode"`
	VehicleType string   `json:"vehicle_type" yaml:"vehicle_type"`
	CostType    CostType `json:"cost_type" yaml:"cost_type"`
	CostValue   float64  `json:"cost_value" yaml:"cost_value"`

	// ManualDistance overrides distance resolution when positive.
	ManualDistance *float64 `json:"manual_distance,omitempty" yaml:"manual_distance,omitempty"`
}

// CreateRequest is the input for creating a shipment.
type CreateRequest struct {
	Good goods.Good   `json:"good" yaml:"good"`
	Legs []LegRequest `json:"transport_legs" yaml:"transport_legs"`
}

// Leg is a computed transport leg. Legs are never mutated after creation.
type Leg struct {
	ID             string          `json:"id"`
	From           Location        `json:"from_location"`
	To             Location        `json:"to_location"`
	Mode           distance.Mode   `json:"transport_mode"`
	VehicleType    string          `json:"vehicle_type"`
	DistanceKm     float64         `json:"distance_km"`
	DistanceMethod distance.Method `json:"distance_method"`
	CostType       CostType        `json:"cost_type"`
	CostValue      float64         `json:"cost_value"`
	ManualDistance bool            `json:"manual_distance"`
	Cost           float64         `json:"cost"`
	EmissionsKg    float64         `json:"emissions_kg"`
	FactorFound    bool            `json:"emission_factor_found"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Shipment is a fully computed multi-leg shipment.
type Shipment struct {
	ID             string     `json:"id"`
	Good           goods.Good `json:"good"`
	Legs           []Leg      `json:"transport_legs"`
	TotalDistance  float64    `json:"total_distance"`
	TotalCost      float64    `json:"total_cost"`
	TotalEmissions float64    `json:"total_emissions"`

	UpstreamEmissions     float64 `json:"upstream_emissions"`
	DownstreamEmissions   float64 `json:"downstream_emissions"`
	CompanyOwnedEmissions float64 `json:"company_owned_emissions"`
	UpstreamCost          float64 `json:"upstream_cost"`
	DownstreamCost        float64 `json:"downstream_cost"`
	CompanyOwnedCost      float64 `json:"company_owned_cost"`

	CreatedAt time.Time `json:"created_at"`
}

// CategoryTotals returns the cost and emissions attributed to a category.
func (s *Shipment) CategoryTotals(c goods.Category) (cost, emissions float64) {
	switch c {
	case goods.CategoryUpstream:
		return s.UpstreamCost, s.UpstreamEmissions
	case goods.CategoryDownstream:
		return s.DownstreamCost, s.DownstreamEmissions
	case goods.CategoryCompanyOwned:
		return s.CompanyOwnedCost, s.CompanyOwnedEmissions
	}
	return 0, 0
}

// CreationError reports why a shipment could not be created. Nothing is
// persisted when it is returned.
type CreationError struct {
	// Leg is the index of the failing leg, or -1 when the failure is not
	// specific to one leg.
	Leg   int
	Cause error
}

func (e *CreationError) Error() string {
	if e.Leg >= 0 {
		return fmt.Sprintf("creating shipment: leg %d: %v", e.Leg, e.Cause)
	}
	return fmt.Sprintf("creating shipment: %v", e.Cause)
}

func (e *CreationError) Unwrap() error {
	return e.Cause
}
