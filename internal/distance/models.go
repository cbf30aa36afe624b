// Package distance resolves the length of a freight leg for each transport
// mode, degrading from routing providers to analytic estimates.
package distance

import (
	"errors"
	"fmt"
)

// Mode is a transport mode.
type Mode string

// Supported transport modes.
const (
	ModeRoad  Mode = "road"
	ModeRail  Mode = "rail"
	ModeAir   Mode = "air"
	ModeWater Mode = "water"
)

// Modes lists the supported transport modes.
var Modes = []Mode{ModeRoad, ModeRail, ModeAir, ModeWater}

// Valid reports whether m is a supported transport mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeRoad, ModeRail, ModeAir, ModeWater:
		return true
	}
	return false
}

// ParseMode validates a transport mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", &InvalidModeError{Mode: s}
	}
	return m, nil
}

// Method records which strategy produced a distance.
type Method string

// Distance methods.
const (
	MethodManual         Method = "manual"
	MethodDrivingAPI     Method = "driving_api"
	MethodRailDirections Method = "rail_directions"
	MethodRailMatrix     Method = "rail_matrix"
	MethodSeaRoute       Method = "sea_route"
	MethodGeodesic       Method = "geodesic"
	MethodGeodesicRail   Method = "geodesic_rail"
	MethodGeodesicSea    Method = "geodesic_sea"
)

// Sinuosity factors applied to great-circle distances when no provider
// route is available.
const (
	RailSinuosity = 1.25
	SeaSinuosity  = 1.4
)

// ErrInvalidMode is returned for transport modes other than road, rail, air and water.
var ErrInvalidMode = errors.New("invalid transport mode")

// InvalidModeError carries the rejected mode.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid transport mode %q: must be one of road, rail, air, water", e.Mode)
}

func (e *InvalidModeError) Unwrap() error {
	return ErrInvalidMode
}

// Result is a resolved leg distance.
type Result struct {
	DistanceKm float64 `json:"distance_km"`
	Method     Method  `json:"method"`

	// Provider names the routing provider, empty for analytic methods.
	Provider string `json:"provider,omitempty"`

	// OriginPort and DestinationPort name the ports a water leg was
	// snapped to.
	OriginPort      string `json:"origin_port,omitempty"`
	DestinationPort string `json:"destination_port,omitempty"`

	// Polyline is the encoded route geometry when the provider returned one.
	Polyline string `json:"route_polyline,omitempty"`
}
