package openrouteservice

import "github.com/freightledger/freightledger/internal/routing"

// directionsRequest is the body of POST /v2/directions/{profile}.
// Coordinates are GeoJSON ordered: [lon, lat].
type directionsRequest struct {
	Coordinates  [][2]float64    `json:"coordinates"`
	Options      *routingOptions `json:"options,omitempty"`
	Instructions bool            `json:"instructions"`
	Geometry     bool            `json:"geometry"`
	Units        string          `json:"units"`
}

type routingOptions struct {
	AvoidFeatures []string `json:"avoid_features,omitempty"`
}

func newDirectionsRequest(req routing.DrivingRequest) directionsRequest {
	body := directionsRequest{
		Coordinates: [][2]float64{
			{req.Origin.Lon, req.Origin.Lat},
			{req.Destination.Lon, req.Destination.Lat},
		},
		Units: "m",
	}
	if req.AvoidTolls {
		body.Options = &routingOptions{AvoidFeatures: []string{"tollways"}}
	}
	return body
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"summary"`
	} `json:"routes"`
}

// featureCollection is the Pelias GeoJSON returned by /geocode/search.
type featureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
			Name  string `json:"name"`
		} `json:"properties"`
	} `json:"features"`
}

// places converts up to limit features, skipping those without a point.
func (fc featureCollection) places(limit int) []routing.Place {
	out := make([]routing.Place, 0, min(limit, len(fc.Features)))
	for _, f := range fc.Features {
		if len(out) == limit {
			break
		}
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		address := f.Properties.Label
		if address == "" {
			address = f.Properties.Name
		}
		out = append(out, routing.Place{
			Address:  address,
			Location: routing.Coordinate{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]},
		})
	}
	return out
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ORS routing error codes.
const (
	codeInvalidParameter = 2003
	codeRouteNotFound    = 2009
	codePointNotFound    = 2010
)
