// Package location searches for shipment endpoints: airports from an embedded
// catalog, everything else through a geocoding provider.
package location

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/routing"
)

// Location kinds accepted by Search.
const (
	KindGeneral        = "general"
	KindAirport        = "airport"
	KindPort           = "port"
	KindRailwayStation = "railway_station"
)

// Minimum query lengths.
const (
	MinQueryLength        = 2
	MinAirportQueryLength = 1
)

// MaxPlaceResults caps a geocoded search.
const MaxPlaceResults = 6

// ErrQueryTooShort is returned for queries below the minimum length.
var ErrQueryTooShort = errors.New("search query is too short")

// Match is a location search result.
type Match struct {
	Address   string   `json:"address"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Type      string   `json:"type"`
	Airport   *Airport `json:"airport,omitempty"`
	Score     int      `json:"search_score,omitempty"`
}

// ServiceConfig holds configuration for the location service.
type ServiceConfig struct {
	Geocoder routing.Geocoder // Optional
	Airports *AirportCatalog
	Logger   zerolog.Logger
}

// Service resolves free-text queries to locations.
type Service struct {
	geocoder routing.Geocoder
	airports *AirportCatalog
	logger   zerolog.Logger
}

// NewService creates a new location service.
func NewService(cfg ServiceConfig) *Service {
	airports := cfg.Airports
	if airports == nil {
		airports = NewAirportCatalog(nil)
	}
	return &Service{
		geocoder: cfg.Geocoder,
		airports: airports,
		logger:   cfg.Logger,
	}
}

// Search looks up locations of the given kind. Airport searches use the
// embedded catalog. Other kinds try the geocoder's text search, then its
// geocoding endpoint, then a table of major Indian cities. Provider errors
// are logged and never returned.
func (s *Service) Search(ctx context.Context, query, kind string) ([]Match, error) {
	query = strings.TrimSpace(query)
	if kind == "" {
		kind = KindGeneral
	}

	if kind == KindAirport {
		if len(query) < MinAirportQueryLength {
			return nil, ErrQueryTooShort
		}
		return s.airports.Search(query, MaxAirportResults), nil
	}

	if len(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	if s.geocoder != nil {
		places, err := s.geocoder.SearchPlaces(ctx, query)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", s.geocoder.Name()).Msg("place search failed")
		}
		if matches := toMatches(places, kind); len(matches) > 0 {
			return matches, nil
		}

		places, err = s.geocoder.Geocode(ctx, query)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", s.geocoder.Name()).Msg("geocoding failed")
		}
		if matches := toMatches(places, kind); len(matches) > 0 {
			return matches, nil
		}
	}

	return fallbackCities(query, kind), nil
}

func toMatches(places []routing.Place, kind string) []Match {
	if len(places) > MaxPlaceResults {
		places = places[:MaxPlaceResults]
	}
	matches := make([]Match, 0, len(places))
	for _, p := range places {
		matches = append(matches, Match{
			Address:   p.Address,
			Latitude:  p.Location.Lat,
			Longitude: p.Location.Lon,
			Type:      kind,
		})
	}
	return matches
}
