package location

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed airports.json
var airportsJSON []byte

// MaxAirportResults caps an airport search.
const MaxAirportResults = 8

// Airport is an entry of the airport catalog.
type Airport struct {
	Code      string  `json:"code"`
	IATACode  string  `json:"iata_code"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AirportCatalog is an in-memory, read-only airport list.
type AirportCatalog struct {
	airports []Airport
}

// NewAirportCatalog creates a catalog from a list of airports.
func NewAirportCatalog(airports []Airport) *AirportCatalog {
	return &AirportCatalog{airports: append([]Airport(nil), airports...)}
}

// DefaultAirportCatalog loads the embedded airport list.
func DefaultAirportCatalog() (*AirportCatalog, error) {
	var airports []Airport
	if err := json.Unmarshal(airportsJSON, &airports); err != nil {
		return nil, fmt.Errorf("parsing embedded airports: %w", err)
	}
	return NewAirportCatalog(airports), nil
}

// Len returns the number of airports in the catalog.
func (c *AirportCatalog) Len() int {
	return len(c.airports)
}

type scoredAirport struct {
	Airport
	score int
}

// Search ranks airports against a query: an exact code match scores 100, a
// partial code match 90, then city prefix 80, city substring 70, name prefix
// 60 and name substring 50. Ties keep catalog order.
func (c *AirportCatalog) Search(query string, limit int) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var scored []scoredAirport
	for _, a := range c.airports {
		if s := score(q, a); s > 0 {
			scored = append(scored, scoredAirport{Airport: a, score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	matches := make([]Match, 0, len(scored))
	for _, s := range scored {
		a := s.Airport
		matches = append(matches, Match{
			Address:   fmt.Sprintf("%s (%s), %s", s.Name, s.IATACode, s.City),
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Type:      KindAirport,
			Airport:   &a,
			Score:     s.score,
		})
	}
	return matches
}

func score(q string, a Airport) int {
	code := strings.ToLower(a.Code)
	iata := strings.ToLower(a.IATACode)
	city := strings.ToLower(a.City)
	name := strings.ToLower(a.Name)

	switch {
	case q == code || q == iata:
		return 100
	case strings.Contains(code, q) || strings.Contains(iata, q):
		return 90
	case strings.HasPrefix(city, q):
		return 80
	case strings.Contains(city, q):
		return 70
	case strings.HasPrefix(name, q):
		return 60
	case strings.Contains(name, q):
		return 50
	}
	return 0
}
