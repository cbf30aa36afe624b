package location

import "strings"

type city struct {
	key     string
	address string
	lat     float64
	lon     float64
}

// majorCities answers searches when no geocoder is reachable.
var majorCities = []city{
	{"mumbai", "Mumbai, Maharashtra, India", 19.0760, 72.8777},
	{"delhi", "New Delhi, Delhi, India", 28.7041, 77.1025},
	{"bangalore", "Bangalore, Karnataka, India", 12.9716, 77.5946},
	{"chennai", "Chennai, Tamil Nadu, India", 13.0827, 80.2707},
	{"kolkata", "Kolkata, West Bengal, India", 22.5726, 88.3639},
	{"pune", "Pune, Maharashtra, India", 18.5204, 73.8567},
	{"hyderabad", "Hyderabad, Telangana, India", 17.3850, 78.4867},
	{"ahmedabad", "Ahmedabad, Gujarat, India", 23.0225, 72.5714},
}

// fallbackCities returns every major city whose name appears in query.
func fallbackCities(query, kind string) []Match {
	q := strings.ToLower(query)
	matches := []Match{}
	for _, c := range majorCities {
		if strings.Contains(q, c.key) {
			matches = append(matches, Match{
				Address:   c.address,
				Latitude:  c.lat,
				Longitude: c.lon,
				Type:      kind,
			})
		}
	}
	return matches
}
