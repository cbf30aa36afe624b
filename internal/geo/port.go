package geo

// DefaultPortRadiusKm is the maximum distance at which a coordinate is
// snapped to a port.
const DefaultPortRadiusKm = 500.0

// Port is a named sea port.
type Port struct {
	Name     string
	Location Point
}

// PortResolution is the outcome of a nearest-port lookup.
type PortResolution struct {
	// Point is the port location, or the input coordinate when no port
	// was within range.
	Point Point

	// Port is the matched port, nil when the input was passed through.
	Port *Port

	// DistanceKm is the great-circle distance from the input to Point.
	DistanceKm float64
}

// Substituted reports whether a port replaced the input coordinate.
func (r PortResolution) Substituted() bool {
	return r.Port != nil
}

// PortCatalog is an ordered list of ports. Order matters: among equally
// distant ports the earlier one wins.
type PortCatalog struct {
	ports []Port
}

// NewPortCatalog creates a catalog from the given ports.
func NewPortCatalog(ports []Port) *PortCatalog {
	cpy := make([]Port, len(ports))
	copy(cpy, ports)
	return &PortCatalog{ports: cpy}
}

// Ports returns a copy of the catalog entries.
func (c *PortCatalog) Ports() []Port {
	cpy := make([]Port, len(c.ports))
	copy(cpy, c.ports)
	return cpy
}

// Len returns the number of ports in the catalog.
func (c *PortCatalog) Len() int {
	return len(c.ports)
}

// Nearest returns the closest port within radiusKm of p. It never fails: if
// the catalog is empty or every port is farther than radiusKm, p is returned
// unchanged.
func (c *PortCatalog) Nearest(p Point, radiusKm float64) PortResolution {
	if radiusKm <= 0 {
		radiusKm = DefaultPortRadiusKm
	}

	best := -1
	bestDist := 0.0
	for i := range c.ports {
		d := Haversine(p, c.ports[i].Location)
		if d > radiusKm {
			continue
		}
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 {
		return PortResolution{Point: p}
	}

	port := c.ports[best]
	return PortResolution{
		Point:      port.Location,
		Port:       &port,
		DistanceKm: bestDist,
	}
}

// DefaultPortCatalog returns the built-in catalog of major container ports.
func DefaultPortCatalog() *PortCatalog {
	return NewPortCatalog([]Port{
		{Name: "Shanghai", Location: Point{Lat: 31.2304, Lon: 121.4737}},
		{Name: "Singapore", Location: Point{Lat: 1.2966, Lon: 103.7764}},
		{Name: "Rotterdam", Location: Point{Lat: 51.9225, Lon: 4.4792}},
		{Name: "Antwerp", Location: Point{Lat: 51.2194, Lon: 4.4025}},
		{Name: "Hamburg", Location: Point{Lat: 53.5511, Lon: 9.9937}},
		{Name: "Los Angeles", Location: Point{Lat: 33.7361, Lon: -118.2639}},
		{Name: "Long Beach", Location: Point{Lat: 33.7701, Lon: -118.2137}},
		{Name: "New York", Location: Point{Lat: 40.6700, Lon: -74.0458}},
		{Name: "Hong Kong", Location: Point{Lat: 22.2793, Lon: 114.1628}},
		{Name: "Busan", Location: Point{Lat: 35.0951, Lon: 129.0756}},
		{Name: "Guangzhou", Location: Point{Lat: 23.0965, Lon: 113.3212}},
		{Name: "Qingdao", Location: Point{Lat: 36.0671, Lon: 120.3826}},
		{Name: "Dubai", Location: Point{Lat: 25.2769, Lon: 55.2962}},
		{Name: "Tianjin", Location: Point{Lat: 39.0851, Lon: 117.1995}},
		{Name: "Port Klang", Location: Point{Lat: 3.0048, Lon: 101.3918}},
		{Name: "Kaohsiung", Location: Point{Lat: 22.6273, Lon: 120.3014}},
		{Name: "Dalian", Location: Point{Lat: 38.9140, Lon: 121.6147}},
		{Name: "Valencia", Location: Point{Lat: 39.4561, Lon: -0.3545}},
		{Name: "Yokohama", Location: Point{Lat: 35.4437, Lon: 139.6380}},
		{Name: "Bremen", Location: Point{Lat: 53.0793, Lon: 8.8017}},
		{Name: "Jawaharlal Nehru Port", Location: Point{Lat: 18.9647, Lon: 72.9505}},
		{Name: "Chennai Port", Location: Point{Lat: 13.1067, Lon: 80.3066}},
		{Name: "Kolkata Port", Location: Point{Lat: 22.5675, Lon: 88.3496}},
		{Name: "Cochin Port", Location: Point{Lat: 9.9667, Lon: 76.2667}},
		{Name: "Visakhapatnam Port", Location: Point{Lat: 17.6868, Lon: 83.2185}},
		{Name: "Kandla Port", Location: Point{Lat: 23.0333, Lon: 70.2167}},
		{Name: "Paradip Port", Location: Point{Lat: 20.2644, Lon: 86.6069}},
	})
}
