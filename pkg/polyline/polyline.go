// Package polyline encodes and decodes route geometry using Google's
// polyline algorithm (precision 5) and measures path length.
package polyline

import (
	"math"

	"github.com/freightledger/freightledger/internal/geo"
)

// Decode decodes a polyline-encoded string into a slice of points.
func Decode(encoded string) []geo.Point {
	if encoded == "" {
		return nil
	}

	var points []geo.Point
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lonDelta, next := decodeValue(encoded, index)
		index = next
		lon += lonDelta

		points = append(points, geo.Point{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}

	return points
}

// decodeValue returns the delta at index and the index of the next value.
func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes a slice of points into a polyline string.
func Encode(points []geo.Point) string {
	if len(points) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(points)*4)
	prevLat := 0
	prevLon := 0

	for _, p := range points {
		lat := int(math.Round(p.Lat * 1e5))
		lon := int(math.Round(p.Lon * 1e5))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// FromLonLat converts GeoJSON positions ([lon, lat]) into points.
// Positions with fewer than two values are skipped.
func FromLonLat(positions [][]float64) []geo.Point {
	points := make([]geo.Point, 0, len(positions))
	for _, pos := range positions {
		if len(pos) < 2 {
			continue
		}
		points = append(points, geo.Point{Lat: pos[1], Lon: pos[0]})
	}
	return points
}

// LengthKm returns the great-circle length of the path in kilometers.
func LengthKm(points []geo.Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += geo.Haversine(points[i-1], points[i])
	}
	return total
}
