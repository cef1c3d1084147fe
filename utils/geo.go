// utils/geo.go
package utils

import "math"

// EarthRadiusM is the mean earth radius used for great-circle distances
const EarthRadiusM = 6371000.0

// HaversineDistance returns the great-circle distance in meters between two
// latitude/longitude pairs (degrees). Callers validate coordinate ranges
// (±90 / ±180) before calling; out-of-range input yields a degenerate but
// well-defined number, never a panic.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0
	rLat1 := lat1 * math.Pi / 180.0
	rLat2 := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinRadius reports whether the distance between the two points is at most
// radius meters. A zero or negative radius only passes at exactly zero distance.
func WithinRadius(lat1, lon1, lat2, lon2, radius float64) bool {
	if radius < 0 {
		radius = 0
	}
	return HaversineDistance(lat1, lon1, lat2, lon2) <= radius
}

// ProximityPercent maps a distance to a 0–100 closeness figure for display:
// 100 at the center, 0 at or beyond the radius edge.
func ProximityPercent(distance, radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	pct := (radius - distance) / radius * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ValidCoordinates checks latitude/longitude ranges and rejects NaN/Inf
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
