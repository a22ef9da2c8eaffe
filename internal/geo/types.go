package geo

import "math"

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Finite reports whether both components are finite numbers.
func (c Coordinate) Finite() bool {
	return isFinite(c.Lat) && isFinite(c.Lng)
}

// DistanceDuration is a distance/duration estimate between two points.
// Estimated is true when the value was derived from a great-circle fallback
// rather than a real route.
type DistanceDuration struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	Estimated       bool    `json:"estimated"`
}

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKm(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
