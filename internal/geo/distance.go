package geo

import (
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two
// coordinates given in plain degrees. Inputs are not range-checked;
// non-finite inputs yield NaN and must be rejected by the caller.
func Distance(latA, lngA, latB, lngB float64) float64 {
	phiA := latA * math.Pi / 180
	phiB := latB * math.Pi / 180
	dPhi := (latB - latA) * math.Pi / 180
	dLambda := (lngB - lngA) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phiA)*math.Cos(phiB)*
			math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// WithinRadius reports whether the visitor coordinate falls inside the
// circle around the center, boundary inclusive, and returns the raw
// distance. Rounding happens only at persistence and response time.
func WithinRadius(visitorLat, visitorLng, centerLat, centerLng, radiusMeters float64) (bool, float64) {
	d := Distance(visitorLat, visitorLng, centerLat, centerLng)
	return d <= radiusMeters, d
}

// Round2 rounds a distance to 2 decimal places for storage and display
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidCoordinate reports whether lat/lng are finite and within the
// valid degree ranges
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
