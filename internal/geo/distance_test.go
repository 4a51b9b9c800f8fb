package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceZeroAndSymmetry(t *testing.T) {
	latA, lngA := 37.7749, -122.4194
	latB, lngB := 40.7128, -74.0060

	assert.Equal(t, 0.0, Distance(latA, lngA, latA, lngA))
	assert.Equal(t, Distance(latA, lngA, latB, lngB), Distance(latB, lngB, latA, lngA))
}

func TestDistanceKnownValues(t *testing.T) {
	// One ten-thousandth of a degree of latitude is roughly 11.1 m
	d := Distance(37.7749, -122.4194, 37.7750, -122.4194)
	assert.InDelta(t, 11.1, d, 0.2)

	d = Distance(37.7749, -122.4194, 37.7760, -122.4194)
	assert.InDelta(t, 122, d, 2)
}

func TestWithinRadiusBoundaryInclusive(t *testing.T) {
	centerLat, centerLng := 37.7749, -122.4194
	visitorLat, visitorLng := 37.7750, -122.4194

	d := Distance(visitorLat, visitorLng, centerLat, centerLng)

	// Exactly at the radius is admitted
	allowed, got := WithinRadius(visitorLat, visitorLng, centerLat, centerLng, d)
	assert.True(t, allowed)
	assert.Equal(t, d, got)

	// The tiniest shrink of the radius rejects
	allowed, _ = WithinRadius(visitorLat, visitorLng, centerLat, centerLng, math.Nextafter(d, 0))
	assert.False(t, allowed)
}

func TestWithinRadiusRealCoordinates(t *testing.T) {
	allowed, d := WithinRadius(37.7750, -122.4194, 37.7749, -122.4194, 100)
	assert.True(t, allowed)
	assert.InDelta(t, 11.1, d, 0.2)

	allowed, d = WithinRadius(37.7760, -122.4194, 37.7749, -122.4194, 100)
	assert.False(t, allowed)
	assert.InDelta(t, 122, d, 2)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 11.13, Round2(11.1349))
	assert.Equal(t, 11.14, Round2(11.135))
	assert.Equal(t, 0.0, Round2(0))
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.True(t, ValidCoordinate(90, -180))

	assert.False(t, ValidCoordinate(90.0001, 0))
	assert.False(t, ValidCoordinate(0, -180.0001))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
	assert.False(t, ValidCoordinate(0, math.Inf(1)))
}
