package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineZeroDistance(t *testing.T) {
	d := HaversineDistance(40.7589, -73.9851, 40.7589, -73.9851)
	assert.Equal(t, 0.0, d)
	assert.True(t, WithinRadius(40.7589, -73.9851, 40.7589, -73.9851, 50))
}

func TestHaversineSymmetry(t *testing.T) {
	aLat, aLon := 40.7589, -73.9851
	bLat, bLon := 40.7033, -74.0170

	ab := HaversineDistance(aLat, aLon, bLat, bLon)
	ba := HaversineDistance(bLat, bLon, aLat, aLon)
	assert.InDelta(t, ab, ba, 1e-9)
	assert.Equal(t, WithinRadius(aLat, aLon, bLat, bLon, 10000), WithinRadius(bLat, bLon, aLat, aLon, 10000))
}

func TestHaversineKnownDistance(t *testing.T) {
	// Times Square to the harbor is a bit under 7km
	d := HaversineDistance(40.7589, -73.9851, 40.7033, -74.0170)
	assert.Greater(t, d, 6000.0)
	assert.Less(t, d, 7500.0)
}

func TestWithinRadiusFarAway(t *testing.T) {
	// ~200m north of the target, radius 50m
	lat2 := 40.7589 + 200.0/EarthRadiusM*180.0/math.Pi
	assert.False(t, WithinRadius(lat2, -73.9851, 40.7589, -73.9851, 50))

	d := HaversineDistance(lat2, -73.9851, 40.7589, -73.9851)
	assert.InDelta(t, 200, d, 5)
	assert.Equal(t, 0.0, ProximityPercent(d, 50))
}

func TestZeroOrNegativeRadius(t *testing.T) {
	assert.True(t, WithinRadius(10, 10, 10, 10, 0))
	assert.True(t, WithinRadius(10, 10, 10, 10, -5))
	assert.False(t, WithinRadius(10, 10, 10.001, 10, 0))
	assert.False(t, WithinRadius(10, 10, 10.001, 10, -5))
	assert.Equal(t, 0.0, ProximityPercent(0, 0))
	assert.Equal(t, 0.0, ProximityPercent(0, -1))
}

func TestProximityPercentClamped(t *testing.T) {
	assert.Equal(t, 100.0, ProximityPercent(0, 50))
	assert.Equal(t, 50.0, ProximityPercent(25, 50))
	assert.Equal(t, 0.0, ProximityPercent(50, 50))
	assert.Equal(t, 0.0, ProximityPercent(200, 50))
	assert.Equal(t, 100.0, ProximityPercent(-10, 50))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(40.7589, -73.9851))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.1))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
	assert.False(t, ValidCoordinates(0, math.Inf(1)))
}
