package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrip(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	trip := NewTrip(start, 40.7128, -74.0060)

	assert.False(t, trip.ID.IsZero())
	assert.Equal(t, start, trip.StartTime)
	assert.Equal(t, 40.7128, trip.StartLatitude)
	assert.Equal(t, -74.0060, trip.StartLongitude)
	assert.Equal(t, CategoryOther, trip.Category)
	assert.NotNil(t, trip.Tags)
	assert.True(t, trip.IsInProgress())
}

func TestTrip_Duration(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	trip := NewTrip(start, 40.7, -74.0)

	now := start.Add(25 * time.Minute)
	assert.Equal(t, 25*time.Minute, trip.Duration(now))
	assert.InDelta(t, 1500, trip.DurationSeconds(now), 0.001)

	end := start.Add(40 * time.Minute)
	trip.EndTime = &end
	assert.False(t, trip.IsInProgress())
	// Once stopped, now no longer matters
	assert.Equal(t, 40*time.Minute, trip.Duration(now.Add(time.Hour)))
}

func TestTrip_DistanceConversions(t *testing.T) {
	trip := NewTrip(time.Now(), 40.7, -74.0)
	trip.DistanceMeters = 16093.4 // ten miles

	assert.InDelta(t, 10.0, trip.DistanceMiles(), 0.01)
	assert.InDelta(t, 16.0934, trip.DistanceKilometers(), 0.001)
}

func TestTrip_RouteRoundTrip(t *testing.T) {
	trip := NewTrip(time.Now(), 40.7, -74.0)
	coords := []Location{
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: 40.7200, Lon: -74.0000},
		{Lat: 40.7300, Lon: -73.9900},
	}

	require.NoError(t, trip.SetRouteCoordinates(coords))
	assert.Equal(t, coords, trip.RouteCoordinates())
}

func TestTrip_RouteEmptyAndMalformed(t *testing.T) {
	trip := NewTrip(time.Now(), 40.7, -74.0)
	assert.Empty(t, trip.RouteCoordinates())

	trip.Route = []byte("not json")
	assert.Empty(t, trip.RouteCoordinates())

	// Pairs missing a coordinate are skipped
	trip.Route = []byte("[[40.7,-74.0],[41.0]]")
	coords := trip.RouteCoordinates()
	require.Len(t, coords, 1)
	assert.Equal(t, Location{Lat: 40.7, Lon: -74.0}, coords[0])
}

func TestTrip_AppendRouteCoordinate(t *testing.T) {
	trip := NewTrip(time.Now(), 40.7, -74.0)

	require.NoError(t, trip.AppendRouteCoordinate(Location{Lat: 40.7128, Lon: -74.0060}))
	require.NoError(t, trip.AppendRouteCoordinate(Location{Lat: 40.7200, Lon: -74.0000}))

	coords := trip.RouteCoordinates()
	require.Len(t, coords, 2)
	assert.Equal(t, Location{Lat: 40.7200, Lon: -74.0000}, coords[1])
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryCommute))
	assert.True(t, ValidCategory(CategoryRoadTrip))
	assert.True(t, ValidCategory(CategoryErrand))
	assert.True(t, ValidCategory(CategoryOther))
	assert.False(t, ValidCategory(TripCategory("vacation")))
	assert.False(t, ValidCategory(TripCategory("")))
}
