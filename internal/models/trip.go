package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripCategory classifies what a trip was for.
type TripCategory string

const (
	CategoryCommute  TripCategory = "commute"
	CategoryRoadTrip TripCategory = "road_trip"
	CategoryErrand   TripCategory = "errand"
	CategoryOther    TripCategory = "other"
)

// ValidCategory reports whether c is one of the known trip categories.
func ValidCategory(c TripCategory) bool {
	switch c {
	case CategoryCommute, CategoryRoadTrip, CategoryErrand, CategoryOther:
		return true
	}
	return false
}

const milesPerMeter = 0.000621371

// Trip represents a recorded driving trip. A nil EndTime means the trip is
// still in progress; there is no separate status field.
type Trip struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	StartTime time.Time  `bson:"start_time" json:"start_time"`
	EndTime   *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`

	StartLatitude  float64 `bson:"start_latitude" json:"start_latitude"`
	StartLongitude float64 `bson:"start_longitude" json:"start_longitude"`
	StartAddress   string  `bson:"start_address,omitempty" json:"start_address,omitempty"`
	StartCity      string  `bson:"start_city,omitempty" json:"start_city,omitempty"`
	StartState     string  `bson:"start_state,omitempty" json:"start_state,omitempty"`
	StartCountry   string  `bson:"start_country,omitempty" json:"start_country,omitempty"`

	EndLatitude  *float64 `bson:"end_latitude,omitempty" json:"end_latitude,omitempty"`
	EndLongitude *float64 `bson:"end_longitude,omitempty" json:"end_longitude,omitempty"`
	EndAddress   string   `bson:"end_address,omitempty" json:"end_address,omitempty"`
	EndCity      string   `bson:"end_city,omitempty" json:"end_city,omitempty"`
	EndState     string   `bson:"end_state,omitempty" json:"end_state,omitempty"`
	EndCountry   string   `bson:"end_country,omitempty" json:"end_country,omitempty"`

	DistanceMeters float64 `bson:"distance_meters" json:"distance_meters"`
	Route          []byte  `bson:"route,omitempty" json:"-"`

	Category   TripCategory `bson:"category" json:"category"`
	Tags       []string     `bson:"tags" json:"tags"`
	Notes      string       `bson:"notes,omitempty" json:"notes,omitempty"`
	IsFavorite bool         `bson:"is_favorite" json:"is_favorite"`
	IsHidden   bool         `bson:"is_hidden" json:"is_hidden"`

	// VehicleID is a weak reference to a Vehicle (hex ObjectID). Empty
	// means no vehicle. Deleting a vehicle clears this on its trips.
	VehicleID string `bson:"vehicle_id,omitempty" json:"vehicle_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewTrip creates an in-progress trip starting at the given coordinates.
func NewTrip(startTime time.Time, lat, lon float64) *Trip {
	return &Trip{
		ID:             primitive.NewObjectID(),
		StartTime:      startTime,
		StartLatitude:  lat,
		StartLongitude: lon,
		Category:       CategoryOther,
		Tags:           []string{},
	}
}

// IsInProgress reports whether the trip has not been stopped yet.
func (t *Trip) IsInProgress() bool {
	return t.EndTime == nil
}

// Duration returns the trip duration, measured against now for a trip that
// is still in progress.
func (t *Trip) Duration(now time.Time) time.Duration {
	if t.EndTime == nil {
		return now.Sub(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// DurationSeconds is Duration in seconds.
func (t *Trip) DurationSeconds(now time.Time) float64 {
	return t.Duration(now).Seconds()
}

// DistanceMiles converts the accumulated distance to miles.
func (t *Trip) DistanceMiles() float64 {
	return t.DistanceMeters * milesPerMeter
}

// DistanceKilometers converts the accumulated distance to kilometers.
func (t *Trip) DistanceKilometers() float64 {
	return t.DistanceMeters / 1000
}

// RouteCoordinates decodes the stored route blob into an ordered list of
// locations. A missing or malformed blob decodes to an empty route.
func (t *Trip) RouteCoordinates() []Location {
	if len(t.Route) == 0 {
		return []Location{}
	}
	var pairs [][]float64
	if err := json.Unmarshal(t.Route, &pairs); err != nil {
		return []Location{}
	}
	coords := make([]Location, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		coords = append(coords, Location{Lat: p[0], Lon: p[1]})
	}
	return coords
}

// SetRouteCoordinates encodes coords as the at-rest route blob, a JSON
// array of [latitude, longitude] pairs.
func (t *Trip) SetRouteCoordinates(coords []Location) error {
	pairs := make([][]float64, len(coords))
	for i, c := range coords {
		pairs[i] = []float64{c.Lat, c.Lon}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return err
	}
	t.Route = data
	return nil
}

// AppendRouteCoordinate appends a single sample to the stored route.
func (t *Trip) AppendRouteCoordinate(c Location) error {
	coords := t.RouteCoordinates()
	coords = append(coords, c)
	return t.SetRouteCoordinates(coords)
}
