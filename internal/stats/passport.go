package stats

import (
	"context"

	"github.com/ukydev/drive-passport/internal/models"
)

// Passport is the full statistics snapshot served to clients.
type Passport struct {
	Year *int `json:"year,omitempty"`

	TotalMiles          float64 `json:"total_miles"`
	TotalTrips          int     `json:"total_trips"`
	TotalDrivingSeconds float64 `json:"total_driving_seconds"`

	AverageTripDistance float64 `json:"average_trip_distance"`
	AverageSpeed        float64 `json:"average_speed"`
	AverageTripsPerWeek float64 `json:"average_trips_per_week"`

	EarthCircumferenceFraction float64 `json:"earth_circumference_fraction"`
	MoonDistanceMultiple       float64 `json:"moon_distance_multiple"`
	MarsDistanceMultiple       float64 `json:"mars_distance_multiple"`

	MilesThisYear  float64 `json:"miles_this_year"`
	MilesThisMonth float64 `json:"miles_this_month"`

	StatesVisited        []string `json:"states_visited"`
	UniqueCities         int      `json:"unique_cities"`
	MostVisitedCity      string   `json:"most_visited_city,omitempty"`
	MostVisitedCityTrips int      `json:"most_visited_city_trips,omitempty"`
	UniqueRoutes         int      `json:"unique_routes"`

	CategoryBreakdown map[models.TripCategory]int `json:"category_breakdown"`
	TimeOfDay         TimeOfDayPattern            `json:"time_of_day"`

	LongestDay              *DayRecord   `json:"longest_day,omitempty"`
	MostActiveMonth         *MonthRecord `json:"most_active_month,omitempty"`
	ConsecutiveDaysWithTrips int         `json:"consecutive_days_with_trips"`

	LongestTrip *models.Trip `json:"longest_trip,omitempty"`
	FastestTrip *models.Trip `json:"fastest_trip,omitempty"`

	VehicleBreakdown          []VehicleUsage `json:"vehicle_breakdown"`
	MostUsedVehicle           *VehicleUsage  `json:"most_used_vehicle,omitempty"`
	AverageDistancePerVehicle float64        `json:"average_distance_per_vehicle"`
	TripsWithoutVehicle       int            `json:"trips_without_vehicle"`

	NextDistanceMilestone *Milestone `json:"next_distance_milestone,omitempty"`
	NextStateMilestone    *Milestone `json:"next_state_milestone,omitempty"`
	NextTripMilestone     *Milestone `json:"next_trip_milestone,omitempty"`
	NextMilestone         *Milestone `json:"next_milestone,omitempty"`
}

// Passport assembles the complete snapshot under the current year filter.
func (e *Engine) Passport(ctx context.Context) (*Passport, error) {
	p := &Passport{Year: e.SelectedYear()}

	var err error
	if p.TotalMiles, err = e.TotalMiles(ctx); err != nil {
		return nil, err
	}
	if p.TotalTrips, err = e.TotalTrips(ctx); err != nil {
		return nil, err
	}
	if p.TotalDrivingSeconds, err = e.TotalDrivingSeconds(ctx); err != nil {
		return nil, err
	}
	if p.AverageTripDistance, err = e.AverageTripDistance(ctx); err != nil {
		return nil, err
	}
	if p.AverageSpeed, err = e.AverageSpeed(ctx); err != nil {
		return nil, err
	}
	if p.AverageTripsPerWeek, err = e.AverageTripsPerWeek(ctx); err != nil {
		return nil, err
	}
	if p.EarthCircumferenceFraction, err = e.EarthCircumferenceFraction(ctx); err != nil {
		return nil, err
	}
	if p.MoonDistanceMultiple, err = e.MoonDistanceMultiple(ctx); err != nil {
		return nil, err
	}
	if p.MarsDistanceMultiple, err = e.MarsDistanceMultiple(ctx); err != nil {
		return nil, err
	}
	if p.MilesThisYear, err = e.MilesThisYear(ctx); err != nil {
		return nil, err
	}
	if p.MilesThisMonth, err = e.MilesThisMonth(ctx); err != nil {
		return nil, err
	}
	if p.StatesVisited, err = e.StatesVisited(ctx); err != nil {
		return nil, err
	}
	if p.UniqueCities, err = e.UniqueCities(ctx); err != nil {
		return nil, err
	}
	if p.MostVisitedCity, p.MostVisitedCityTrips, err = e.MostVisitedCity(ctx); err != nil {
		return nil, err
	}
	if p.UniqueRoutes, err = e.UniqueRoutes(ctx); err != nil {
		return nil, err
	}
	if p.CategoryBreakdown, err = e.CategoryBreakdown(ctx); err != nil {
		return nil, err
	}
	if p.TimeOfDay, err = e.TimeOfDay(ctx); err != nil {
		return nil, err
	}
	if p.LongestDay, err = e.LongestDay(ctx); err != nil {
		return nil, err
	}
	if p.MostActiveMonth, err = e.MostActiveMonth(ctx); err != nil {
		return nil, err
	}
	if p.ConsecutiveDaysWithTrips, err = e.ConsecutiveDaysWithTrips(ctx); err != nil {
		return nil, err
	}
	if p.LongestTrip, err = e.LongestTrip(ctx); err != nil {
		return nil, err
	}
	if p.FastestTrip, err = e.FastestTrip(ctx); err != nil {
		return nil, err
	}
	if p.VehicleBreakdown, err = e.VehicleBreakdown(ctx); err != nil {
		return nil, err
	}
	if p.MostUsedVehicle, err = e.MostUsedVehicle(ctx); err != nil {
		return nil, err
	}
	if p.AverageDistancePerVehicle, err = e.AverageDistancePerVehicle(ctx); err != nil {
		return nil, err
	}
	if p.TripsWithoutVehicle, err = e.TripsWithoutVehicle(ctx); err != nil {
		return nil, err
	}
	if p.NextDistanceMilestone, err = e.NextDistanceMilestone(ctx); err != nil {
		return nil, err
	}
	if p.NextStateMilestone, err = e.NextStateMilestone(ctx); err != nil {
		return nil, err
	}
	if p.NextTripMilestone, err = e.NextTripMilestone(ctx); err != nil {
		return nil, err
	}
	if p.NextMilestone, err = e.NextMilestone(ctx); err != nil {
		return nil, err
	}
	return p, nil
}
