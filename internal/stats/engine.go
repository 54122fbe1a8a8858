package stats

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ukydev/drive-passport/internal/db"
	"github.com/ukydev/drive-passport/internal/models"
)

const (
	earthCircumferenceMiles = 24901
	moonDistanceMiles       = 238900
	marsDistanceMiles       = 33900000
)

// Engine computes passport statistics over the non-hidden trips in the
// store. Every method re-fetches on each call, so results always reflect
// the latest saved trip. The only state is the selected-year filter.
type Engine struct {
	trips db.TripCollection

	mu           sync.Mutex
	selectedYear *int

	now func() time.Time
}

// NewEngine creates a statistics engine reading from trips.
func NewEngine(trips db.TripCollection) *Engine {
	return &Engine{trips: trips, now: time.Now}
}

// SetSelectedYear restricts all statistics to trips started in year.
func (e *Engine) SetSelectedYear(year int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	y := year
	e.selectedYear = &y
}

// ClearSelectedYear returns the engine to all-time statistics.
func (e *Engine) ClearSelectedYear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedYear = nil
}

// SelectedYear returns the active year filter, or nil for all-time.
func (e *Engine) SelectedYear() *int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selectedYear == nil {
		return nil
	}
	y := *e.selectedYear
	return &y
}

// fetch loads the non-hidden trips, applying the selected-year filter.
func (e *Engine) fetch(ctx context.Context) ([]*models.Trip, error) {
	trips, err := e.trips.FindTrips(ctx, bson.M{"is_hidden": false})
	if err != nil {
		return nil, err
	}
	year := e.SelectedYear()
	if year == nil {
		return trips, nil
	}
	filtered := trips[:0]
	for _, t := range trips {
		if t.StartTime.Year() == *year {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// AvailableYears lists the distinct years with at least one trip, newest
// first. The selected-year filter does not apply here.
func (e *Engine) AvailableYears(ctx context.Context) ([]int, error) {
	trips, err := e.trips.FindTrips(ctx, bson.M{"is_hidden": false})
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	var years []int
	for _, t := range trips {
		y := t.StartTime.Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// TotalMiles sums the distance of all counted trips.
func (e *Engine) TotalMiles(ctx context.Context) (float64, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return totalMiles(trips), nil
}

// TotalTrips counts the trips.
func (e *Engine) TotalTrips(ctx context.Context) (int, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return len(trips), nil
}

// TotalDrivingSeconds sums trip durations.
func (e *Engine) TotalDrivingSeconds(ctx context.Context) (float64, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return e.totalDrivingSeconds(trips), nil
}

// AverageTripDistance is total miles over trip count, 0 with no trips.
func (e *Engine) AverageTripDistance(ctx context.Context) (float64, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	if len(trips) == 0 {
		return 0, nil
	}
	return totalMiles(trips) / float64(len(trips)), nil
}

// AverageSpeed is total miles over total driving hours, in mph.
func (e *Engine) AverageSpeed(ctx context.Context) (float64, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return e.averageSpeed(trips), nil
}

func (e *Engine) averageSpeed(trips []*models.Trip) float64 {
	hours := e.totalDrivingSeconds(trips) / 3600
	if hours == 0 {
		return 0
	}
	return totalMiles(trips) / hours
}

// EarthCircumferenceFraction expresses total miles as a fraction of the
// Earth's circumference (24,901 mi).
func (e *Engine) EarthCircumferenceFraction(ctx context.Context) (float64, error) {
	miles, err := e.TotalMiles(ctx)
	if err != nil {
		return 0, err
	}
	return miles / earthCircumferenceMiles, nil
}

// MoonDistanceMultiple expresses total miles as multiples of the distance
// to the Moon (238,900 mi).
func (e *Engine) MoonDistanceMultiple(ctx context.Context) (float64, error) {
	miles, err := e.TotalMiles(ctx)
	if err != nil {
		return 0, err
	}
	return miles / moonDistanceMiles, nil
}

// MarsDistanceMultiple expresses total miles as multiples of the average
// distance to Mars (33,900,000 mi).
func (e *Engine) MarsDistanceMultiple(ctx context.Context) (float64, error) {
	miles, err := e.TotalMiles(ctx)
	if err != nil {
		return 0, err
	}
	return miles / marsDistanceMiles, nil
}

// MilesThisYear sums miles for trips started in the current calendar year,
// regardless of the selected-year filter.
func (e *Engine) MilesThisYear(ctx context.Context) (float64, error) {
	trips, err := e.trips.FindTrips(ctx, bson.M{"is_hidden": false})
	if err != nil {
		return 0, err
	}
	year := e.now().Year()
	var miles float64
	for _, t := range trips {
		if t.StartTime.Year() == year {
			miles += t.DistanceMiles()
		}
	}
	return miles, nil
}

// MilesThisMonth sums miles for trips started in the current calendar
// month, regardless of the selected-year filter.
func (e *Engine) MilesThisMonth(ctx context.Context) (float64, error) {
	trips, err := e.trips.FindTrips(ctx, bson.M{"is_hidden": false})
	if err != nil {
		return 0, err
	}
	now := e.now()
	var miles float64
	for _, t := range trips {
		if t.StartTime.Year() == now.Year() && t.StartTime.Month() == now.Month() {
			miles += t.DistanceMiles()
		}
	}
	return miles, nil
}

// StatesVisited returns the distinct start and end states, sorted.
func (e *Engine) StatesVisited(ctx context.Context) ([]string, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return statesVisited(trips), nil
}

func statesVisited(trips []*models.Trip) []string {
	seen := map[string]bool{}
	var states []string
	for _, t := range trips {
		for _, s := range []string{t.StartState, t.EndState} {
			if s != "" && !seen[s] {
				seen[s] = true
				states = append(states, s)
			}
		}
	}
	sort.Strings(states)
	return states
}

// UniqueCities counts the distinct start and end cities.
func (e *Engine) UniqueCities(ctx context.Context) (int, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	seen := map[string]bool{}
	for _, t := range trips {
		for _, c := range []string{t.StartCity, t.EndCity} {
			if c != "" {
				seen[c] = true
			}
		}
	}
	return len(seen), nil
}

// MostVisitedCity returns the most frequent trip destination city and how
// many trips ended there. Ties go to the city reached first in trip order.
func (e *Engine) MostVisitedCity(ctx context.Context) (string, int, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return "", 0, err
	}
	counts := map[string]int{}
	for _, t := range trips {
		if t.EndCity != "" {
			counts[t.EndCity]++
		}
	}
	best, bestCount := "", 0
	for _, t := range trips {
		if c := counts[t.EndCity]; t.EndCity != "" && c > bestCount {
			best, bestCount = t.EndCity, c
		}
	}
	return best, bestCount, nil
}

// UniqueRoutes counts the distinct start-to-end endpoint pairs. When
// geocoding resolved less, an endpoint falls back from city to state to
// "Unknown", so partially resolved trips still form routes.
func (e *Engine) UniqueRoutes(ctx context.Context) (int, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	seen := map[[2]string]bool{}
	for _, t := range trips {
		seen[[2]string{
			routeEndpoint(t.StartCity, t.StartState),
			routeEndpoint(t.EndCity, t.EndState),
		}] = true
	}
	return len(seen), nil
}

func routeEndpoint(city, state string) string {
	if city != "" {
		return city
	}
	if state != "" {
		return state
	}
	return "Unknown"
}

// CategoryBreakdown counts trips per category.
func (e *Engine) CategoryBreakdown(ctx context.Context) (map[models.TripCategory]int, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := map[models.TripCategory]int{}
	for _, t := range trips {
		breakdown[t.Category]++
	}
	return breakdown, nil
}

// TimeOfDayPattern buckets trip starts by hour of day.
type TimeOfDayPattern struct {
	Morning   int `json:"morning"`   // 5-11
	Afternoon int `json:"afternoon"` // 12-16
	Evening   int `json:"evening"`   // 17-20
	Night     int `json:"night"`     // 21-4
}

// TimeOfDay counts trips per start-hour bucket.
func (e *Engine) TimeOfDay(ctx context.Context) (TimeOfDayPattern, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return TimeOfDayPattern{}, err
	}
	var p TimeOfDayPattern
	for _, t := range trips {
		switch h := t.StartTime.Hour(); {
		case h >= 5 && h <= 11:
			p.Morning++
		case h >= 12 && h <= 16:
			p.Afternoon++
		case h >= 17 && h <= 20:
			p.Evening++
		default:
			p.Night++
		}
	}
	return p, nil
}

// DayRecord is the mileage total for one calendar day.
type DayRecord struct {
	Date  time.Time `json:"date"`
	Miles float64   `json:"miles"`
}

// LongestDay finds the calendar day with the most miles driven. Ties go
// to the day reached first in trip order. Nil with no trips.
func (e *Engine) LongestDay(ctx context.Context) (*DayRecord, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	totals := map[time.Time]float64{}
	for _, t := range trips {
		totals[dayOf(t.StartTime)] += t.DistanceMiles()
	}
	var best *DayRecord
	for _, t := range trips {
		day := dayOf(t.StartTime)
		if best == nil || totals[day] > best.Miles {
			best = &DayRecord{Date: day, Miles: totals[day]}
		}
	}
	return best, nil
}

// MonthRecord is the mileage total for one calendar month.
type MonthRecord struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Miles float64    `json:"miles"`
}

// MostActiveMonth finds the calendar month with the most miles driven.
// Ties go to the month reached first in trip order. Nil with no trips.
func (e *Engine) MostActiveMonth(ctx context.Context) (*MonthRecord, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	type key struct {
		year  int
		month time.Month
	}
	totals := map[key]float64{}
	for _, t := range trips {
		totals[key{t.StartTime.Year(), t.StartTime.Month()}] += t.DistanceMiles()
	}
	var best *MonthRecord
	for _, t := range trips {
		k := key{t.StartTime.Year(), t.StartTime.Month()}
		if best == nil || totals[k] > best.Miles {
			best = &MonthRecord{Year: k.year, Month: k.month, Miles: totals[k]}
		}
	}
	return best, nil
}

// ConsecutiveDaysWithTrips is the longest streak of back-to-back calendar
// days that each contain at least one trip.
func (e *Engine) ConsecutiveDaysWithTrips(ctx context.Context) (int, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return longestStreak(trips), nil
}

func longestStreak(trips []*models.Trip) int {
	seen := map[time.Time]bool{}
	var days []time.Time
	for _, t := range trips {
		d := dayOf(t.StartTime)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// AverageTripsPerWeek is the trip count over the weeks elapsed since the
// earliest counted trip, 0 with no trips or no elapsed time.
func (e *Engine) AverageTripsPerWeek(ctx context.Context) (float64, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	if len(trips) == 0 {
		return 0, nil
	}
	earliest := trips[0].StartTime
	for _, t := range trips[1:] {
		if t.StartTime.Before(earliest) {
			earliest = t.StartTime
		}
	}
	weeks := e.now().Sub(earliest).Hours() / 24 / 7
	if weeks <= 0 {
		return 0, nil
	}
	return float64(len(trips)) / weeks, nil
}

// LongestTrip returns the trip with the greatest distance, nil with no
// trips.
func (e *Engine) LongestTrip(ctx context.Context) (*models.Trip, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	var best *models.Trip
	for _, t := range trips {
		if best == nil || t.DistanceMeters > best.DistanceMeters {
			best = t
		}
	}
	return best, nil
}

// FastestTrip returns the trip with the highest average speed. Trips with
// no recorded duration are excluded. Nil when nothing qualifies.
func (e *Engine) FastestTrip(ctx context.Context) (*models.Trip, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()
	var best *models.Trip
	var bestSpeed float64
	for _, t := range trips {
		secs := t.DurationSeconds(now)
		if secs <= 0 {
			continue
		}
		speed := t.DistanceMiles() / (secs / 3600)
		if speed > bestSpeed {
			best, bestSpeed = t, speed
		}
	}
	return best, nil
}

// VehicleUsage is the per-vehicle slice of the passport.
type VehicleUsage struct {
	VehicleID string  `json:"vehicle_id"`
	Miles     float64 `json:"miles"`
	Trips     int     `json:"trips"`
}

// AverageMiles is the mean trip distance for this vehicle.
func (u VehicleUsage) AverageMiles() float64 {
	if u.Trips == 0 {
		return 0
	}
	return u.Miles / float64(u.Trips)
}

// VehicleBreakdown aggregates miles and trip counts per vehicle, sorted
// by miles descending. Trips with no vehicle are not included.
func (e *Engine) VehicleBreakdown(ctx context.Context) ([]VehicleUsage, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}
	byVehicle := map[string]*VehicleUsage{}
	for _, t := range trips {
		if t.VehicleID == "" {
			continue
		}
		u, ok := byVehicle[t.VehicleID]
		if !ok {
			u = &VehicleUsage{VehicleID: t.VehicleID}
			byVehicle[t.VehicleID] = u
		}
		u.Miles += t.DistanceMiles()
		u.Trips++
	}
	usage := make([]VehicleUsage, 0, len(byVehicle))
	for _, u := range byVehicle {
		usage = append(usage, *u)
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Miles != usage[j].Miles {
			return usage[i].Miles > usage[j].Miles
		}
		return usage[i].VehicleID < usage[j].VehicleID
	})
	return usage, nil
}

// MostUsedVehicle returns the vehicle with the most miles, or nil when no
// trip has a vehicle.
func (e *Engine) MostUsedVehicle(ctx context.Context) (*VehicleUsage, error) {
	usage, err := e.VehicleBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	if len(usage) == 0 {
		return nil, nil
	}
	u := usage[0]
	return &u, nil
}

// AverageDistancePerVehicle is the total vehicle-attached mileage divided
// by the number of vehicles with at least one trip.
func (e *Engine) AverageDistancePerVehicle(ctx context.Context) (float64, error) {
	usage, err := e.VehicleBreakdown(ctx)
	if err != nil {
		return 0, err
	}
	if len(usage) == 0 {
		return 0, nil
	}
	var miles float64
	for _, u := range usage {
		miles += u.Miles
	}
	return miles / float64(len(usage)), nil
}

// TripsWithoutVehicle counts trips with no assigned vehicle.
func (e *Engine) TripsWithoutVehicle(ctx context.Context) (int, error) {
	trips, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range trips {
		if t.VehicleID == "" {
			n++
		}
	}
	return n, nil
}

func totalMiles(trips []*models.Trip) float64 {
	var miles float64
	for _, t := range trips {
		miles += t.DistanceMiles()
	}
	return miles
}

func (e *Engine) totalDrivingSeconds(trips []*models.Trip) float64 {
	now := e.now()
	var secs float64
	for _, t := range trips {
		secs += t.DurationSeconds(now)
	}
	return secs
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
