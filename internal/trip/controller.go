package trip

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/drive-passport/internal/config"
	"github.com/ukydev/drive-passport/internal/db"
	"github.com/ukydev/drive-passport/internal/geocode"
	"github.com/ukydev/drive-passport/internal/location"
	"github.com/ukydev/drive-passport/internal/models"
)

// Controller owns the trip recording state machine: Idle when no trip is
// active, Recording when exactly one is. The position-update handler and
// the stationary monitor share the active trip with Start/Stop, so every
// mutation goes through the controller mutex.
type Controller struct {
	trips    db.TripCollection
	vehicles db.VehicleCollection
	state    db.StateStore
	source   location.Source
	geocoder geocode.Geocoder
	tuning   config.Tuning

	mu           sync.Mutex
	active       *models.Trip
	lastMovement time.Time
	monitorStop  chan struct{}

	now func() time.Time
}

// NewController creates a controller and restores any trip that was
// recording when the previous process died. Construction is safe to repeat:
// a stale persisted pointer is cleared, a live one is re-adopted.
func NewController(
	ctx context.Context,
	trips db.TripCollection,
	vehicles db.VehicleCollection,
	state db.StateStore,
	source location.Source,
	geocoder geocode.Geocoder,
	tuning config.Tuning,
) *Controller {
	c := &Controller{
		trips:    trips,
		vehicles: vehicles,
		state:    state,
		source:   source,
		geocoder: geocoder,
		tuning:   tuning,
		now:      time.Now,
	}
	c.restore(ctx)
	return c
}

// restore re-adopts the persisted active trip if it is still open, or
// clears the pointer when the trip is gone or already finished.
func (c *Controller) restore(ctx context.Context) {
	hex, err := c.state.Get(ctx, db.StateKeyActiveTrip)
	if err != nil {
		if err != db.ErrNotFound {
			log.WithError(err).Warn("Failed to read persisted active trip id")
		}
		return
	}

	id, err := primitive.ObjectIDFromHex(hex)
	if err == nil {
		t, ferr := c.trips.FindTripByID(ctx, id)
		if ferr == nil && t.IsInProgress() {
			c.mu.Lock()
			c.active = t
			c.lastMovement = c.now()
			c.startMonitorLocked()
			c.mu.Unlock()
			c.source.StartUpdates(c.handleFix)
			log.WithField("trip_id", hex).Info("Restored interrupted trip")
			return
		}
		if ferr != nil && ferr != db.ErrNotFound {
			// Transient store failure, not a stale pointer. Keep it so a
			// later construction can still adopt the trip.
			log.WithError(ferr).Warn("Could not load persisted active trip, keeping pointer")
			return
		}
	}

	// Trip finished or missing, or the pointer is garbage: self-heal.
	if err := c.state.Delete(ctx, db.StateKeyActiveTrip); err != nil {
		log.WithError(err).Warn("Failed to clear stale active trip id")
	}
}

// HasInterruptedTrip reports whether a persisted active-trip pointer exists
// and its trip is still open. It never mutates state; callers use it to
// decide whether to prompt the user.
func (c *Controller) HasInterruptedTrip(ctx context.Context) bool {
	hex, err := c.state.Get(ctx, db.StateKeyActiveTrip)
	if err != nil {
		return false
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return false
	}
	t, err := c.trips.FindTripByID(ctx, id)
	if err != nil {
		return false
	}
	return t.IsInProgress()
}

// IsRecording reports whether a trip is currently active.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// ActiveTrip returns a snapshot of the active trip, or nil when idle.
func (c *Controller) ActiveTrip() *models.Trip {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	snapshot := *c.active
	return &snapshot
}

// Start begins recording a new trip, optionally attached to a vehicle.
// Exactly one trip document is created per successful call.
func (c *Controller) Start(ctx context.Context, vehicleID string) (*models.Trip, error) {
	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, ErrTripAlreadyInProgress
	}
	c.mu.Unlock()

	fix, err := c.acquireFix(ctx)
	if err != nil {
		return nil, err
	}

	t := models.NewTrip(c.now(), fix.Lat, fix.Lon)
	if vehicleID != "" {
		if _, err := c.vehicles.FindVehicleByID(ctx, vehicleID); err == nil {
			t.VehicleID = vehicleID
		} else {
			log.WithField("vehicle_id", vehicleID).Warn("Ignoring unknown vehicle on trip start")
		}
	}

	if err := c.trips.InsertTrip(ctx, t); err != nil {
		return nil, &PersistenceError{Op: "trip on start", Err: err}
	}

	// The pointer is written durably right after creation so a crash during
	// the rest of startup leaves a recoverable state.
	if err := c.state.Set(ctx, db.StateKeyActiveTrip, t.ID.Hex()); err != nil {
		if derr := c.trips.DeleteTrip(ctx, t.ID); derr != nil {
			log.WithError(derr).Error("Failed to roll back trip after state write failure")
		}
		return nil, &PersistenceError{Op: "active trip pointer", Err: err}
	}

	c.mu.Lock()
	c.active = t
	c.lastMovement = c.now()
	c.startMonitorLocked()
	c.mu.Unlock()

	go c.resolveStartAddress(t, fix.Lat, fix.Lon)
	c.source.StartUpdates(c.handleFix)

	log.WithFields(log.Fields{
		"trip_id": t.ID.Hex(),
		"lat":     fix.Lat,
		"lon":     fix.Lon,
	}).Info("Trip started")
	return t, nil
}

// Stop finishes the active trip. On a failed save the controller stays in
// Recording so the caller can retry; nothing is cleared.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoTripInProgress
	}
	t := c.active

	end := c.now()
	t.EndTime = &end

	var endFix *location.Fix
	if f := c.source.CurrentFix(); f != nil {
		lat, lon := f.Lat, f.Lon
		t.EndLatitude = &lat
		t.EndLongitude = &lon
		endFix = f
	}

	if t.DistanceMeters < c.tuning.MinTripDistanceMeters {
		t.IsHidden = true // auto-hide noise trips
	}

	c.source.StopUpdates()
	c.stopMonitorLocked()

	if endFix != nil {
		c.resolveEndAddressLocked(ctx, t, endFix.Lat, endFix.Lon)
	}

	if err := c.trips.UpdateTrip(ctx, t); err != nil {
		return &PersistenceError{Op: "trip on stop", Err: err}
	}

	if err := c.state.Delete(ctx, db.StateKeyActiveTrip); err != nil {
		// Restoration self-heals a stale pointer once the trip is closed.
		log.WithError(err).Warn("Failed to clear active trip id")
	}
	c.active = nil

	log.WithFields(log.Fields{
		"trip_id":         t.ID.Hex(),
		"distance_meters": t.DistanceMeters,
		"hidden":          t.IsHidden,
	}).Info("Trip stopped")
	return nil
}

// Close stops the stationary monitor without touching the active trip; the
// persisted pointer lets the next process pick the trip back up.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopMonitorLocked()
}

// acquireFix obtains a starting position: a cached fix if fresh enough,
// otherwise a bounded polling warm-up, otherwise a one-shot request.
func (c *Controller) acquireFix(ctx context.Context) (location.Fix, error) {
	if f := c.source.CurrentFix(); f != nil && f.Age(c.now()) < c.tuning.FixFreshness {
		return *f, nil
	}

	deadline := time.Now().Add(c.tuning.WarmupWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return location.Fix{}, ErrLocationUnavailable
		case <-time.After(c.tuning.WarmupPoll):
		}
		if f := c.source.CurrentFix(); f != nil && f.Age(c.now()) < c.tuning.FixFreshness {
			return *f, nil
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.tuning.FixRequestTimeout)
	defer cancel()
	fix, err := c.source.RequestFix(reqCtx)
	if err != nil {
		log.WithError(err).Warn("One-shot fix request failed")
		return location.Fix{}, ErrLocationUnavailable
	}
	return fix, nil
}

// handleFix is the continuous position-update handler. Distance grows by
// the straight-line gap from the last route sample; the first sample only
// seeds the route.
func (c *Controller) handleFix(fix location.Fix) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.active
	if t == nil {
		return
	}

	point := models.Location{Lat: fix.Lat, Lon: fix.Lon}
	coords := t.RouteCoordinates()
	if len(coords) > 0 {
		t.DistanceMeters += coords[len(coords)-1].DistanceMeters(point)
	}
	coords = append(coords, point)
	if err := t.SetRouteCoordinates(coords); err != nil {
		log.WithError(err).Error("Failed to encode route")
	}

	if fix.Speed > c.tuning.MovingSpeed {
		c.lastMovement = c.now()
	}
}

func (c *Controller) startMonitorLocked() {
	if c.monitorStop != nil {
		return
	}
	stop := make(chan struct{})
	c.monitorStop = stop

	go func() {
		ticker := time.NewTicker(c.tuning.MonitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.checkStationary()
			case <-stop:
				return
			}
		}
	}()
}

func (c *Controller) stopMonitorLocked() {
	if c.monitorStop != nil {
		close(c.monitorStop)
		c.monitorStop = nil
	}
}

// checkStationary flushes recording progress and auto-stops the trip after
// a prolonged stationary period. Auto-stop failures are swallowed; the
// owner can always stop manually.
func (c *Controller) checkStationary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return
	}
	// Flush while holding the lock: Stop saves its final document under
	// the same lock, so an in-progress snapshot can never land after it
	// and reopen a stopped trip.
	if err := c.trips.UpdateTrip(ctx, c.active); err != nil {
		log.WithError(err).Debug("Failed to flush in-progress trip")
	}
	idle := c.now().Sub(c.lastMovement)
	c.mu.Unlock()

	if idle >= c.tuning.AutoStopAfter {
		log.WithField("idle", idle.String()).Info("Stationary too long, auto-stopping trip")
		if err := c.Stop(ctx); err != nil {
			log.WithError(err).Warn("Auto-stop failed")
		}
	}
}

// resolveStartAddress resolves and stores the start address, best-effort.
// Failures leave the address fields unset and are never surfaced.
func (c *Controller) resolveStartAddress(t *models.Trip, lat, lon float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	place, err := c.geocoder.Resolve(ctx, lat, lon)
	if err != nil {
		log.WithError(err).Debug("Reverse geocoding failed")
		return
	}

	c.mu.Lock()
	t.StartAddress = place.Address
	t.StartCity = place.City
	t.StartState = place.State
	t.StartCountry = place.Country
	stillActive := c.active != nil && c.active.ID == t.ID
	snapshot := *t
	c.mu.Unlock()

	if !stillActive {
		// The trip already closed; patch the stored document rather than
		// overwrite it with a pre-stop snapshot.
		stored, err := c.trips.FindTripByID(ctx, t.ID)
		if err != nil {
			return
		}
		stored.StartAddress = place.Address
		stored.StartCity = place.City
		stored.StartState = place.State
		stored.StartCountry = place.Country
		snapshot = *stored
	}

	if err := c.trips.UpdateTrip(ctx, &snapshot); err != nil {
		log.WithError(err).Debug("Failed to save resolved address")
	}
}

// resolveEndAddressLocked is the synchronous end-of-trip variant, called
// with the controller lock held so the result lands before the final save.
func (c *Controller) resolveEndAddressLocked(ctx context.Context, t *models.Trip, lat, lon float64) {
	gctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	place, err := c.geocoder.Resolve(gctx, lat, lon)
	if err != nil {
		log.WithError(err).Debug("Reverse geocoding failed")
		return
	}
	t.EndAddress = place.Address
	t.EndCity = place.City
	t.EndState = place.State
	t.EndCountry = place.Country
}
