package location

import (
	"context"
	"errors"
	"time"
)

// ErrPositionUnavailable is returned when a one-shot fix request times out
// or the source cannot produce a position.
var ErrPositionUnavailable = errors.New("position unavailable")

// Fix is a single timestamped position sample.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Speed     float64   `json:"speed"`    // meters per second, negative when unknown
	Accuracy  float64   `json:"accuracy"` // meters, 0 when unknown
	Timestamp time.Time `json:"ts"`
}

// Age returns how old the fix is relative to now.
func (f Fix) Age(now time.Time) time.Duration {
	return now.Sub(f.Timestamp)
}

// Authorization describes how much position access the source has.
type Authorization int

const (
	AuthorizationNotDetermined Authorization = iota
	AuthorizationDenied
	AuthorizationForeground
	AuthorizationAlways
)

func (a Authorization) String() string {
	switch a {
	case AuthorizationDenied:
		return "denied"
	case AuthorizationForeground:
		return "foreground-only"
	case AuthorizationAlways:
		return "always"
	default:
		return "not determined"
	}
}

// Source supplies position fixes to the trip lifecycle controller.
type Source interface {
	// CurrentFix returns the most recent fix seen, or nil if none yet.
	CurrentFix() *Fix

	// RequestFix blocks for the next fix, honoring ctx for its deadline.
	// Fails with ErrPositionUnavailable when none arrives in time.
	RequestFix(ctx context.Context) (Fix, error)

	// StartUpdates begins delivering every new fix to fn until StopUpdates.
	StartUpdates(fn func(Fix))
	StopUpdates()

	Authorization() Authorization
}

// CanTrackInBackground reports whether the source can keep recording while
// the owner's device app is backgrounded.
func CanTrackInBackground(s Source) bool {
	return s.Authorization() == AuthorizationAlways
}
