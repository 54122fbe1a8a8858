package trip

import (
	"errors"
	"fmt"
)

var (
	ErrTripAlreadyInProgress = errors.New("a trip is already being recorded")
	ErrNoTripInProgress      = errors.New("no trip is currently in progress")
	ErrLocationUnavailable   = errors.New("unable to get current location")
)

// PersistenceError wraps a store failure during a lifecycle operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
