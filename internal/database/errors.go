package database

import "errors"

var (
	// ErrNotFound is returned when the database must exist but does not.
	ErrNotFound = errors.New("history database not found")

	// ErrNilRun is returned when saving a nil run.
	ErrNilRun = errors.New("run is nil")

	// ErrFailedRun is returned when saving a run that did not complete.
	ErrFailedRun = errors.New("cannot store a failed run")
)
