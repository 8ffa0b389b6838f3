package scheduler

import "errors"

var (
	// ErrAlreadyRunning is returned when a cycle is triggered while a run of
	// the same cycle is still in flight
	ErrAlreadyRunning = errors.New("scheduler: cycle already running")

	// ErrNotStarted is returned when a cycle is triggered before Start
	ErrNotStarted = errors.New("scheduler: not started")
)
