package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNoExecutor is returned when a claimed job has a type nobody handles
	ErrNoExecutor = errors.New("scheduler: no executor for job type")

	// ErrJobPanicked wraps a panic raised while executing a job
	ErrJobPanicked = errors.New("scheduler: job panicked")
)
