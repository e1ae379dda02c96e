package interfaces

import "time"

// ScheduledJobStatus represents the current status of a scheduled job
type ScheduledJobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	LastError string
}

// SchedulerService manages cron-based background jobs such as the
// periodic cleanup sweep.
type SchedulerService interface {
	// RegisterJob registers a handler under a cron schedule
	RegisterJob(name string, schedule string, handler func() error) error

	// Start begins running registered jobs
	Start() error

	// Stop halts the scheduler and waits for running handlers
	Stop() error

	// IsRunning returns true while the scheduler is active
	IsRunning() bool

	// GetJobStatus returns the status of a registered job
	GetJobStatus(name string) (*ScheduledJobStatus, error)
}
