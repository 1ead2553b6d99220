// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Account metrics
	IncUserRegistered()
	IncLogin(status string) // status: "success" or "failure"

	// Access control metrics
	IncAuthRejected(reason string)
	IncOwnershipDenied()

	// Book metrics
	IncBookCreated()
	IncBookDeleted()

	// HTTP metrics
	ObserveRequest(route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
