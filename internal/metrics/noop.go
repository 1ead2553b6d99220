package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncAuthRejected is a no-op.
func (n *NoopRecorder) IncAuthRejected(reason string) {}

// IncOwnershipDenied is a no-op.
func (n *NoopRecorder) IncOwnershipDenied() {}

// IncBookCreated is a no-op.
func (n *NoopRecorder) IncBookCreated() {}

// IncBookDeleted is a no-op.
func (n *NoopRecorder) IncBookDeleted() {}

// ObserveRequest is a no-op.
func (n *NoopRecorder) ObserveRequest(route string, status int, duration time.Duration) {}
