package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncAuthFailure is a no-op.
func (n *NoopRecorder) IncAuthFailure(reason string) {}

// IncLeadCreated is a no-op.
func (n *NoopRecorder) IncLeadCreated() {}

// IncLeadDeleted is a no-op.
func (n *NoopRecorder) IncLeadDeleted() {}

// IncMessageAppended is a no-op.
func (n *NoopRecorder) IncMessageAppended(kind string) {}

// IncMailPublished is a no-op.
func (n *NoopRecorder) IncMailPublished(status string) {}

// IncMailProcessed is a no-op.
func (n *NoopRecorder) IncMailProcessed(status string) {}

// ObserveMailSendDuration is a no-op.
func (n *NoopRecorder) ObserveMailSendDuration(duration time.Duration) {}

// SetMailQueueDepth is a no-op.
func (n *NoopRecorder) SetMailQueueDepth(depth int64) {}
