// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncRegistration()
	IncLogin(outcome string)      // outcome: "success", "unauthorized", "forbidden", "rate_limited"
	IncAuthFailure(reason string) // reason: "missing", "invalid", "expired", "purpose", "unknown_subject", "inactive"

	// CRM metrics
	IncLeadCreated()
	IncLeadDeleted()
	IncMessageAppended(kind string) // kind: "lawyer" or "client"

	// Mail pipeline metrics
	IncMailPublished(status string) // status: "success" or "dropped"
	IncMailProcessed(status string) // status: "sent", "retry", "dead_lettered"
	ObserveMailSendDuration(duration time.Duration)
	SetMailQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
