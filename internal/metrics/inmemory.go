package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations    uint64
	Logins           map[string]uint64
	AuthFailures     map[string]uint64
	LeadsCreated     uint64
	LeadsDeleted     uint64
	MessagesAppended map[string]uint64
	MailPublished    map[string]uint64
	MailProcessed    map[string]uint64
	MailSendCount    uint64
	MailSendTotalNs  int64
	MailQueueDepth   int64
}

// InMemoryRecorder stores metrics in memory. It backs /metrics and tests.
type InMemoryRecorder struct {
	registrations   uint64
	leadsCreated    uint64
	leadsDeleted    uint64
	mailSendCount   uint64
	mailSendTotalNs int64
	mailQueueDepth  int64

	mu       sync.Mutex
	labelled map[string]map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{labelled: make(map[string]map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		Registrations:    atomic.LoadUint64(&m.registrations),
		Logins:           m.copyLabels("login"),
		AuthFailures:     m.copyLabels("auth_failure"),
		LeadsCreated:     atomic.LoadUint64(&m.leadsCreated),
		LeadsDeleted:     atomic.LoadUint64(&m.leadsDeleted),
		MessagesAppended: m.copyLabels("message"),
		MailPublished:    m.copyLabels("mail_published"),
		MailProcessed:    m.copyLabels("mail_processed"),
		MailSendCount:    atomic.LoadUint64(&m.mailSendCount),
		MailSendTotalNs:  atomic.LoadInt64(&m.mailSendTotalNs),
		MailQueueDepth:   atomic.LoadInt64(&m.mailQueueDepth),
	}
}

func (m *InMemoryRecorder) inc(name, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counters, ok := m.labelled[name]
	if !ok {
		counters = make(map[string]uint64)
		m.labelled[name] = counters
	}
	counters[label]++
}

func (m *InMemoryRecorder) copyLabels(name string) map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.labelled[name]))
	for k, v := range m.labelled[name] {
		out[k] = v
	}
	return out
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.inc("login", outcome)
}

// IncAuthFailure counts a rejected credential by reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.inc("auth_failure", reason)
}

// IncLeadCreated increments lead created counter.
func (m *InMemoryRecorder) IncLeadCreated() {
	atomic.AddUint64(&m.leadsCreated, 1)
}

// IncLeadDeleted increments lead deleted counter.
func (m *InMemoryRecorder) IncLeadDeleted() {
	atomic.AddUint64(&m.leadsDeleted, 1)
}

// IncMessageAppended counts an appended message by author kind.
func (m *InMemoryRecorder) IncMessageAppended(kind string) {
	m.inc("message", kind)
}

// IncMailPublished counts an enqueue attempt by status.
func (m *InMemoryRecorder) IncMailPublished(status string) {
	m.inc("mail_published", status)
}

// IncMailProcessed counts a worker outcome by status.
func (m *InMemoryRecorder) IncMailProcessed(status string) {
	m.inc("mail_processed", status)
}

// ObserveMailSendDuration records a provider round trip.
func (m *InMemoryRecorder) ObserveMailSendDuration(duration time.Duration) {
	atomic.AddUint64(&m.mailSendCount, 1)
	atomic.AddInt64(&m.mailSendTotalNs, duration.Nanoseconds())
}

// SetMailQueueDepth stores the last observed queue depth.
func (m *InMemoryRecorder) SetMailQueueDepth(depth int64) {
	atomic.StoreInt64(&m.mailQueueDepth, depth)
}
