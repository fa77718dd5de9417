package handler

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/advocacia-ai/painel/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "painel_registrations_total %d\n", snap.Registrations)
	writeLabelled(w, "painel_logins_total", "outcome", snap.Logins)
	writeLabelled(w, "painel_auth_failures_total", "reason", snap.AuthFailures)

	writeMetric(w, "painel_leads_created_total %d\n", snap.LeadsCreated)
	writeMetric(w, "painel_leads_deleted_total %d\n", snap.LeadsDeleted)
	writeLabelled(w, "painel_messages_appended_total", "kind", snap.MessagesAppended)

	writeLabelled(w, "painel_mail_published_total", "status", snap.MailPublished)
	writeLabelled(w, "painel_mail_processed_total", "status", snap.MailProcessed)
	writeMetric(w, "painel_mail_send_duration_seconds_count %d\n", snap.MailSendCount)
	writeMetric(w, "painel_mail_send_duration_seconds_sum %.6f\n", float64(snap.MailSendTotalNs)/1e9)
	writeMetric(w, "painel_mail_queue_depth %d\n", snap.MailQueueDepth)
}

// writeLabelled emits one sample per label value, sorted for stable output.
func writeLabelled(w http.ResponseWriter, name, label string, counters map[string]uint64) {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, counters[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
