package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advocacia-ai/painel/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncRegistration()
	recorder.IncLogin("success")
	recorder.IncLogin("unauthorized")
	recorder.IncLogin("success")
	recorder.IncMailProcessed("sent")

	h := NewMetricsHandler(recorder)
	rec := httptest.NewRecorder()
	h.Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"painel_registrations_total 1\n",
		`painel_logins_total{outcome="success"} 2` + "\n",
		`painel_logins_total{outcome="unauthorized"} 1` + "\n",
		`painel_mail_processed_total{status="sent"} 1` + "\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output:\n%s", want, body)
		}
	}

	if strings.Index(body, `outcome="success"`) > strings.Index(body, `outcome="unauthorized"`) {
		t.Error("expected labels in sorted order")
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	h := NewMetricsHandler(nil)
	rec := httptest.NewRecorder()
	h.Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}
