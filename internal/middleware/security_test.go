package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurity(t *testing.T) {
	always := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"X-XSS-Protection":             "0",
		"Referrer-Policy":              "strict-origin-when-cross-origin",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
		"Cache-Control":                "no-store",
	}

	tests := []struct {
		name     string
		isDev    bool
		wantHSTS string
	}{
		{name: "production", isDev: false, wantHSTS: "max-age=31536000; includeSubDomains; preload"},
		{name: "development", isDev: true, wantHSTS: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Security(SecurityConfig{IsDevelopment: tt.isDev})(okHandler())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leads", nil))

			for header, want := range always {
				if got := rec.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
			if got := rec.Header().Get("Permissions-Policy"); !strings.Contains(got, "geolocation=()") {
				t.Errorf("Permissions-Policy = %q, want geolocation disabled", got)
			}
			if got := rec.Header().Get("Strict-Transport-Security"); got != tt.wantHSTS {
				t.Errorf("Strict-Transport-Security = %q, want %q", got, tt.wantHSTS)
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	const limit = 16

	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantStatus    int
		wantEnvelope  bool
	}{
		{name: "within limit", body: `{"a":1}`, contentLength: 7, wantStatus: http.StatusOK},
		{name: "at limit", body: strings.Repeat("x", limit), contentLength: limit, wantStatus: http.StatusOK},
		{name: "declared too large", body: strings.Repeat("x", limit+1), contentLength: limit + 1, wantStatus: http.StatusRequestEntityTooLarge, wantEnvelope: true},
		{name: "streamed too large", body: strings.Repeat("x", limit*2), contentLength: -1, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()

			MaxBodySize(limit)(readAll).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if !tt.wantEnvelope {
				return
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Error.Code != "PAYLOAD_TOO_LARGE" {
				t.Errorf("expected code PAYLOAD_TOO_LARGE, got %s", body.Error.Code)
			}
		})
	}
}
