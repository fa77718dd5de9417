package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/advocacia-ai/painel/internal/auth"
	"github.com/advocacia-ai/painel/internal/handler/dto"
	"github.com/advocacia-ai/painel/internal/middleware"
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testPrincipal = model.Principal{ID: "user-1", Email: "ana@example.com", IsActive: true}

// stubResolver accepts the token "good" and rejects everything else.
type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, token string) (model.Principal, error) {
	switch token {
	case "good":
		return testPrincipal, nil
	case "inactive":
		return model.Principal{}, &service.AuthError{Reason: service.ReasonInactive}
	case "":
		return model.Principal{}, &service.AuthError{Reason: service.ReasonMissing}
	default:
		return model.Principal{}, &service.AuthError{Reason: service.ReasonInvalid}
	}
}

type stubAuthService struct {
	registerErr error
	loginErr    error
}

func (s *stubAuthService) Register(_ context.Context, input service.RegisterInput) (*service.AuthResult, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &service.AuthResult{
		AccessToken: "tok",
		TokenType:   "Bearer",
		ExpiresIn:   30 * time.Minute,
		UserID:      "user-1",
		Email:       input.Email,
	}, nil
}

func (s *stubAuthService) Login(_ context.Context, email, _ string) (*service.AuthResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &service.AuthResult{AccessToken: "tok", TokenType: "Bearer", ExpiresIn: time.Minute, UserID: "user-1", Email: email}, nil
}

func (s *stubAuthService) RequestPasswordReset(context.Context, string) error { return nil }
func (s *stubAuthService) ResetPassword(context.Context, string, string) error {
	return service.ErrInvalidToken
}
func (s *stubAuthService) ConfirmEmail(context.Context, string) error       { return nil }
func (s *stubAuthService) Deactivate(context.Context, model.Principal) error { return nil }

type stubLeadService struct {
	leads map[string]*model.Lead
}

func (s *stubLeadService) Create(_ context.Context, p model.Principal, input service.CreateLeadInput) (*model.Lead, error) {
	if input.ClientName == "" {
		return nil, &service.ValidationError{Field: "nome_cliente", Message: "is required"}
	}
	lead := &model.Lead{ID: "lead-new", OwnerID: p.ID, ClientName: input.ClientName, Status: model.LeadNew}
	return lead, nil
}

func (s *stubLeadService) Get(_ context.Context, p model.Principal, id string) (*model.Lead, error) {
	lead, ok := s.leads[id]
	if !ok || lead.OwnerID != p.ID {
		return nil, service.ErrNotFound
	}
	return lead, nil
}

func (s *stubLeadService) List(_ context.Context, p model.Principal, filter model.LeadFilter) (*service.LeadPage, error) {
	page := &service.LeadPage{Leads: []*model.Lead{}}
	for _, lead := range s.leads {
		if lead.OwnerID == p.ID {
			page.Leads = append(page.Leads, lead)
		}
	}
	if filter.Limit == 1 {
		page.NextCursor = "next"
	}
	return page, nil
}

func (s *stubLeadService) Update(ctx context.Context, p model.Principal, id string, _ service.UpdateLeadInput) (*model.Lead, error) {
	return s.Get(ctx, p, id)
}

func (s *stubLeadService) Delete(ctx context.Context, p model.Principal, id string) error {
	_, err := s.Get(ctx, p, id)
	return err
}

type stubConversationService struct{}

func (stubConversationService) Append(_ context.Context, _ model.Principal, leadID string, kind model.MessageKind, text string) (*model.Message, error) {
	if leadID != "lead-1" {
		return nil, service.ErrNotFound
	}
	return &model.Message{Kind: kind, Text: text, SentAt: time.Unix(0, 0).UTC()}, nil
}

func (stubConversationService) Messages(context.Context, model.Principal, string) ([]model.Message, error) {
	return nil, nil
}

func (stubConversationService) MarkRead(context.Context, model.Principal, string, model.MessageKind) (int, error) {
	return 2, nil
}

type stubDashboardService struct {
	err error
}

func (s stubDashboardService) Stats(context.Context, model.Principal) (*model.DashboardStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.DashboardStats{TotalLeads: 4, ClosedLeads: 1, ConversionRate: 25}, nil
}

func newTestRouter(authSvc *stubAuthService, dash stubDashboardService) http.Handler {
	logger := discardLogger()
	leads := &stubLeadService{leads: map[string]*model.Lead{
		"lead-1": {ID: "lead-1", OwnerID: "user-1", ClientName: "Maria", Status: model.LeadNew},
		"lead-2": {ID: "lead-2", OwnerID: "user-2", ClientName: "João", Status: model.LeadNew},
	}}

	return NewRouter(RouterConfig{
		Logger:       logger,
		Health:       NewHealthHandler(nil, nil, logger),
		Auth:         NewAuthHandler(authSvc, logger),
		Leads:        NewLeadHandler(leads, logger),
		Conversation: NewConversationHandler(stubConversationService{}, logger),
		Dashboard:    NewDashboardHandler(dash, logger),
		Resolver:     stubResolver{},
		Security:     middleware.SecurityConfig{IsDevelopment: true},
		CORS:         middleware.DefaultCORSConfig(),
		MaxBodySize:  1 << 10,
	})
}

func doRequest(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorDetail {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp.Error
}

func TestRouter_Register(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	rec := doRequest(router, http.MethodPost, "/api/v1/auth/register", "",
		`{"email":"ana@example.com","password":"s3cret-pass","full_name":"Ana","nome":"Ana","tipo":"advogado","oab_numero":"123456","oab_estado":"SP"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AccessToken != "tok" || resp.TokenType != "Bearer" {
		t.Errorf("unexpected token fields: %+v", resp)
	}
	if resp.ExpiresIn != 1800 {
		t.Errorf("expected expires_in 1800, got %d", resp.ExpiresIn)
	}
	if resp.Email != "ana@example.com" {
		t.Errorf("unexpected email: %s", resp.Email)
	}
}

func TestRouter_RegisterConflict(t *testing.T) {
	router := newTestRouter(&stubAuthService{registerErr: service.ErrOABTaken}, stubDashboardService{})

	rec := doRequest(router, http.MethodPost, "/api/v1/auth/register", "", `{"email":"ana@example.com"}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	detail := decodeErrorBody(t, rec)
	if detail.Code != "CONFLICT" {
		t.Errorf("expected code CONFLICT, got %s", detail.Code)
	}
	if !strings.Contains(detail.Message, "OAB") {
		t.Errorf("expected OAB conflict message, got %q", detail.Message)
	}
}

func TestRouter_LoginInvalidCredentials(t *testing.T) {
	router := newTestRouter(&stubAuthService{loginErr: service.ErrInvalidCredentials}, stubDashboardService{})

	rec := doRequest(router, http.MethodPost, "/api/v1/auth/login", "", `{"email":"ana@example.com","password":"wrong"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if detail := decodeErrorBody(t, rec); detail.Code != "UNAUTHORIZED" {
		t.Errorf("expected code UNAUTHORIZED, got %s", detail.Code)
	}
}

func TestRouter_PasswordResetStatuses(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	rec := doRequest(router, http.MethodPost, "/api/v1/auth/password-reset", "", `{"email":"nobody@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", `{"token":"x","new_password":"another-pass"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for bad reset token, got %d", rec.Code)
	}
}

func TestRouter_Authentication(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"invalid token", "forged", http.StatusUnauthorized},
		{"deactivated account", "inactive", http.StatusForbidden},
		{"valid token", "good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, "/api/v1/dashboard/stats", tt.token, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRouter_LeadTenantIsolation(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	rec := doRequest(router, http.MethodGet, "/api/v1/leads/lead-1", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected own lead to be visible, got %d", rec.Code)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = doRequest(router, method, "/api/v1/leads/lead-2", "good", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s foreign lead: expected 404, got %d", method, rec.Code)
		}
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/leads/missing", "good", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown lead, got %d", rec.Code)
	}
}

func TestRouter_LeadCreate(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	t.Run("created", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/api/v1/leads", "good", `{"nome_cliente":"Maria"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		var lead model.Lead
		if err := json.NewDecoder(rec.Body).Decode(&lead); err != nil {
			t.Fatalf("failed to decode lead: %v", err)
		}
		if lead.ID != "lead-new" || lead.ClientName != "Maria" {
			t.Errorf("unexpected lead: %+v", lead)
		}
	})

	t.Run("validation error names field", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/api/v1/leads", "good", `{"nome_cliente":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		detail := decodeErrorBody(t, rec)
		if detail.Code != "VALIDATION_ERROR" || detail.Field != "nome_cliente" {
			t.Errorf("unexpected error detail: %+v", detail)
		}
	})
}

func TestRouter_LeadList(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	rec := doRequest(router, http.MethodGet, "/api/v1/leads?limit=1", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var page dto.PageResponse[model.Lead]
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode page: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != "lead-1" {
		t.Errorf("expected only the caller's lead, got %+v", page.Data)
	}
	if page.Pagination == nil || !page.Pagination.HasMore || page.Pagination.NextCursor != "next" {
		t.Errorf("unexpected pagination: %+v", page.Pagination)
	}

	for _, limit := range []string{"abc", "0", "-3"} {
		rec = doRequest(router, http.MethodGet, "/api/v1/leads?limit="+limit, "good", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", limit, rec.Code)
		}
	}
}

func TestRouter_Messages(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	rec := doRequest(router, http.MethodPost, "/api/v1/leads/lead-1/messages", "good", `{"kind":"lawyer","text":"Olá"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/leads/lead-1/messages", "good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"data":[]}` {
		t.Errorf("expected empty data array, got %s", body)
	}

	rec = doRequest(router, http.MethodPost, "/api/v1/leads/lead-9/messages", "good", `{"kind":"client","text":"Oi"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_DashboardInternalError(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{err: errors.New("pq: connection refused to 10.0.0.5")})

	rec := doRequest(router, http.MethodGet, "/api/v1/dashboard/stats", "good", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Error("internal error detail leaked into response")
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&stubAuthService{}, stubDashboardService{})

	rec := doRequest(router, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if detail := decodeErrorBody(t, rec); detail.Code != "NOT_FOUND" {
		t.Errorf("expected code NOT_FOUND, got %s", detail.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/auth/login", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"field validation", &service.ValidationError{Field: "email", Message: "is invalid"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrapped validation", fmt.Errorf("bad cursor: %w", service.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unauthorized", service.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", service.ErrAccountInactive, http.StatusForbidden, "FORBIDDEN"},
		{"not found", fmt.Errorf("failed to get lead: %w", service.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", service.ErrEmailTaken, http.StatusConflict, "CONFLICT"},
		{"rate limited", service.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			writeServiceError(rec, req, discardLogger(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if detail := decodeErrorBody(t, rec); detail.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, detail.Code)
			}
			if tt.wantStatus == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
				t.Error("expected Retry-After header")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"email":"a@b.com","password":"x"}`, true, http.StatusOK},
		{"unknown field", `{"email":"a@b.com","admin":true}`, false, http.StatusBadRequest},
		{"trailing data", `{"email":"a@b.com"}{"email":"c@d.com"}`, false, http.StatusBadRequest},
		{"malformed", `{"email":`, false, http.StatusBadRequest},
		{"too large", `{"email":"` + strings.Repeat("a", 64) + `"}`, false, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			req.Body = http.MaxBytesReader(rec, req.Body, 48)

			var dst dto.LoginRequest
			ok := decodeJSON(rec, req, &dst)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestPrincipalFromAuthenticatedContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), testPrincipal))

	if got := principal(req); got.ID != testPrincipal.ID {
		t.Errorf("expected principal %s, got %s", testPrincipal.ID, got.ID)
	}
}
