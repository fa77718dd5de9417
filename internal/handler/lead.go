package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/advocacia-ai/painel/internal/handler/dto"
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

// LeadService is the lead surface used by LeadHandler.
type LeadService interface {
	Create(ctx context.Context, p model.Principal, input service.CreateLeadInput) (*model.Lead, error)
	Get(ctx context.Context, p model.Principal, id string) (*model.Lead, error)
	List(ctx context.Context, p model.Principal, filter model.LeadFilter) (*service.LeadPage, error)
	Update(ctx context.Context, p model.Principal, id string, input service.UpdateLeadInput) (*model.Lead, error)
	Delete(ctx context.Context, p model.Principal, id string) error
}

// LeadHandler handles HTTP requests for lead operations.
type LeadHandler struct {
	svc    LeadService
	logger *slog.Logger
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(svc LeadService, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{svc: svc, logger: logger.With("component", "handler.lead")}
}

// Create handles POST /api/v1/leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.svc.Create(r.Context(), principal(r), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "lead_created",
		"lead_id", lead.ID,
		"area", lead.LegalArea,
		"urgency", lead.Urgency,
	)
	writeJSON(w, http.StatusCreated, lead)
}

// Get handles GET /api/v1/leads/{id}.
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.svc.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// List handles GET /api/v1/leads.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := model.LeadFilter{
		Status:    model.LeadStatus(query.Get("status")),
		LegalArea: query.Get("area_direito"),
		Urgency:   model.Urgency(query.Get("urgencia")),
		Cursor:    query.Get("cursor"),
	}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	page, err := h.svc.List(r.Context(), principal(r), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToLeadPage(page))
}

// Update handles PUT /api/v1/leads/{id}.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.svc.Update(r.Context(), principal(r), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "lead_updated", "lead_id", lead.ID, "status", lead.Status)
	writeJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /api/v1/leads/{id}.
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), principal(r), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "lead_deleted", "lead_id", id)
	w.WriteHeader(http.StatusNoContent)
}
