package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/advocacia-ai/painel/internal/handler/dto"
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

// NoteService is the note surface used by NoteHandler.
type NoteService interface {
	Create(ctx context.Context, p model.Principal, leadID string, input service.CreateNoteInput) (*model.Note, error)
	List(ctx context.Context, p model.Principal, leadID string) ([]*model.Note, error)
	Delete(ctx context.Context, p model.Principal, leadID, noteID string) error
}

// NoteHandler serves the notes attached to a lead.
type NoteHandler struct {
	svc    NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(svc NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{svc: svc, logger: logger.With("component", "handler.note")}
}

// Create handles POST /api/v1/leads/{id}/notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.svc.Create(r.Context(), principal(r), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// List handles GET /api/v1/leads/{id}/notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.List(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if notes == nil {
		notes = []*model.Note{}
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Note]{Data: notes})
}

// Delete handles DELETE /api/v1/leads/{id}/notes/{noteID}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), principal(r), chi.URLParam(r, "id"), chi.URLParam(r, "noteID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
