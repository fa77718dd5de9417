package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/advocacia-ai/painel/internal/handler/dto"
	"github.com/advocacia-ai/painel/internal/model"
)

// ConversationService is the messaging surface used by ConversationHandler.
type ConversationService interface {
	Append(ctx context.Context, p model.Principal, leadID string, kind model.MessageKind, text string) (*model.Message, error)
	Messages(ctx context.Context, p model.Principal, leadID string) ([]model.Message, error)
	MarkRead(ctx context.Context, p model.Principal, leadID string, kind model.MessageKind) (int, error)
}

// ConversationHandler serves the message history of a lead.
type ConversationHandler struct {
	svc    ConversationService
	logger *slog.Logger
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(svc ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{svc: svc, logger: logger.With("component", "handler.conversation")}
}

// Append handles POST /api/v1/leads/{id}/messages.
func (h *ConversationHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req dto.AppendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.svc.Append(r.Context(), principal(r), chi.URLParam(r, "id"), req.Kind, req.Text)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// List handles GET /api/v1/leads/{id}/messages.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Messages(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[model.Message]{Data: msgs})
}

// MarkRead handles POST /api/v1/leads/{id}/messages/read.
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req dto.MarkReadRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	n, err := h.svc.MarkRead(r.Context(), principal(r), chi.URLParam(r, "id"), req.Kind)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MarkReadResponse{Updated: n})
}
