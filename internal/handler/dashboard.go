package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/advocacia-ai/painel/internal/model"
)

// DashboardService computes the per-lawyer dashboard counters.
type DashboardService interface {
	Stats(ctx context.Context, p model.Principal) (*model.DashboardStats, error)
}

// DashboardHandler serves the dashboard summary.
type DashboardHandler struct {
	svc    DashboardService
	logger *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger.With("component", "handler.dashboard")}
}

// Stats handles GET /api/v1/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
