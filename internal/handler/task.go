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

// TaskService is the task surface used by TaskHandler.
type TaskService interface {
	Create(ctx context.Context, p model.Principal, input service.CreateTaskInput) (*model.Task, error)
	List(ctx context.Context, p model.Principal, filter model.TaskFilter) ([]*model.Task, error)
	Update(ctx context.Context, p model.Principal, id string, input service.UpdateTaskInput) (*model.Task, error)
	Delete(ctx context.Context, p model.Principal, id string) error
}

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	svc    TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger.With("component", "handler.task")}
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.svc.Create(r.Context(), principal(r), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.TaskFilter{LeadID: query.Get("lead_id")}
	if d := query.Get("concluida"); d != "" {
		done, err := strconv.ParseBool(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "concluida must be true or false")
			return
		}
		filter.Done = &done
	}

	tasks, err := h.svc.List(r.Context(), principal(r), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.Task]{Data: tasks})
}

// Update handles PUT /api/v1/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.svc.Update(r.Context(), principal(r), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
