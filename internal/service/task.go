package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/repository"
)

// TaskService manages the principal's to-do list.
type TaskService struct {
	tasks  TaskStore
	stats  StatsCache
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskService creates a new TaskService. stats may be nil.
func NewTaskService(tasks TaskStore, stats StatsCache, logger *slog.Logger) *TaskService {
	return &TaskService{
		tasks:  tasks,
		stats:  stats,
		logger: logger.With("component", "service.task"),
		now:    time.Now,
	}
}

// CreateTaskInput defines input for creating a task.
type CreateTaskInput struct {
	LeadID      string
	Title       string
	Description string
	Priority    model.Priority
	DueAt       *time.Time
}

// UpdateTaskInput holds optional task changes.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Done        *bool
	Priority    *model.Priority
	DueAt       *time.Time
	ClearDueAt  bool
}

// Create stores a task owned by p, optionally tied to one of p's leads.
func (s *TaskService) Create(ctx context.Context, p model.Principal, input CreateTaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLength {
		return nil, invalid("titulo", "is required")
	}
	description := strings.TrimSpace(input.Description)
	if len(description) > maxContentLength {
		return nil, invalid("descricao", "is too long")
	}
	priority, err := normalizePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	task := &model.Task{
		ID:          generateULID(),
		Title:       title,
		Description: description,
		Priority:    priority,
		DueAt:       input.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if leadID := strings.TrimSpace(input.LeadID); leadID != "" {
		task.LeadID = &leadID
	}

	if err := s.tasks.CreateTask(ctx, p, task); err != nil {
		return nil, mapLeadErr(err, "create task")
	}

	invalidateStats(ctx, s.stats, s.logger, p)
	return task, nil
}

// List returns p's tasks, open first.
func (s *TaskService) List(ctx context.Context, p model.Principal, filter model.TaskFilter) ([]*model.Task, error) {
	tasks, err := s.tasks.ListTasks(ctx, p, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update changes one of p's tasks.
func (s *TaskService) Update(ctx context.Context, p model.Principal, id string, input UpdateTaskInput) (*model.Task, error) {
	patch := model.TaskPatch{
		Done:       input.Done,
		DueAt:      input.DueAt,
		ClearDueAt: input.ClearDueAt,
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > maxTitleLength {
			return nil, invalid("titulo", "must not be empty")
		}
		patch.Title = &title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) > maxContentLength {
			return nil, invalid("descricao", "is too long")
		}
		patch.Description = &description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, invalid("prioridade", "must be baixa, media or alta")
		}
		patch.Priority = input.Priority
	}
	if patch.ClearDueAt && patch.DueAt != nil {
		return nil, invalid("data_vencimento", "cannot set and clear at once")
	}
	if patch.Title == nil && patch.Description == nil && patch.Done == nil &&
		patch.Priority == nil && patch.DueAt == nil && !patch.ClearDueAt {
		return nil, invalid("body", "no changes")
	}

	task, err := s.tasks.UpdateTask(ctx, p, id, patch, s.now().UTC())
	if err != nil {
		return nil, mapTaskErr(err, "update task")
	}

	invalidateStats(ctx, s.stats, s.logger, p)
	return task, nil
}

// Delete removes one of p's tasks.
func (s *TaskService) Delete(ctx context.Context, p model.Principal, id string) error {
	if err := s.tasks.DeleteTask(ctx, p, id); err != nil {
		return mapTaskErr(err, "delete task")
	}
	invalidateStats(ctx, s.stats, s.logger, p)
	return nil
}

func mapTaskErr(err error, op string) error {
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
