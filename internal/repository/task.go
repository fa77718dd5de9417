package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/advocacia-ai/painel/internal/model"
)

// ErrTaskNotFound is returned when a task does not exist or belongs to another owner.
var ErrTaskNotFound = errors.New("task not found")

const taskColumns = `id, owner_id, lead_id, title, COALESCE(description, ''), done, priority, due_at, created_at, updated_at`

// CreateTask inserts a task owned by the principal. When the task references
// a lead, the lead must belong to the same principal (enforced by the
// (lead_id, owner_id) foreign key).
func (r *Repository) CreateTask(ctx context.Context, p model.Principal, task *model.Task) error {
	query := `
		INSERT INTO tasks (id, owner_id, lead_id, title, description, done, priority, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		task.ID,
		p.ID,
		task.LeadID,
		task.Title,
		nullableString(task.Description),
		task.Done,
		task.Priority,
		task.DueAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrLeadNotFound
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.OwnerID = p.ID
	return nil
}

// GetTask retrieves a task by ID and owner in a single filter.
func (r *Repository) GetTask(ctx context.Context, p model.Principal, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`

	task, err := scanTask(r.pool.QueryRow(ctx, query, id, p.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves the principal's tasks: open first, then by due date.
func (r *Repository) ListTasks(ctx context.Context, p model.Principal, filter model.TaskFilter) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`
	args := []any{p.ID}
	argIndex := 2

	if filter.LeadID != "" {
		query += fmt.Sprintf(" AND lead_id = $%d", argIndex)
		args = append(args, filter.LeadID)
		argIndex++
	}

	if filter.Done != nil {
		query += fmt.Sprintf(" AND done = $%d", argIndex)
		args = append(args, *filter.Done)
	}

	query += " ORDER BY done ASC, due_at ASC NULLS LAST, created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask applies patch to a task the principal owns and returns the result.
func (r *Repository) UpdateTask(ctx context.Context, p model.Principal, id string, patch model.TaskPatch, at time.Time) (*model.Task, error) {
	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    done = COALESCE($5, done),
		    priority = COALESCE($6, priority),
		    due_at = CASE WHEN $8 THEN NULL ELSE COALESCE($7, due_at) END,
		    updated_at = $9
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns

	task, err := scanTask(r.pool.QueryRow(ctx, query,
		id,
		p.ID,
		patch.Title,
		patch.Description,
		patch.Done,
		patch.Priority,
		patch.DueAt,
		patch.ClearDueAt,
		at,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// DeleteTask removes a task the principal owns.
func (r *Repository) DeleteTask(ctx context.Context, p model.Principal, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, p.ID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var task model.Task
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.LeadID,
		&task.Title,
		&task.Description,
		&task.Done,
		&task.Priority,
		&task.DueAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	return &task, err
}
