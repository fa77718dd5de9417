package model

import "time"

// Task is a to-do item, optionally tied to a lead.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"-"`
	LeadID      *string    `json:"lead_id,omitempty"`
	Title       string     `json:"titulo"`
	Description string     `json:"descricao,omitempty"`
	Done        bool       `json:"concluida"`
	Priority    Priority   `json:"prioridade"`
	DueAt       *time.Time `json:"data_vencimento,omitempty"`
	CreatedAt   time.Time  `json:"criada_em"`
	UpdatedAt   time.Time  `json:"atualizada_em"`
}

// IsOverdue reports whether an open task is past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Done && t.DueAt != nil && now.After(*t.DueAt)
}

// TaskPatch holds optional task changes. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Done        *bool
	Priority    *Priority
	DueAt       *time.Time
	ClearDueAt  bool
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	LeadID string
	Done   *bool
}
