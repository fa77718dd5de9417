package dto

import (
	"time"

	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

// AppendMessageRequest is the body of POST /api/v1/leads/{id}/messages.
type AppendMessageRequest struct {
	Kind model.MessageKind `json:"kind,omitempty"`
	Text string            `json:"text"`
}

// MarkReadRequest is the optional body of POST /api/v1/leads/{id}/messages/read.
type MarkReadRequest struct {
	Kind model.MessageKind `json:"kind,omitempty"`
}

// MarkReadResponse reports how many messages changed.
type MarkReadResponse struct {
	Updated int `json:"updated"`
}

// CreateNoteRequest is the body of POST /api/v1/leads/{id}/notes.
type CreateNoteRequest struct {
	Title    string         `json:"titulo"`
	Content  string         `json:"conteudo,omitempty"`
	Priority model.Priority `json:"prioridade,omitempty"`
}

// ToInput converts the request into service input.
func (r CreateNoteRequest) ToInput() service.CreateNoteInput {
	return service.CreateNoteInput(r)
}

// CreateTaskRequest is the body of POST /api/v1/tasks.
type CreateTaskRequest struct {
	LeadID      string         `json:"lead_id,omitempty"`
	Title       string         `json:"titulo"`
	Description string         `json:"descricao,omitempty"`
	Priority    model.Priority `json:"prioridade,omitempty"`
	DueAt       *time.Time     `json:"data_vencimento,omitempty"`
}

// ToInput converts the request into service input.
func (r CreateTaskRequest) ToInput() service.CreateTaskInput {
	return service.CreateTaskInput(r)
}

// UpdateTaskRequest is the body of PUT /api/v1/tasks/{id}.
type UpdateTaskRequest struct {
	Title       *string         `json:"titulo,omitempty"`
	Description *string         `json:"descricao,omitempty"`
	Done        *bool           `json:"concluida,omitempty"`
	Priority    *model.Priority `json:"prioridade,omitempty"`
	DueAt       *time.Time      `json:"data_vencimento,omitempty"`
	ClearDueAt  bool            `json:"remover_vencimento,omitempty"`
}

// ToInput converts the request into service input.
func (r UpdateTaskRequest) ToInput() service.UpdateTaskInput {
	return service.UpdateTaskInput(r)
}
