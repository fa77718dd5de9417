package model

import "time"

// Priority of a note or task.
type Priority string

const (
	PriorityLow    Priority = "baixa"
	PriorityMedium Priority = "media"
	PriorityHigh   Priority = "alta"
)

// IsValid checks if the priority is known.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Note is a free-form annotation a lawyer attaches to a lead.
type Note struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"titulo"`
	Content   string    `json:"conteudo"`
	Priority  Priority  `json:"prioridade"`
	CreatedAt time.Time `json:"criada_em"`
	UpdatedAt time.Time `json:"atualizada_em"`
}
