package dto

import (
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

// UpdateProfileRequest is the body of PUT /api/v1/profile. Omitted fields
// are left unchanged.
type UpdateProfileRequest struct {
	Name     *string        `json:"nome,omitempty"`
	Phone    *string        `json:"telefone,omitempty"`
	Email    *string        `json:"email,omitempty"`
	Address  *model.Address `json:"endereco,omitempty"`
	Areas    []string       `json:"areas,omitempty"`
	Cities   []string       `json:"cidades,omitempty"`
	States   []string       `json:"estados,omitempty"`
	Schedule model.Schedule `json:"horario_atendimento,omitempty"`
	Active   *bool          `json:"ativo,omitempty"`
}

// ToInput converts the request into service input.
func (r UpdateProfileRequest) ToInput() service.UpdateProfileInput {
	return service.UpdateProfileInput(r)
}
