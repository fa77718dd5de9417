package dto

import (
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

// CreateLeadRequest is the body of POST /api/v1/leads.
type CreateLeadRequest struct {
	ClientName      string               `json:"nome_cliente"`
	ClientEmail     string               `json:"email_cliente"`
	ClientPhone     string               `json:"telefone_cliente"`
	AltPhone        string               `json:"telefone_alternativo,omitempty"`
	ClientType      model.ClientType     `json:"tipo_cliente"`
	TaxID           string               `json:"cpf_cnpj"`
	LegalArea       string               `json:"area_direito"`
	CaseDescription string               `json:"descricao_caso"`
	Urgency         model.Urgency        `json:"urgencia,omitempty"`
	Address         *model.Address       `json:"endereco,omitempty"`
	PreferredChan   model.ContactChannel `json:"canal_preferido,omitempty"`
	PreferredTime   string               `json:"horario_preferido,omitempty"`
}

// ToInput converts the request into service input.
func (r CreateLeadRequest) ToInput() service.CreateLeadInput {
	return service.CreateLeadInput(r)
}

// UpdateLeadRequest is the body of PUT /api/v1/leads/{id}.
type UpdateLeadRequest struct {
	Status        *model.LeadStatus    `json:"status,omitempty"`
	Qualification *model.Qualification `json:"qualificacao,omitempty"`
	Urgency       *model.Urgency       `json:"urgencia,omitempty"`
	Analysis      *model.AIAnalysis    `json:"analise_ia,omitempty"`
}

// ToInput converts the request into service input.
func (r UpdateLeadRequest) ToInput() service.UpdateLeadInput {
	return service.UpdateLeadInput(r)
}

// ToLeadPage converts a service page into the paginated envelope.
func ToLeadPage(page *service.LeadPage) *PageResponse[*model.Lead] {
	return &PageResponse[*model.Lead]{
		Data: page.Leads,
		Pagination: &Pagination{
			NextCursor: page.NextCursor,
			HasMore:    page.NextCursor != "",
		},
	}
}
