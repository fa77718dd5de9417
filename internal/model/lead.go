package model

import "time"

// ClientType distinguishes individuals (PF) from companies (PJ).
type ClientType string

const (
	ClientIndividual ClientType = "PF"
	ClientCompany    ClientType = "PJ"
)

// IsValid checks if the client type is known.
func (c ClientType) IsValid() bool {
	return c == ClientIndividual || c == ClientCompany
}

// Urgency of a case.
type Urgency string

const (
	UrgencyLow      Urgency = "baixa"
	UrgencyMedium   Urgency = "media"
	UrgencyHigh     Urgency = "alta"
	UrgencyCritical Urgency = "urgente"
)

// IsValid checks if the urgency is known.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const (
	LeadNew        LeadStatus = "novo"
	LeadContacted  LeadStatus = "em_contato"
	LeadInProgress LeadStatus = "em_andamento"
	LeadClosed     LeadStatus = "fechado"
	LeadRejected   LeadStatus = "rejeitado"
)

// IsValid checks if the lead status is known.
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadInProgress, LeadClosed, LeadRejected:
		return true
	}
	return false
}

// Qualification is the lawyer's verdict on a lead.
type Qualification string

const (
	QualificationQualified    Qualification = "qualificado"
	QualificationDisqualified Qualification = "desqualificado"
)

// IsValid checks if the qualification is known.
func (q Qualification) IsValid() bool {
	return q == QualificationQualified || q == QualificationDisqualified
}

// ContactChannel is the client's preferred contact channel.
type ContactChannel string

const (
	ChannelWhatsApp ContactChannel = "whatsapp"
	ChannelPhone    ContactChannel = "telefone"
	ChannelEmail    ContactChannel = "email"
)

// IsValid checks if the channel is known.
func (c ContactChannel) IsValid() bool {
	switch c {
	case ChannelWhatsApp, ChannelPhone, ChannelEmail:
		return true
	}
	return false
}

// AIAnalysis is the automated triage attached to a lead.
type AIAnalysis struct {
	Category        string   `json:"categoria,omitempty"`
	Score           int      `json:"score"`
	Documents       []string `json:"documentos,omitempty"`
	Recommendations []string `json:"recomendacoes,omitempty"`
}

// Lead is a prospective or active client case owned by one lawyer.
// TaxID holds the decrypted CPF/CNPJ and only exists in memory.
type Lead struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"-"`
	ClientName      string         `json:"nome_cliente"`
	ClientEmail     string         `json:"email_cliente"`
	ClientPhone     string         `json:"telefone_cliente"`
	AltPhone        string         `json:"telefone_alternativo,omitempty"`
	ClientType      ClientType     `json:"tipo_cliente"`
	TaxID           string         `json:"cpf_cnpj"`
	LegalArea       string         `json:"area_direito"`
	CaseDescription string         `json:"descricao_caso"`
	Urgency         Urgency        `json:"urgencia"`
	Analysis        *AIAnalysis    `json:"analise_ia,omitempty"`
	Status          LeadStatus     `json:"status"`
	Qualification   *Qualification `json:"qualificacao,omitempty"`
	Address         *Address       `json:"endereco,omitempty"`
	PreferredChan   ContactChannel `json:"canal_preferido,omitempty"`
	PreferredTime   string         `json:"horario_preferido,omitempty"`
	CreatedAt       time.Time      `json:"criado_em"`
	UpdatedAt       time.Time      `json:"atualizado_em"`
}

// LeadPatch holds optional lead changes. Nil fields are left untouched.
type LeadPatch struct {
	Status        *LeadStatus
	Qualification *Qualification
	Urgency       *Urgency
	Analysis      *AIAnalysis
}

// IsEmpty reports whether the patch changes nothing.
func (p LeadPatch) IsEmpty() bool {
	return p.Status == nil && p.Qualification == nil && p.Urgency == nil && p.Analysis == nil
}

// LeadFilter narrows a lead listing. Zero values mean "any".
type LeadFilter struct {
	Status    LeadStatus
	LegalArea string
	Urgency   Urgency
	Cursor    string
	Limit     int
}
