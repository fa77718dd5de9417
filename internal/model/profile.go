package model

import (
	"slices"
	"time"
)

// ProfileKind distinguishes a solo lawyer from a law firm.
type ProfileKind string

const (
	ProfileIndividual ProfileKind = "individual"
	ProfileFirm       ProfileKind = "sociedade"
)

// IsValid checks if the profile kind is known.
func (k ProfileKind) IsValid() bool {
	return k == ProfileIndividual || k == ProfileFirm
}

// PlanTier is the subscription tier of a lawyer.
type PlanTier string

const (
	PlanBasic        PlanTier = "basico"
	PlanProfessional PlanTier = "profissional"
	PlanPremium      PlanTier = "premium"
)

// PlanLeadLimits maps tiers to the number of leads included per month.
// Zero means unlimited.
var PlanLeadLimits = map[PlanTier]int{
	PlanBasic:        10,
	PlanProfessional: 50,
	PlanPremium:      0,
}

// Plan describes the lawyer's subscription.
type Plan struct {
	Tier      PlanTier `json:"tier"`
	LeadLimit int      `json:"lead_limit"`
}

// DefaultPlan returns the plan assigned at registration.
func DefaultPlan() Plan {
	return Plan{Tier: PlanBasic, LeadLimit: PlanLeadLimits[PlanBasic]}
}

// Address is a Brazilian postal address. All fields are optional.
type Address struct {
	Street     string `json:"logradouro,omitempty"`
	Number     string `json:"numero,omitempty"`
	Complement string `json:"complemento,omitempty"`
	District   string `json:"bairro,omitempty"`
	PostalCode string `json:"cep,omitempty"`
	City       string `json:"cidade,omitempty"`
	State      string `json:"estado,omitempty"`
}

// IsZero reports whether no field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Weekday keys accepted in a Schedule.
var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Schedule maps a weekday key to an opening window such as "09:00-18:00".
type Schedule map[string]string

// UnknownDays returns keys that are not weekday keys.
func (s Schedule) UnknownDays() []string {
	var bad []string
	for day := range s {
		if !slices.Contains(Weekdays, day) {
			bad = append(bad, day)
		}
	}
	slices.Sort(bad)
	return bad
}

// LawyerProfile is the professional profile created together with the account.
// TaxID holds the decrypted CPF/CNPJ and only exists in memory.
type LawyerProfile struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Name        string      `json:"nome"`
	Kind        ProfileKind `json:"tipo"`
	TaxID       string      `json:"cpf_cnpj,omitempty"`
	OABNumber   string      `json:"oab_numero"`
	OABState    string      `json:"oab_estado"`
	OABVerified bool        `json:"verificado_oab"`
	CNPJ        string      `json:"cnpj,omitempty"`
	Phone       string      `json:"telefone,omitempty"`
	Email       string      `json:"email,omitempty"`
	Address     *Address    `json:"endereco,omitempty"`
	Areas       []string    `json:"areas"`
	Cities      []string    `json:"cidades"`
	States      []string    `json:"estados"`
	Schedule    Schedule    `json:"horario_atendimento,omitempty"`
	Plan        Plan        `json:"plano"`
	Active      bool        `json:"ativo"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ProfilePatch holds optional profile changes. Nil fields are left untouched.
type ProfilePatch struct {
	Name     *string
	Phone    *string
	Email    *string
	Address  *Address
	Areas    []string
	Cities   []string
	States   []string
	Schedule Schedule
	Active   *bool
}
