package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/advocacia-ai/painel/internal/metrics"
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/repository"
)

const (
	defaultPageSize      = 20
	maxPageSize          = 100
	maxDescriptionLength = 10000
)

// LeadService handles lead business logic. Every call is scoped to the
// principal; a lead owned by someone else is reported as ErrNotFound.
type LeadService struct {
	repo    LeadStore
	stats   StatsCache
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewLeadService creates a new LeadService. stats may be nil.
func NewLeadService(repo LeadStore, stats StatsCache, logger *slog.Logger, recorder metrics.Recorder) *LeadService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LeadService{
		repo:    repo,
		stats:   stats,
		logger:  logger.With("component", "service.lead"),
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateLeadInput defines input for creating a lead.
type CreateLeadInput struct {
	ClientName      string
	ClientEmail     string
	ClientPhone     string
	AltPhone        string
	ClientType      model.ClientType
	TaxID           string
	LegalArea       string
	CaseDescription string
	Urgency         model.Urgency
	Address         *model.Address
	PreferredChan   model.ContactChannel
	PreferredTime   string
}

// UpdateLeadInput holds optional lead changes.
type UpdateLeadInput struct {
	Status        *model.LeadStatus
	Qualification *model.Qualification
	Urgency       *model.Urgency
	Analysis      *model.AIAnalysis
}

// LeadPage is one page of a lead listing.
type LeadPage struct {
	Leads      []*model.Lead
	NextCursor string
}

// Create validates input and stores a new lead owned by p.
func (s *LeadService) Create(ctx context.Context, p model.Principal, input CreateLeadInput) (*model.Lead, error) {
	lead, err := s.buildLead(input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateLead(ctx, p, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	s.metrics.IncLeadCreated()
	s.invalidateStats(ctx, p)
	return lead, nil
}

func (s *LeadService) buildLead(input CreateLeadInput) (*model.Lead, error) {
	name := strings.TrimSpace(input.ClientName)
	if name == "" || len(name) > maxNameLength {
		return nil, invalid("nome_cliente", "is required")
	}

	email := model.NormalizeEmail(input.ClientEmail)
	if !model.ValidEmail(email) {
		return nil, invalid("email_cliente", "must be a valid email address")
	}

	phone := strings.TrimSpace(input.ClientPhone)
	if phone == "" {
		return nil, invalid("telefone_cliente", "is required")
	}

	if !input.ClientType.IsValid() {
		return nil, invalid("tipo_cliente", "must be PF or PJ")
	}
	switch input.ClientType {
	case model.ClientIndividual:
		if !model.ValidCPF(input.TaxID) {
			return nil, invalid("cpf_cnpj", "must be a valid CPF")
		}
	case model.ClientCompany:
		if !model.ValidCNPJ(input.TaxID) {
			return nil, invalid("cpf_cnpj", "must be a valid CNPJ")
		}
	}

	area := strings.TrimSpace(input.LegalArea)
	if area == "" {
		return nil, invalid("area_direito", "is required")
	}

	description := strings.TrimSpace(input.CaseDescription)
	if description == "" || len(description) > maxDescriptionLength {
		return nil, invalid("descricao_caso", "is required")
	}

	urgency := input.Urgency
	if urgency == "" {
		urgency = model.UrgencyMedium
	}
	if !urgency.IsValid() {
		return nil, invalid("urgencia", "must be baixa, media, alta or urgente")
	}

	if input.PreferredChan != "" && !input.PreferredChan.IsValid() {
		return nil, invalid("canal_preferido", "must be whatsapp, telefone or email")
	}

	address := input.Address
	if address != nil {
		if err := validateAddress("endereco", address); err != nil {
			return nil, err
		}
		if address.IsZero() {
			address = nil
		}
	}

	now := s.now().UTC()
	return &model.Lead{
		ID:              generateULID(),
		ClientName:      name,
		ClientEmail:     email,
		ClientPhone:     phone,
		AltPhone:        strings.TrimSpace(input.AltPhone),
		ClientType:      input.ClientType,
		TaxID:           model.OnlyDigits(input.TaxID),
		LegalArea:       area,
		CaseDescription: description,
		Urgency:         urgency,
		Status:          model.LeadNew,
		Address:         address,
		PreferredChan:   input.PreferredChan,
		PreferredTime:   strings.TrimSpace(input.PreferredTime),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Get returns one of p's leads.
func (s *LeadService) Get(ctx context.Context, p model.Principal, id string) (*model.Lead, error) {
	lead, err := s.repo.GetLead(ctx, p, id)
	if err != nil {
		return nil, mapLeadErr(err, "get lead")
	}
	return lead, nil
}

// List returns a page of p's leads, newest first.
func (s *LeadService) List(ctx context.Context, p model.Principal, filter model.LeadFilter) (*LeadPage, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, invalid("status", "unknown status")
	}
	if filter.Urgency != "" && !filter.Urgency.IsValid() {
		return nil, invalid("urgencia", "unknown urgency")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	leads, next, err := s.repo.ListLeads(ctx, p, filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, invalid("cursor", "is malformed")
		}
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	if leads == nil {
		leads = []*model.Lead{}
	}
	return &LeadPage{Leads: leads, NextCursor: next}, nil
}

// Update changes the pipeline fields of one of p's leads.
func (s *LeadService) Update(ctx context.Context, p model.Principal, id string, input UpdateLeadInput) (*model.Lead, error) {
	patch := model.LeadPatch(input)
	if patch.IsEmpty() {
		return nil, invalid("body", "no changes")
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, invalid("status", "unknown status")
	}
	if patch.Qualification != nil && !patch.Qualification.IsValid() {
		return nil, invalid("qualificacao", "must be qualificado or desqualificado")
	}
	if patch.Urgency != nil && !patch.Urgency.IsValid() {
		return nil, invalid("urgencia", "unknown urgency")
	}
	if patch.Analysis != nil && (patch.Analysis.Score < 0 || patch.Analysis.Score > 100) {
		return nil, invalid("analise_ia.score", "must be between 0 and 100")
	}

	lead, err := s.repo.UpdateLead(ctx, p, id, patch, s.now().UTC())
	if err != nil {
		return nil, mapLeadErr(err, "update lead")
	}

	s.invalidateStats(ctx, p)
	return lead, nil
}

// Delete removes one of p's leads with its conversation, notes and tasks.
func (s *LeadService) Delete(ctx context.Context, p model.Principal, id string) error {
	if err := s.repo.DeleteLead(ctx, p, id); err != nil {
		return mapLeadErr(err, "delete lead")
	}

	s.metrics.IncLeadDeleted()
	s.invalidateStats(ctx, p)
	return nil
}

func (s *LeadService) invalidateStats(ctx context.Context, p model.Principal) {
	invalidateStats(ctx, s.stats, s.logger, p)
}

func invalidateStats(ctx context.Context, stats StatsCache, logger *slog.Logger, p model.Principal) {
	if stats == nil {
		return
	}
	if err := stats.InvalidateStats(ctx, p.ID); err != nil {
		logger.WarnContext(ctx, "failed to invalidate stats cache", "owner_id", p.ID, "error", err)
	}
}

func mapLeadErr(err error, op string) error {
	if errors.Is(err, repository.ErrLeadNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
