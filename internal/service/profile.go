package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/repository"
)

// ProfileService reads and edits the principal's professional profile.
type ProfileService struct {
	repo ProfileStore
	now  func() time.Time
}

// NewProfileService creates a new ProfileService.
func NewProfileService(repo ProfileStore) *ProfileService {
	return &ProfileService{repo: repo, now: time.Now}
}

// UpdateProfileInput holds optional profile changes. Nil fields are left untouched.
type UpdateProfileInput struct {
	Name     *string
	Phone    *string
	Email    *string
	Address  *model.Address
	Areas    []string
	Cities   []string
	States   []string
	Schedule model.Schedule
	Active   *bool
}

// Get returns the principal's profile.
func (s *ProfileService) Get(ctx context.Context, p model.Principal) (*model.LawyerProfile, error) {
	profile, err := s.repo.GetProfile(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// Update validates and applies profile changes.
func (s *ProfileService) Update(ctx context.Context, p model.Principal, input UpdateProfileInput) (*model.LawyerProfile, error) {
	patch := model.ProfilePatch{
		Phone:    input.Phone,
		Areas:    input.Areas,
		Cities:   input.Cities,
		Schedule: input.Schedule,
		Active:   input.Active,
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxNameLength {
			return nil, invalid("nome", "must not be empty")
		}
		patch.Name = &name
	}

	if input.Email != nil {
		email := model.NormalizeEmail(*input.Email)
		if email != "" && !model.ValidEmail(email) {
			return nil, invalid("email", "must be a valid email address")
		}
		patch.Email = &email
	}

	if input.Address != nil {
		if err := validateAddress("endereco", input.Address); err != nil {
			return nil, err
		}
		patch.Address = input.Address
	}

	if input.Areas != nil {
		patch.Areas = trimAll(input.Areas)
	}
	if input.Cities != nil {
		patch.Cities = trimAll(input.Cities)
	}
	if input.States != nil {
		states, err := normalizeStates("estados", input.States)
		if err != nil {
			return nil, err
		}
		patch.States = states
	}
	if bad := input.Schedule.UnknownDays(); len(bad) > 0 {
		return nil, invalid("horario_atendimento", "unknown day "+bad[0])
	}

	profile, err := s.repo.UpdateProfile(ctx, p, patch, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

func validateAddress(field string, a *model.Address) error {
	if a.State != "" {
		a.State = strings.ToUpper(strings.TrimSpace(a.State))
		if !model.ValidUF(a.State) {
			return invalid(field+".estado", "must be a Brazilian state code")
		}
	}
	if a.PostalCode != "" {
		cep := model.OnlyDigits(a.PostalCode)
		if len(cep) != 8 {
			return invalid(field+".cep", "must have 8 digits")
		}
		a.PostalCode = cep
	}
	return nil
}
