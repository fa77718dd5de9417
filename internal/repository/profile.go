package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/advocacia-ai/painel/internal/model"
)

// ErrProfileNotFound is returned when the principal has no profile.
var ErrProfileNotFound = errors.New("profile not found")

const profileColumns = `
	id, user_id, name, kind, tax_id_encrypted, oab_numero, oab_estado, oab_verified,
	COALESCE(cnpj, ''), COALESCE(phone, ''), COALESCE(email, ''), address, areas, cities, states,
	schedule, plan, active, created_at, updated_at`

// GetProfile retrieves the principal's professional profile.
func (r *Repository) GetProfile(ctx context.Context, p model.Principal) (*model.LawyerProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM lawyer_profiles WHERE user_id = $1`

	profile, err := r.scanProfile(r.pool.QueryRow(ctx, query, p.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpdateProfile applies patch to the principal's profile and returns the result.
func (r *Repository) UpdateProfile(ctx context.Context, p model.Principal, patch model.ProfilePatch, at time.Time) (*model.LawyerProfile, error) {
	query := `
		UPDATE lawyer_profiles
		SET name = COALESCE($2, name),
		    phone = COALESCE($3, phone),
		    email = COALESCE($4, email),
		    address = COALESCE($5, address),
		    areas = COALESCE($6, areas),
		    cities = COALESCE($7, cities),
		    states = COALESCE($8, states),
		    schedule = COALESCE($9, schedule),
		    active = COALESCE($10, active),
		    updated_at = $11
		WHERE user_id = $1
		RETURNING ` + profileColumns

	profile, err := r.scanProfile(r.pool.QueryRow(ctx, query,
		p.ID,
		patch.Name,
		patch.Phone,
		patch.Email,
		patch.Address,
		nullableArray(patch.Areas),
		nullableArray(patch.Cities),
		nullableArray(patch.States),
		nullableSchedule(patch.Schedule),
		patch.Active,
		at,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

func (r *Repository) scanProfile(row pgx.Row) (*model.LawyerProfile, error) {
	var (
		profile model.LawyerProfile
		sealed  []byte
	)
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Name,
		&profile.Kind,
		&sealed,
		&profile.OABNumber,
		&profile.OABState,
		&profile.OABVerified,
		&profile.CNPJ,
		&profile.Phone,
		&profile.Email,
		&profile.Address,
		pq.Array(&profile.Areas),
		pq.Array(&profile.Cities),
		pq.Array(&profile.States),
		&profile.Schedule,
		&profile.Plan,
		&profile.Active,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.TaxID, err = r.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open tax id: %w", err)
	}

	return &profile, nil
}

// nullableArray maps a nil slice to SQL NULL so COALESCE keeps the column.
func nullableArray(s []string) any {
	if s == nil {
		return nil
	}
	return pq.Array(s)
}
