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

// Common errors for credential operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrOABExists    = errors.New("oab registration already exists")
	ErrCNPJExists   = errors.New("cnpj already exists")
)

const userColumns = `id, email, full_name, password_hash, is_active, email_verified, created_at, updated_at`

// CreateLawyer inserts a user and its professional profile in one transaction.
// Uniqueness of email, OAB registration and CNPJ is enforced by constraints;
// a violation rolls back both rows.
func (r *Repository) CreateLawyer(ctx context.Context, user *model.User, profile *model.LawyerProfile) error {
	sealedTaxID, err := r.sealer.Seal(profile.TaxID)
	if err != nil {
		return fmt.Errorf("failed to seal tax id: %w", err)
	}

	err = r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, full_name, password_hash, is_active, email_verified, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			user.ID,
			user.Email,
			user.FullName,
			user.PasswordHash,
			user.IsActive,
			user.EmailVerified,
			user.CreatedAt,
			user.UpdatedAt,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO lawyer_profiles (
				id, user_id, name, kind, tax_id_encrypted, oab_numero, oab_estado, oab_verified,
				cnpj, phone, email, address, areas, cities, states, schedule, plan, active,
				created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		`,
			profile.ID,
			profile.UserID,
			profile.Name,
			profile.Kind,
			sealedTaxID,
			profile.OABNumber,
			profile.OABState,
			profile.OABVerified,
			nullableString(profile.CNPJ),
			nullableString(profile.Phone),
			nullableString(profile.Email),
			profile.Address,
			pq.Array(nonNil(profile.Areas)),
			pq.Array(nonNil(profile.Cities)),
			pq.Array(nonNil(profile.States)),
			nullableSchedule(profile.Schedule),
			profile.Plan,
			profile.Active,
			profile.CreatedAt,
			profile.UpdatedAt,
		)
		return err
	})
	if err != nil {
		switch uniqueConstraint(err) {
		case constraintUserEmail:
			return ErrEmailExists
		case constraintProfileOAB:
			return ErrOABExists
		case constraintProfileCNPJ:
			return ErrCNPJExists
		}
		return fmt.Errorf("failed to create lawyer: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their normalized email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// EmailExists checks if an account already uses email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// OABExists checks if a profile already uses the OAB registration.
func (r *Repository) OABExists(ctx context.Context, number, state string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM lawyer_profiles WHERE oab_numero = $1 AND oab_estado = $2)`,
		number, state,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check oab existence: %w", err)
	}
	return exists, nil
}

// UpdatePasswordHash replaces the stored password digest.
func (r *Repository) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	return r.updateUser(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, userID, hash, at)
}

// MarkEmailVerified flags the user's email as confirmed.
func (r *Repository) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	return r.updateUser(ctx, `UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`, userID, at)
}

// SetUserActive soft-activates or soft-deactivates an account.
func (r *Repository) SetUserActive(ctx context.Context, userID string, active bool, at time.Time) error {
	return r.updateUser(ctx, `UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`, userID, active, at)
}

func (r *Repository) updateUser(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.IsActive,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return &user, err
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableSchedule(s model.Schedule) any {
	if len(s) == 0 {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
