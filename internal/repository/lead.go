package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/advocacia-ai/painel/internal/model"
)

// ErrLeadNotFound is returned when a lead does not exist or belongs to another owner.
var ErrLeadNotFound = errors.New("lead not found")

// PaginationCursor represents decoded cursor for pagination.
type PaginationCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

const leadColumns = `
	id, owner_id, client_name, client_email, client_phone, COALESCE(alt_phone, ''), client_type,
	tax_id_encrypted, legal_area, case_description, urgency, analysis, status, qualification,
	address, COALESCE(preferred_channel, ''), COALESCE(preferred_time, ''), created_at, updated_at`

// CreateLead inserts a lead owned by the principal. OwnerID on the input is ignored.
func (r *Repository) CreateLead(ctx context.Context, p model.Principal, lead *model.Lead) error {
	sealed, err := r.sealer.Seal(lead.TaxID)
	if err != nil {
		return fmt.Errorf("failed to seal tax id: %w", err)
	}

	lead.OwnerID = p.ID

	query := `
		INSERT INTO leads (
			id, owner_id, client_name, client_email, client_phone, alt_phone, client_type,
			tax_id_encrypted, legal_area, case_description, urgency, analysis, status, qualification,
			address, preferred_channel, preferred_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = r.pool.Exec(ctx, query,
		lead.ID,
		p.ID,
		lead.ClientName,
		lead.ClientEmail,
		lead.ClientPhone,
		nullableString(lead.AltPhone),
		lead.ClientType,
		sealed,
		lead.LegalArea,
		lead.CaseDescription,
		lead.Urgency,
		lead.Analysis,
		lead.Status,
		lead.Qualification,
		lead.Address,
		nullableString(string(lead.PreferredChan)),
		nullableString(lead.PreferredTime),
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

// GetLead retrieves a lead by ID and owner in a single filter.
func (r *Repository) GetLead(ctx context.Context, p model.Principal, id string) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND owner_id = $2`

	lead, err := r.scanLead(r.pool.QueryRow(ctx, query, id, p.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	return lead, nil
}

// ListLeads retrieves a page of the principal's leads, newest first.
// Returns the next cursor, empty when there are no more results.
func (r *Repository) ListLeads(ctx context.Context, p model.Principal, filter model.LeadFilter) ([]*model.Lead, string, error) {
	var cursorData *PaginationCursor
	if filter.Cursor != "" {
		var err error
		cursorData, err = decodeCursor(filter.Cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE owner_id = $1`
	args := []any{p.ID}
	argIndex := 2

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.LegalArea != "" {
		query += fmt.Sprintf(" AND legal_area = $%d", argIndex)
		args = append(args, filter.LegalArea)
		argIndex++
	}

	if filter.Urgency != "" {
		query += fmt.Sprintf(" AND urgency = $%d", argIndex)
		args = append(args, filter.Urgency)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, filter.Limit+1) // Fetch one extra to determine hasMore

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*model.Lead
	for rows.Next() {
		lead, err := r.scanLead(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating leads: %w", err)
	}

	var nextCursor string
	if len(leads) > filter.Limit {
		leads = leads[:filter.Limit]
		last := leads[len(leads)-1]
		nextCursor = encodeCursor(&PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}

	return leads, nextCursor, nil
}

// UpdateLead applies patch to a lead the principal owns and returns the result.
func (r *Repository) UpdateLead(ctx context.Context, p model.Principal, id string, patch model.LeadPatch, at time.Time) (*model.Lead, error) {
	query := `
		UPDATE leads
		SET status = COALESCE($3, status),
		    qualification = COALESCE($4, qualification),
		    urgency = COALESCE($5, urgency),
		    analysis = COALESCE($6, analysis),
		    updated_at = $7
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + leadColumns

	lead, err := r.scanLead(r.pool.QueryRow(ctx, query,
		id,
		p.ID,
		patch.Status,
		patch.Qualification,
		patch.Urgency,
		patch.Analysis,
		at,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	return lead, nil
}

// DeleteLead removes a lead and everything attached to it.
// The lead row is locked first so no dependent can be added concurrently;
// dependents are deleted before the lead itself.
func (r *Repository) DeleteLead(ctx context.Context, p model.Principal, id string) error {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx,
			`SELECT id FROM leads WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
			id, p.ID,
		).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLeadNotFound
			}
			return err
		}

		for _, stmt := range []string{
			`DELETE FROM notes WHERE lead_id = $1 AND owner_id = $2`,
			`DELETE FROM tasks WHERE lead_id = $1 AND owner_id = $2`,
			`DELETE FROM conversations WHERE lead_id = $1 AND owner_id = $2`,
			`DELETE FROM leads WHERE id = $1 AND owner_id = $2`,
		} {
			if _, err := tx.Exec(ctx, stmt, id, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	return nil
}

func (r *Repository) scanLead(row pgx.Row) (*model.Lead, error) {
	var (
		lead   model.Lead
		sealed []byte
	)
	err := row.Scan(
		&lead.ID,
		&lead.OwnerID,
		&lead.ClientName,
		&lead.ClientEmail,
		&lead.ClientPhone,
		&lead.AltPhone,
		&lead.ClientType,
		&sealed,
		&lead.LegalArea,
		&lead.CaseDescription,
		&lead.Urgency,
		&lead.Analysis,
		&lead.Status,
		&lead.Qualification,
		&lead.Address,
		&lead.PreferredChan,
		&lead.PreferredTime,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.TaxID, err = r.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open tax id: %w", err)
	}

	return &lead, nil
}

// encodeCursor encodes pagination cursor to base64.
func encodeCursor(cursor *PaginationCursor) string {
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor decodes base64 pagination cursor.
func decodeCursor(s string) (*PaginationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	var cursor PaginationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}
