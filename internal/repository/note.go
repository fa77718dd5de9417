package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/advocacia-ai/painel/internal/model"
)

// ErrNoteNotFound is returned when a note does not exist or belongs to another owner.
var ErrNoteNotFound = errors.New("note not found")

const noteColumns = `id, lead_id, owner_id, title, content, priority, created_at, updated_at`

// CreateNote attaches a note to a lead the principal owns.
// The insert selects the lead by (id, owner) so a foreign lead yields ErrLeadNotFound.
func (r *Repository) CreateNote(ctx context.Context, p model.Principal, note *model.Note) error {
	query := `
		INSERT INTO notes (id, lead_id, owner_id, title, content, priority, created_at, updated_at)
		SELECT $1, l.id, l.owner_id, $4, $5, $6, $7, $8
		FROM leads l
		WHERE l.id = $2 AND l.owner_id = $3
	`

	result, err := r.pool.Exec(ctx, query,
		note.ID,
		note.LeadID,
		p.ID,
		note.Title,
		note.Content,
		note.Priority,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrLeadNotFound
		}
		return fmt.Errorf("failed to create note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLeadNotFound
	}

	note.OwnerID = p.ID
	return nil
}

// ListNotes retrieves the notes of a lead, newest first.
// A lead that is missing or not the principal's yields an empty list.
func (r *Repository) ListNotes(ctx context.Context, p model.Principal, leadID string) ([]*model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE lead_id = $1 AND owner_id = $2 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, leadID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*model.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}

// DeleteNote removes a note from a lead the principal owns.
func (r *Repository) DeleteNote(ctx context.Context, p model.Principal, leadID, noteID string) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM notes WHERE id = $1 AND lead_id = $2 AND owner_id = $3`,
		noteID, leadID, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func scanNote(row pgx.Row) (*model.Note, error) {
	var note model.Note
	err := row.Scan(
		&note.ID,
		&note.LeadID,
		&note.OwnerID,
		&note.Title,
		&note.Content,
		&note.Priority,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	return &note, err
}
