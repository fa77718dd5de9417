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

const (
	maxTitleLength   = 200
	maxContentLength = 10000
)

// NoteService manages notes attached to leads.
type NoteService struct {
	notes NoteStore
	leads LeadStore
	now   func() time.Time
}

// NewNoteService creates a new NoteService.
func NewNoteService(notes NoteStore, leads LeadStore) *NoteService {
	return &NoteService{notes: notes, leads: leads, now: time.Now}
}

// CreateNoteInput defines input for creating a note.
type CreateNoteInput struct {
	Title    string
	Content  string
	Priority model.Priority
}

// Create attaches a note to one of p's leads. Lead ownership is checked by
// the insert itself.
func (s *NoteService) Create(ctx context.Context, p model.Principal, leadID string, input CreateNoteInput) (*model.Note, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLength {
		return nil, invalid("titulo", "is required")
	}
	content := strings.TrimSpace(input.Content)
	if len(content) > maxContentLength {
		return nil, invalid("conteudo", "is too long")
	}
	priority, err := normalizePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	note := &model.Note{
		ID:        generateULID(),
		LeadID:    leadID,
		Title:     title,
		Content:   content,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.notes.CreateNote(ctx, p, note); err != nil {
		return nil, mapLeadErr(err, "create note")
	}
	return note, nil
}

// List returns the notes of one of p's leads, newest first.
func (s *NoteService) List(ctx context.Context, p model.Principal, leadID string) ([]*model.Note, error) {
	if _, err := s.leads.GetLead(ctx, p, leadID); err != nil {
		return nil, mapLeadErr(err, "get lead")
	}

	notes, err := s.notes.ListNotes(ctx, p, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// Delete removes a note from one of p's leads.
func (s *NoteService) Delete(ctx context.Context, p model.Principal, leadID, noteID string) error {
	if err := s.notes.DeleteNote(ctx, p, leadID, noteID); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func normalizePriority(p model.Priority) (model.Priority, error) {
	if p == "" {
		return model.PriorityMedium, nil
	}
	if !p.IsValid() {
		return "", invalid("prioridade", "must be baixa, media or alta")
	}
	return p, nil
}
