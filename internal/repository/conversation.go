package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/advocacia-ai/painel/internal/model"
)

// ErrConversationNotFound is returned when a lead has no conversation yet,
// or the lead does not belong to the principal.
var ErrConversationNotFound = errors.New("conversation not found")

const conversationColumns = `id, lead_id, owner_id, messages, active, last_message_at, client_read_through, lawyer_read_through, created_at, updated_at`

// AppendMessage appends one message to the conversation of a lead the
// principal owns, creating the conversation on first use.
//
// The whole operation is a single upsert: concurrent appends to the same
// conversation serialize on its row lock and each sees the previous append,
// so no message is lost. A message's sent_at never precedes the previous
// message's, which keeps the sequence ordered even under clock skew between
// application servers. Returns ErrLeadNotFound when the lead is not the
// principal's.
func (r *Repository) AppendMessage(ctx context.Context, p model.Principal, conversationID, leadID string, kind model.MessageKind, text string, at time.Time) (*model.Conversation, error) {
	query := `
		INSERT INTO conversations (id, lead_id, owner_id, messages, active, last_message_at, created_at, updated_at)
		SELECT $1, l.id, l.owner_id,
		       jsonb_build_array(jsonb_build_object('kind', $4::text, 'text', $5::text, 'sent_at', $6::timestamptz)),
		       TRUE, $6, $6, $6
		FROM leads l
		WHERE l.id = $2 AND l.owner_id = $3
		ON CONFLICT (lead_id) DO UPDATE
		SET messages = conversations.messages || jsonb_build_array(jsonb_build_object(
		        'kind', $4::text,
		        'text', $5::text,
		        'sent_at', GREATEST($6::timestamptz, conversations.last_message_at))),
		    last_message_at = GREATEST($6::timestamptz, conversations.last_message_at),
		    active = TRUE,
		    updated_at = $6
		WHERE conversations.owner_id = $3
		RETURNING ` + conversationColumns

	conv, err := scanConversation(r.pool.QueryRow(ctx, query, conversationID, leadID, p.ID, string(kind), text, at))
	if err != nil {
		// No row: the lead is missing or not the principal's. FK violation:
		// the lead was deleted between the select and the insert.
		if errors.Is(err, pgx.ErrNoRows) || isForeignKeyViolation(err) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return conv, nil
}

// GetConversation retrieves the conversation of a lead the principal owns.
func (r *Repository) GetConversation(ctx context.Context, p model.Principal, leadID string) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE lead_id = $1 AND owner_id = $2`

	conv, err := scanConversation(r.pool.QueryRow(ctx, query, leadID, p.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// MarkMessagesRead moves the read mark for the given kind to the end of the
// conversation. The stored messages are not touched. Returns the number of
// messages of that kind that were unread before the call.
func (r *Repository) MarkMessagesRead(ctx context.Context, p model.Principal, leadID string, kind model.MessageKind, at time.Time) (int, error) {
	query := `
		WITH target AS (
			SELECT id,
			       (SELECT COUNT(*) FROM jsonb_array_elements(messages) WITH ORDINALITY AS e(m, ord)
			        WHERE e.m->>'kind' = $3::text
			          AND e.ord > CASE WHEN $3::text = 'client' THEN client_read_through ELSE lawyer_read_through END
			       ) AS unread
			FROM conversations
			WHERE lead_id = $1 AND owner_id = $2
			FOR UPDATE
		)
		UPDATE conversations c
		SET client_read_through = CASE WHEN $3::text = 'client' THEN jsonb_array_length(c.messages) ELSE c.client_read_through END,
		    lawyer_read_through = CASE WHEN $3::text = 'lawyer' THEN jsonb_array_length(c.messages) ELSE c.lawyer_read_through END,
		    updated_at = CASE WHEN target.unread > 0 THEN $4 ELSE c.updated_at END
		FROM target
		WHERE c.id = target.id
		RETURNING target.unread
	`

	var changed int
	err := r.pool.QueryRow(ctx, query, leadID, p.ID, string(kind), at).Scan(&changed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrConversationNotFound
		}
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	return changed, nil
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var conv model.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.LeadID,
		&conv.OwnerID,
		&conv.Messages,
		&conv.Active,
		&conv.LastMessageAt,
		&conv.ClientReadThrough,
		&conv.LawyerReadThrough,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	conv.ApplyReadMarks()
	return &conv, nil
}
