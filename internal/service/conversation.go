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

const maxMessageLength = 5000

// ConversationService manages the message history attached to each lead.
type ConversationService struct {
	conversations ConversationStore
	leads         LeadStore
	stats         StatsCache
	logger        *slog.Logger
	metrics       metrics.Recorder
	now           func() time.Time
}

// NewConversationService creates a new ConversationService. stats may be nil.
func NewConversationService(conversations ConversationStore, leads LeadStore, stats StatsCache, logger *slog.Logger, recorder metrics.Recorder) *ConversationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ConversationService{
		conversations: conversations,
		leads:         leads,
		stats:         stats,
		logger:        logger.With("component", "service.conversation"),
		metrics:       recorder,
		now:           time.Now,
	}
}

// Append adds a message to the lead's conversation, creating it on first use,
// and returns the stored message.
func (s *ConversationService) Append(ctx context.Context, p model.Principal, leadID string, kind model.MessageKind, text string) (*model.Message, error) {
	if kind == "" {
		kind = model.MessageFromLawyer
	}
	if !kind.IsValid() {
		return nil, invalid("kind", "must be lawyer or client")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("text", "must not be empty")
	}
	if len(text) > maxMessageLength {
		return nil, invalid("text", fmt.Sprintf("must be at most %d characters", maxMessageLength))
	}

	conv, err := s.conversations.AppendMessage(ctx, p, generateULID(), leadID, kind, text, s.now().UTC())
	if err != nil {
		return nil, mapLeadErr(err, "append message")
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("failed to append message: empty conversation returned")
	}

	s.metrics.IncMessageAppended(string(kind))
	if kind == model.MessageFromClient {
		invalidateStats(ctx, s.stats, s.logger, p)
	}

	msg := conv.Messages[len(conv.Messages)-1]
	return &msg, nil
}

// Messages returns the lead's messages in the order they were appended.
// A lead without a conversation yields an empty list.
func (s *ConversationService) Messages(ctx context.Context, p model.Principal, leadID string) ([]model.Message, error) {
	if _, err := s.leads.GetLead(ctx, p, leadID); err != nil {
		return nil, mapLeadErr(err, "get lead")
	}

	conv, err := s.conversations.GetConversation(ctx, p, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return []model.Message{}, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv.Messages, nil
}

// MarkRead marks every message of the given kind read up to now and returns
// how many were unread. Later messages start unread.
func (s *ConversationService) MarkRead(ctx context.Context, p model.Principal, leadID string, kind model.MessageKind) (int, error) {
	if kind == "" {
		kind = model.MessageFromClient
	}
	if !kind.IsValid() {
		return 0, invalid("kind", "must be lawyer or client")
	}

	if _, err := s.leads.GetLead(ctx, p, leadID); err != nil {
		return 0, mapLeadErr(err, "get lead")
	}

	n, err := s.conversations.MarkMessagesRead(ctx, p, leadID, kind, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	if n > 0 && kind == model.MessageFromClient {
		invalidateStats(ctx, s.stats, s.logger, p)
	}
	return n, nil
}
