package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/advocacia-ai/painel/internal/cache"
	"github.com/advocacia-ai/painel/internal/mail"
	"github.com/advocacia-ai/painel/internal/model"
)

// UserStore persists credential records and the profile created with them.
type UserStore interface {
	CreateLawyer(ctx context.Context, user *model.User, profile *model.LawyerProfile) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	OABExists(ctx context.Context, number, state string) (bool, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error
	SetUserActive(ctx context.Context, userID string, active bool, at time.Time) error
}

// ProfileStore reads and updates the principal's profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, p model.Principal) (*model.LawyerProfile, error)
	UpdateProfile(ctx context.Context, p model.Principal, patch model.ProfilePatch, at time.Time) (*model.LawyerProfile, error)
}

// LeadStore is the tenant-scoped lead repository.
type LeadStore interface {
	CreateLead(ctx context.Context, p model.Principal, lead *model.Lead) error
	GetLead(ctx context.Context, p model.Principal, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, p model.Principal, filter model.LeadFilter) ([]*model.Lead, string, error)
	UpdateLead(ctx context.Context, p model.Principal, id string, patch model.LeadPatch, at time.Time) (*model.Lead, error)
	DeleteLead(ctx context.Context, p model.Principal, id string) error
}

// ConversationStore is the tenant-scoped conversation repository.
type ConversationStore interface {
	AppendMessage(ctx context.Context, p model.Principal, conversationID, leadID string, kind model.MessageKind, text string, at time.Time) (*model.Conversation, error)
	GetConversation(ctx context.Context, p model.Principal, leadID string) (*model.Conversation, error)
	MarkMessagesRead(ctx context.Context, p model.Principal, leadID string, kind model.MessageKind, at time.Time) (int, error)
}

// NoteStore is the tenant-scoped note repository.
type NoteStore interface {
	CreateNote(ctx context.Context, p model.Principal, note *model.Note) error
	ListNotes(ctx context.Context, p model.Principal, leadID string) ([]*model.Note, error)
	DeleteNote(ctx context.Context, p model.Principal, leadID, noteID string) error
}

// TaskStore is the tenant-scoped task repository.
type TaskStore interface {
	CreateTask(ctx context.Context, p model.Principal, task *model.Task) error
	ListTasks(ctx context.Context, p model.Principal, filter model.TaskFilter) ([]*model.Task, error)
	UpdateTask(ctx context.Context, p model.Principal, id string, patch model.TaskPatch, at time.Time) (*model.Task, error)
	DeleteTask(ctx context.Context, p model.Principal, id string) error
}

// StatsStore computes dashboard aggregates.
type StatsStore interface {
	LeadStats(ctx context.Context, p model.Principal) (*model.DashboardStats, error)
}

// StatsCache caches dashboard aggregates per owner.
type StatsCache interface {
	GetStats(ctx context.Context, ownerID string) (*model.DashboardStats, error)
	SetStats(ctx context.Context, ownerID string, stats *model.DashboardStats, ttl time.Duration) error
	InvalidateStats(ctx context.Context, ownerID string) error
}

// LoginLimiter throttles login attempts per account.
type LoginLimiter interface {
	CheckLoginRateLimit(ctx context.Context, fingerprint string, attemptsPerHour, burst int) (*cache.RateLimitResult, error)
}

// Mailer enqueues mail without blocking.
type Mailer interface {
	PublishAsync(msg mail.Message)
}

func generateULID() string {
	return ulid.Make().String()
}
