package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/advocacia-ai/painel/internal/cache"
	"github.com/advocacia-ai/painel/internal/mail"
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory stand-in for the Postgres repository. Like the
// real one, every tenant-owned lookup filters on id and owner together.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]*model.User // by email
	profiles      map[string]*model.LawyerProfile
	oabs          map[string]bool
	leads         map[string]*model.Lead
	conversations map[string]*model.Conversation // by lead id
	notes         map[string]*model.Note
	tasks         map[string]*model.Task

	// raceEmail makes EmailExists report false even when the email is taken,
	// as if a concurrent registration committed after the pre-check.
	raceEmail  bool
	statsCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*model.User),
		profiles:      make(map[string]*model.LawyerProfile),
		oabs:          make(map[string]bool),
		leads:         make(map[string]*model.Lead),
		conversations: make(map[string]*model.Conversation),
		notes:         make(map[string]*model.Note),
		tasks:         make(map[string]*model.Task),
	}
}

func (f *fakeStore) CreateLawyer(_ context.Context, user *model.User, profile *model.LawyerProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return repository.ErrEmailExists
	}
	key := profile.OABNumber + "/" + profile.OABState
	if f.oabs[key] {
		return repository.ErrOABExists
	}
	u := *user
	f.users[user.Email] = &u
	p := *profile
	f.profiles[user.ID] = &p
	f.oabs[key] = true
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceEmail {
		return false, nil
	}
	_, ok := f.users[email]
	return ok, nil
}

func (f *fakeStore) OABExists(_ context.Context, number, state string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oabs[number+"/"+state], nil
}

func (f *fakeStore) userByID(id string) *model.User {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeStore) UpdatePasswordHash(_ context.Context, userID, hash string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userByID(userID)
	if u == nil {
		return repository.ErrUserNotFound
	}
	u.PasswordHash, u.UpdatedAt = hash, at
	return nil
}

func (f *fakeStore) MarkEmailVerified(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userByID(userID)
	if u == nil {
		return repository.ErrUserNotFound
	}
	u.EmailVerified, u.UpdatedAt = true, at
	return nil
}

func (f *fakeStore) SetUserActive(_ context.Context, userID string, active bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userByID(userID)
	if u == nil {
		return repository.ErrUserNotFound
	}
	u.IsActive, u.UpdatedAt = active, at
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, p model.Principal) (*model.LawyerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[p.ID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	cp := *profile
	return &cp, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, p model.Principal, patch model.ProfilePatch, at time.Time) (*model.LawyerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[p.ID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	if patch.Name != nil {
		profile.Name = *patch.Name
	}
	if patch.Phone != nil {
		profile.Phone = *patch.Phone
	}
	if patch.Email != nil {
		profile.Email = *patch.Email
	}
	if patch.Address != nil {
		profile.Address = patch.Address
	}
	if patch.Areas != nil {
		profile.Areas = patch.Areas
	}
	if patch.Cities != nil {
		profile.Cities = patch.Cities
	}
	if patch.States != nil {
		profile.States = patch.States
	}
	if patch.Schedule != nil {
		profile.Schedule = patch.Schedule
	}
	if patch.Active != nil {
		profile.Active = *patch.Active
	}
	profile.UpdatedAt = at
	cp := *profile
	return &cp, nil
}

func (f *fakeStore) ownedLead(p model.Principal, id string) (*model.Lead, bool) {
	lead, ok := f.leads[id]
	if !ok || lead.OwnerID != p.ID {
		return nil, false
	}
	return lead, true
}

func (f *fakeStore) CreateLead(_ context.Context, p model.Principal, lead *model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead.OwnerID = p.ID
	cp := *lead
	f.leads[lead.ID] = &cp
	return nil
}

func (f *fakeStore) GetLead(_ context.Context, p model.Principal, id string) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.ownedLead(p, id)
	if !ok {
		return nil, repository.ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

func (f *fakeStore) ListLeads(_ context.Context, p model.Principal, filter model.LeadFilter) ([]*model.Lead, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if filter.Cursor == "bad" {
		return nil, "", repository.ErrInvalidCursor
	}
	var out []*model.Lead
	for _, lead := range f.leads {
		if lead.OwnerID != p.ID {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		cp := *lead
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > filter.Limit {
		return out[:filter.Limit], out[filter.Limit-1].ID, nil
	}
	return out, "", nil
}

func (f *fakeStore) UpdateLead(_ context.Context, p model.Principal, id string, patch model.LeadPatch, at time.Time) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.ownedLead(p, id)
	if !ok {
		return nil, repository.ErrLeadNotFound
	}
	if patch.Status != nil {
		lead.Status = *patch.Status
	}
	if patch.Qualification != nil {
		lead.Qualification = patch.Qualification
	}
	if patch.Urgency != nil {
		lead.Urgency = *patch.Urgency
	}
	if patch.Analysis != nil {
		lead.Analysis = patch.Analysis
	}
	lead.UpdatedAt = at
	cp := *lead
	return &cp, nil
}

func (f *fakeStore) DeleteLead(_ context.Context, p model.Principal, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ownedLead(p, id); !ok {
		return repository.ErrLeadNotFound
	}
	for nid, n := range f.notes {
		if n.LeadID == id {
			delete(f.notes, nid)
		}
	}
	for tid, t := range f.tasks {
		if t.LeadID != nil && *t.LeadID == id {
			delete(f.tasks, tid)
		}
	}
	delete(f.conversations, id)
	delete(f.leads, id)
	return nil
}

func (f *fakeStore) AppendMessage(_ context.Context, p model.Principal, conversationID, leadID string, kind model.MessageKind, text string, at time.Time) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ownedLead(p, leadID); !ok {
		return nil, repository.ErrLeadNotFound
	}
	conv, ok := f.conversations[leadID]
	if !ok {
		conv = &model.Conversation{ID: conversationID, LeadID: leadID, OwnerID: p.ID, CreatedAt: at}
		f.conversations[leadID] = conv
	}
	sentAt := at
	if conv.LastMessageAt != nil && conv.LastMessageAt.After(sentAt) {
		sentAt = *conv.LastMessageAt
	}
	conv.Messages = append(conv.Messages, model.Message{Kind: kind, Text: text, SentAt: sentAt})
	conv.LastMessageAt = &sentAt
	conv.Active = true
	conv.UpdatedAt = at

	cp := *conv
	cp.Messages = append([]model.Message(nil), conv.Messages...)
	cp.ApplyReadMarks()
	return &cp, nil
}

func (f *fakeStore) GetConversation(_ context.Context, p model.Principal, leadID string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[leadID]
	if !ok || conv.OwnerID != p.ID {
		return nil, repository.ErrConversationNotFound
	}
	cp := *conv
	cp.Messages = append([]model.Message(nil), conv.Messages...)
	cp.ApplyReadMarks()
	return &cp, nil
}

func (f *fakeStore) MarkMessagesRead(_ context.Context, p model.Principal, leadID string, kind model.MessageKind, at time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[leadID]
	if !ok || conv.OwnerID != p.ID {
		return 0, repository.ErrConversationNotFound
	}
	n := conv.Unread(kind)
	switch kind {
	case model.MessageFromClient:
		conv.ClientReadThrough = len(conv.Messages)
	case model.MessageFromLawyer:
		conv.LawyerReadThrough = len(conv.Messages)
	}
	if n > 0 {
		conv.UpdatedAt = at
	}
	return n, nil
}

func (f *fakeStore) CreateNote(_ context.Context, p model.Principal, note *model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ownedLead(p, note.LeadID); !ok {
		return repository.ErrLeadNotFound
	}
	note.OwnerID = p.ID
	cp := *note
	f.notes[note.ID] = &cp
	return nil
}

func (f *fakeStore) ListNotes(_ context.Context, p model.Principal, leadID string) ([]*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Note, 0)
	for _, n := range f.notes {
		if n.LeadID == leadID && n.OwnerID == p.ID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteNote(_ context.Context, p model.Principal, leadID, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok || n.OwnerID != p.ID || n.LeadID != leadID {
		return repository.ErrNoteNotFound
	}
	delete(f.notes, noteID)
	return nil
}

func (f *fakeStore) CreateTask(_ context.Context, p model.Principal, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.LeadID != nil {
		if _, ok := f.ownedLead(p, *task.LeadID); !ok {
			return repository.ErrLeadNotFound
		}
	}
	task.OwnerID = p.ID
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeStore) ListTasks(_ context.Context, p model.Principal, filter model.TaskFilter) ([]*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Task, 0)
	for _, t := range f.tasks {
		if t.OwnerID != p.ID {
			continue
		}
		if filter.Done != nil && t.Done != *filter.Done {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) UpdateTask(_ context.Context, p model.Principal, id string, patch model.TaskPatch, at time.Time) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.OwnerID != p.ID {
		return nil, repository.ErrTaskNotFound
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Done != nil {
		t.Done = *patch.Done
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.DueAt != nil {
		t.DueAt = patch.DueAt
	}
	if patch.ClearDueAt {
		t.DueAt = nil
	}
	t.UpdatedAt = at
	cp := *t
	return &cp, nil
}

func (f *fakeStore) DeleteTask(_ context.Context, p model.Principal, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.OwnerID != p.ID {
		return repository.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) LeadStats(_ context.Context, p model.Principal) (*model.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	var stats model.DashboardStats
	for _, lead := range f.leads {
		if lead.OwnerID != p.ID {
			continue
		}
		stats.TotalLeads++
		switch lead.Status {
		case model.LeadNew:
			stats.NewLeads++
		case model.LeadInProgress:
			stats.InProgressLeads++
		case model.LeadClosed:
			stats.ClosedLeads++
		}
	}
	for _, t := range f.tasks {
		if t.OwnerID == p.ID && !t.Done {
			stats.OpenTasks++
		}
	}
	stats.ComputeConversionRate()
	return &stats, nil
}

type fakeStatsCache struct {
	mu          sync.Mutex
	entries     map[string]model.DashboardStats
	invalidated int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: make(map[string]model.DashboardStats)}
}

func (c *fakeStatsCache) GetStats(_ context.Context, ownerID string) (*model.DashboardStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[ownerID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &s, nil
}

func (c *fakeStatsCache) SetStats(_ context.Context, ownerID string, stats *model.DashboardStats, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ownerID] = *stats
	return nil
}

func (c *fakeStatsCache) InvalidateStats(_ context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ownerID)
	c.invalidated++
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *fakeMailer) PublishAsync(msg mail.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *fakeMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (l *fakeLimiter) CheckLoginRateLimit(_ context.Context, _ string, _, _ int) (*cache.RateLimitResult, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return &cache.RateLimitResult{Allowed: l.allow}, nil
}
