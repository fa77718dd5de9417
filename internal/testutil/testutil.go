// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/advocacia-ai/painel/internal/crypto"
	"github.com/advocacia-ai/painel/internal/model"
)

// TestEncryptionKey is the at-rest key used by integration tests.
const TestEncryptionKey = "integration-test-encryption-key-32b"

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// NewSealer returns a sealer keyed with TestEncryptionKey.
func NewSealer(t testing.TB) *crypto.Sealer {
	t.Helper()
	s, err := crypto.NewSealer([]byte(TestEncryptionKey))
	if err != nil {
		t.Fatalf("create sealer: %v", err)
	}
	return s
}

// ============================================================================
// Test Data Factories
// ============================================================================

var seq atomic.Int64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, ulid.Make().String())
}

// UniqueEmail generates a unique normalized email for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@example.com", prefix, time.Now().UnixNano(), seq.Add(1))
}

// UniqueOAB generates a unique OAB number for tests.
func UniqueOAB() string {
	return fmt.Sprintf("%d", 100000+seq.Add(1)+time.Now().UnixNano()%1_000_000_000)
}

// NewTestUser creates an active user with sensible defaults.
// The password hash is a placeholder; tests that log in hash their own.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.User{
		ID:           UniqueID("usr"),
		Email:        email,
		FullName:     "Dra. Teste",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestProfile creates a profile for user with the given OAB registration.
func NewTestProfile(t testing.TB, user *model.User, oabNumber, oabState string) *model.LawyerProfile {
	t.Helper()
	return &model.LawyerProfile{
		ID:        UniqueID("prf"),
		UserID:    user.ID,
		Name:      user.FullName,
		Kind:      model.ProfileIndividual,
		TaxID:     "529.982.247-25",
		OABNumber: oabNumber,
		OABState:  oabState,
		Areas:     []string{"Trabalho"},
		Cities:    []string{"São Paulo"},
		States:    []string{"SP"},
		Schedule:  model.Schedule{"mon": "09:00-18:00"},
		Plan:      model.DefaultPlan(),
		Active:    true,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// NewTestLead creates a lead with sensible defaults. The owner is stamped
// by the repository from the principal.
func NewTestLead(t testing.TB) *model.Lead {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Lead{
		ID:              UniqueID("lead"),
		ClientName:      "Maria Cliente",
		ClientEmail:     "maria@example.com",
		ClientPhone:     "+55 11 99999-0000",
		ClientType:      model.ClientIndividual,
		TaxID:           "111.444.777-35",
		LegalArea:       "Trabalho",
		CaseDescription: "Demissão sem justa causa",
		Urgency:         model.UrgencyMedium,
		Status:          model.LeadNew,
		Address:         &model.Address{City: "São Paulo", State: "SP"},
		PreferredChan:   model.ChannelWhatsApp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
