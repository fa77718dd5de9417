package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestIssuer(t *testing.T, now time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret)
	require.NoError(t, err)
	return issuer.WithClock(fixedClock(now))
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer(nil)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, now)

	for _, purpose := range []Purpose{PurposeAccess, PurposeReset, PurposeVerifyEmail} {
		token, err := issuer.Issue("ana@example.com", purpose, 30*time.Minute)
		require.NoError(t, err)

		claims, err := issuer.Validate(token, purpose)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", claims.Subject)
		assert.Equal(t, purpose, claims.Purpose)
		assert.Equal(t, now.Add(30*time.Minute), claims.ExpiresAt.UTC())
		assert.NotEmpty(t, claims.ID)
	}
}

func TestTokenIssuer_PurposeMismatch(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, now)

	reset, err := issuer.Issue("ana@example.com", PurposeReset, 15*time.Minute)
	require.NoError(t, err)
	_, err = issuer.Validate(reset, PurposeAccess)
	assert.ErrorIs(t, err, ErrPurposeMismatch)

	access, err := issuer.Issue("ana@example.com", PurposeAccess, 15*time.Minute)
	require.NoError(t, err)
	_, err = issuer.Validate(access, PurposeReset)
	assert.ErrorIs(t, err, ErrPurposeMismatch)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTestIssuer(t, issuedAt).Issue("ana@example.com", PurposeAccess, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"before expiry", issuedAt.Add(59 * time.Second), nil},
		{"at expiry", issuedAt.Add(time.Minute), ErrExpired},
		{"after expiry", issuedAt.Add(time.Hour), ErrExpired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newTestIssuer(t, tt.now).Validate(token, PurposeAccess)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokenIssuer_SignatureCheckedBeforeExpiry(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	other, err := NewTokenIssuer([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)
	token, err := other.WithClock(fixedClock(issuedAt)).Issue("ana@example.com", PurposeReset, time.Minute)
	require.NoError(t, err)

	// Expired, wrong purpose and forged: signature failure wins.
	_, err = newTestIssuer(t, issuedAt.Add(time.Hour)).Validate(token, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenIssuer_ExpiryCheckedBeforePurpose(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTestIssuer(t, issuedAt).Issue("ana@example.com", PurposeReset, time.Minute)
	require.NoError(t, err)

	_, err = newTestIssuer(t, issuedAt.Add(time.Hour)).Validate(token, PurposeAccess)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestTokenIssuer_MalformedInput(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, now)
	valid, err := issuer.Issue("ana@example.com", PurposeAccess, time.Minute)
	require.NoError(t, err)

	// Alter the subject in the payload while keeping the original signature.
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	forgedPayload := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "mallory@example.com", "purpose": "access", "exp": now.Add(time.Hour).Unix(),
	})
	forged, err := forgedPayload.SignedString([]byte("not-the-secret"))
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "ana@example.com", "purpose": "access", "exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	inputs := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"two segments":   "a.b",
		"truncated":      valid[:len(valid)-5],
		"spliced":        spliced,
		"alg none":       unsigned,
		"trailing bytes": valid + "x",
	}

	for name, input := range inputs {
		input := input
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := issuer.Validate(input, PurposeAccess)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestTokenIssuer_IssueRejectsBadInput(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, time.Now())

	_, err := issuer.Issue("", PurposeAccess, time.Minute)
	assert.ErrorIs(t, err, ErrEmptySubject)

	_, err = issuer.Issue("ana@example.com", Purpose("admin"), time.Minute)
	assert.Error(t, err)
}

func TestTokenIssuer_Binding(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	const state = "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$ZGlnZXN0"

	token, err := issuer.IssueBound("ana@example.com", PurposeReset, 15*time.Minute, state)
	require.NoError(t, err)
	assert.NotContains(t, token, state)

	claims, err := issuer.Validate(token, PurposeReset)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.Binding)
	assert.NotContains(t, claims.Binding, "argon2")

	assert.NoError(t, issuer.CheckBinding(claims, state))
	assert.ErrorIs(t, issuer.CheckBinding(claims, state+"x"), ErrStaleBinding)
	assert.ErrorIs(t, issuer.CheckBinding(claims, ""), ErrStaleBinding)

	other, err := NewTokenIssuer([]byte("another-secret-another-secret-00"))
	require.NoError(t, err)
	assert.ErrorIs(t, other.CheckBinding(claims, state), ErrStaleBinding)

	_, err = issuer.IssueBound("ana@example.com", PurposeReset, time.Minute, "")
	assert.Error(t, err)
}

func TestTokenIssuer_UnboundTokenFailsBindingCheck(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, time.Now())

	token, err := issuer.Issue("ana@example.com", PurposeReset, time.Minute)
	require.NoError(t, err)
	claims, err := issuer.Validate(token, PurposeReset)
	require.NoError(t, err)

	assert.Empty(t, claims.Binding)
	assert.ErrorIs(t, issuer.CheckBinding(claims, "anything"), ErrStaleBinding)
}
