// Package auth provides password hashing, signed tokens and the request principal.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Cost settings for new digests. Stored digests carry their own settings, so
// raising these only affects passwords hashed afterwards.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

var (
	// ErrEmptyPassword is returned when hashing an empty plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrInvalidHash is returned for a stored digest that does not parse.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion is returned for a digest made by another argon2 revision.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// dummyDigest is verified against when no stored digest exists, so a login for
// an unknown email performs the same work as one with a wrong password.
var dummyDigest = mustHash("painel-dummy-password")

// HashPassword derives the digest stored for a lawyer's password. The result
// is self-describing and salted per call, so hashing the same password twice
// gives different strings.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)

	// $argon2id$v=<ver>$m=<kib>,t=<passes>,p=<lanes>$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword recomputes the digest of password with the settings recorded
// in encodedHash and compares the two. A wrong password is (false, nil); only
// an unreadable digest is an error.
func VerifyPassword(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, ErrInvalidHash
	}

	if parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHash
	}
	if version != argon2.Version {
		return false, ErrIncompatibleVersion
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expectedHash) == 0 {
		return false, ErrInvalidHash
	}

	computedHash := argon2.IDKey(
		[]byte(password),
		salt,
		time,
		memory,
		threads,
		uint32(len(expectedHash)),
	)

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// DummyVerify spends one verification's worth of work and always reports false.
func DummyVerify(password string) bool {
	_, _ = VerifyPassword(password, dummyDigest)
	return false
}

// Fingerprint returns a short, case-insensitive tag for input, used in logs and
// limiter keys in place of an email address.
func Fingerprint(input string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(input)))
	return hex.EncodeToString(hash[:8])
}

func mustHash(password string) string {
	h, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	return h
}
