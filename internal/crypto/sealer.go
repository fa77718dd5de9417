// Package crypto provides encryption at rest for sensitive personal data
// such as the CPF/CNPJ tax identifier.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32
	// sealVersion prefixes every blob so the key schedule can change later.
	sealVersion byte = 1
)

var hkdfInfo = []byte("painel/at-rest/v1")

var (
	// ErrEmptyKey is returned when constructing a Sealer without key material.
	ErrEmptyKey = errors.New("encryption key must not be empty")
	// ErrCiphertextTooShort is returned when a blob cannot hold version, nonce and tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrUnknownVersion is returned for blobs sealed with an unsupported version.
	ErrUnknownVersion = errors.New("unknown ciphertext version")
	// ErrDecrypt is returned when authentication of a blob fails.
	ErrDecrypt = errors.New("decrypt failed")
)

// Sealer encrypts short strings with AES-256-GCM.
// Output format: [1-byte version][12-byte nonce][ciphertext+tag]
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256 key from secret with HKDF-SHA256.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptyKey
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext. An empty plaintext yields a nil blob.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, sealVersion)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, []byte(plaintext), []byte{sealVersion}), nil
}

// Open decrypts a blob produced by Seal. A nil blob yields an empty string.
func (s *Sealer) Open(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}

	nonceSize := s.aead.NonceSize()
	if len(blob) < 1+nonceSize+s.aead.Overhead() {
		return "", ErrCiphertextTooShort
	}
	if blob[0] != sealVersion {
		return "", ErrUnknownVersion
	}

	nonce := blob[1 : 1+nonceSize]
	plaintext, err := s.aead.Open(nil, nonce, blob[1+nonceSize:], blob[:1])
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
