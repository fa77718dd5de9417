// Package model defines domain entities for the application.
package model

import "time"

// User is the credential record of a lawyer account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	PasswordHash  string    `json:"-"` // Never serialize
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Principal returns the request identity derived from this user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, IsActive: u.IsActive}
}

// Principal is the authenticated identity for the duration of one request.
// It is produced fresh from a validated token on every request and passed
// by value so handlers cannot mutate it.
type Principal struct {
	ID       string
	Email    string
	IsActive bool
}
