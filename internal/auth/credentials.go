// Package auth gates the admin dashboard: a bcrypt-hashed credential pair
// from configuration and a signed JWT session cookie.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the configured admin account.
type Credentials struct {
	username     string
	passwordHash []byte
}

// NewCredentials wraps a username and a bcrypt hash of the password.
func NewCredentials(username, passwordHash string) (*Credentials, error) {
	if username == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash is not a bcrypt hash: %w", err)
	}
	return &Credentials{username: username, passwordHash: []byte(passwordHash)}, nil
}

// Check reports whether username and password match.
func (c *Credentials) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	// always run bcrypt so a wrong username costs the same
	passOK := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
