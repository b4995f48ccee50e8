// Package auth gates the dashboard: password checks against the configured
// users, login throttling and TTL-bound sessions.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a username/password pair against a static user table.
// Secrets starting with "$2" are bcrypt hashes; anything else is compared as
// plaintext in constant time.
type Verifier struct {
	users map[string]string
	dummy []byte
}

// NewVerifier copies users (username -> secret).
func NewVerifier(users map[string]string) *Verifier {
	v := &Verifier{users: make(map[string]string, len(users))}
	for u, s := range users {
		v.users[u] = s
	}
	// Unknown users are checked against this hash so they cost the same as a
	// bcrypt user.
	v.dummy, _ = bcrypt.GenerateFromPassword([]byte("unknown-user"), bcrypt.MinCost)
	return v
}

// Users returns the number of configured users.
func (v *Verifier) Users() int { return len(v.users) }

// Verify returns ErrInvalidCredentials unless password matches username.
func (v *Verifier) Verify(username, password string) error {
	secret, ok := v.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(password))
		return ErrInvalidCredentials
	}
	if isBcrypt(secret) {
		if bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) != nil {
			return ErrInvalidCredentials
		}
		return nil
	}
	want := sha256.Sum256([]byte(secret))
	got := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for the users table.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
