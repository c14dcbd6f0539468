package user

import (
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never expose hash in JSON

	// SessionToken and SessionExpiresAt are always set and cleared together.
	SessionToken     *string    `json:"-"`
	SessionExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

var (
	ErrNotFound          = errors.New("user not found")
	ErrInvalidInput      = errors.New("invalid registration input")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already taken")

	// ErrInvalidCredentials is deliberately the same for "no such user" and
	// "wrong password" so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

// SessionExpiredError carries the expiry timestamp for diagnostic display.
// errors.Is(err, ErrSessionExpired) matches it.
type SessionExpiredError struct {
	ExpiredAt time.Time
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired at %s", e.ExpiredAt.UTC().Format(time.RFC3339))
}

func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}
