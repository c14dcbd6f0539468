package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/geocoder89/expensehub/internal/domain/user"
	"github.com/geocoder89/expensehub/internal/security"
	"github.com/google/uuid"
)

// UserStore is the storage contract the session manager depends on. The
// manager holds no mutable state of its own: tokens and expiries live on the
// user record so the design stays correct across concurrent handlers and
// processes sharing one store.
type UserStore interface {
	// Insert persists a new user. Uniqueness is enforced by the store (a
	// constraint, not a prior read) and surfaced as user.ErrDuplicateUsername
	// or user.ErrDuplicateEmail.
	Insert(ctx context.Context, u user.User) (string, error)

	// FindByUsernameOrEmail matches the identifier against the username
	// (case-sensitive) or the email (case-insensitive). user.ErrNotFound when
	// neither matches.
	FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, error)

	FindByToken(ctx context.Context, token string) (user.User, error)

	// UpdateSession writes the token/expiry pair (both set or both nil) and
	// optionally last_login.
	UpdateSession(ctx context.Context, userID string, token *string, expiresAt *time.Time, lastLogin *time.Time) error
}

type Manager struct {
	store UserStore
	ttl   time.Duration

	// overridable in tests
	now func() time.Time
}

func NewManager(store UserStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Register validates the fields, hashes the password and performs the
// uniqueness-checked insert. Returns the new user id.
func (m *Manager) Register(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	// emails are case-insensitive: normalized once here, compared lowercased
	// everywhere. Usernames stay case-sensitive and verbatim.
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return "", fmt.Errorf("%w: username must not be empty", user.ErrInvalidInput)
	}

	if email == "" {
		return "", fmt.Errorf("%w: email must not be empty", user.ErrInvalidInput)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: email is malformed", user.ErrInvalidInput)
	}

	if password == "" {
		return "", fmt.Errorf("%w: password must not be empty", user.ErrInvalidInput)
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return "", err
	}

	now := m.now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}

	return m.store.Insert(ctx, u)
}

// Login accepts a username or an email as the identifier. Lookup failure and
// password mismatch return the identical error so nothing reveals which one
// happened. A successful login overwrites any prior token for the user: the
// most recent login wins.
func (m *Manager) Login(ctx context.Context, identifier, password string) (string, time.Time, error) {
	identifier = strings.TrimSpace(identifier)

	if identifier == "" || password == "" {
		return "", time.Time{}, user.ErrInvalidCredentials
	}

	u, err := m.store.FindByUsernameOrEmail(ctx, identifier)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", time.Time{}, user.ErrInvalidCredentials
		}

		return "", time.Time{}, err
	}

	err = security.CheckPassword(u.PasswordHash, password)

	if err != nil {
		return "", time.Time{}, user.ErrInvalidCredentials
	}

	token, err := security.NewSessionToken()

	if err != nil {
		return "", time.Time{}, err
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	err = m.store.UpdateSession(ctx, u.ID, &token, &expiresAt, &now)

	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// Logout clears the token/expiry pair for the user owning the token. A second
// logout with the same token fails with ErrInvalidSession since the token no
// longer resolves.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return user.ErrInvalidSession
	}

	u, err := m.store.FindByToken(ctx, token)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrInvalidSession
		}

		return err
	}

	expired := u.SessionExpiresAt == nil || !m.now().Before(*u.SessionExpiresAt)

	// clear either way; an expired token still counts as an invalid session
	clearErr := m.store.UpdateSession(ctx, u.ID, nil, nil, nil)

	if expired {
		return user.ErrInvalidSession
	}

	return clearErr
}

// Validate resolves a token to its user. NOT read-only: an expired session is
// cleared from the store as a side effect before the expiry error is
// returned. Re-applying the clear on an already-cleared record is safe, so a
// failed cleanup write is ignored (a later call re-detects the expiry).
func (m *Manager) Validate(ctx context.Context, token string) (user.User, error) {
	if token == "" {
		return user.User{}, user.ErrInvalidSession
	}

	u, err := m.store.FindByToken(ctx, token)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, user.ErrInvalidSession
		}

		return user.User{}, err
	}

	if u.SessionExpiresAt == nil {
		return user.User{}, user.ErrInvalidSession
	}

	if !m.now().Before(*u.SessionExpiresAt) {
		// lazy cleanup
		_ = m.store.UpdateSession(ctx, u.ID, nil, nil, nil)

		return user.User{}, &user.SessionExpiredError{ExpiredAt: *u.SessionExpiresAt}
	}

	return u, nil
}

type Status struct {
	Valid     bool       `json:"valid"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Remaining string     `json:"remaining,omitempty"`
}

// Status reports validity, owning username, expiry and time remaining.
// Invalid and expired sessions are a negative status, not an error.
func (m *Manager) Status(ctx context.Context, token string) (Status, error) {
	u, err := m.Validate(ctx, token)

	if err != nil {
		var expiredErr *user.SessionExpiredError

		if errors.As(err, &expiredErr) {
			return Status{Valid: false, ExpiresAt: &expiredErr.ExpiredAt}, nil
		}

		if errors.Is(err, user.ErrInvalidSession) {
			return Status{Valid: false}, nil
		}

		return Status{}, err
	}

	remaining := u.SessionExpiresAt.Sub(m.now()).Round(time.Second)

	return Status{
		Valid:     true,
		Username:  u.Username,
		ExpiresAt: u.SessionExpiresAt,
		Remaining: remaining.String(),
	}, nil
}
