package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/expensehub/internal/domain/user"
)

// UsersRepo is an in-memory credential store. The mutex plays the role the
// database unique constraints play in the postgres repo, so concurrent
// registrations racing on the same username or email resolve the same way.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // keyed by user id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Insert(_ context.Context, u user.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Username == u.Username {
			return "", user.ErrDuplicateUsername
		}

		if strings.EqualFold(existing.Email, u.Email) {
			return "", user.ErrDuplicateEmail
		}
	}

	r.items[u.ID] = u

	return u.ID, nil
}

func (r *UsersRepo) FindByUsernameOrEmail(_ context.Context, identifier string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == identifier || strings.EqualFold(u.Email, identifier) {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) FindByToken(_ context.Context, token string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.SessionToken != nil && *u.SessionToken == token {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) UpdateSession(_ context.Context, userID string, token *string, expiresAt *time.Time, lastLogin *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]

	if !ok {
		return user.ErrNotFound
	}

	u.SessionToken = token
	u.SessionExpiresAt = expiresAt

	if lastLogin != nil {
		u.LastLogin = lastLogin
	}

	r.items[userID] = u

	return nil
}
