package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/expensehub/internal/domain/user"
	"github.com/geocoder89/expensehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, username, email, password_hash, session_token, session_expires_at, created_at, last_login`

// Insert relies on the unique constraints on username and email; two
// concurrent registrations with the same username cannot both succeed.
func (r *UsersRepo) Insert(ctx context.Context, u user.User) (string, error) {
	err := r.observe("users.insert", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, created_at)
			 VALUES ($1,$2,$3,$4,$5)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return "", user.ErrDuplicateUsername
			case "users_email_key":
				return "", user.ErrDuplicateEmail
			}

			// constraint named differently in older schemas
			if strings.Contains(pgErr.ConstraintName, "email") {
				return "", user.ErrDuplicateEmail
			}

			return "", user.ErrDuplicateUsername
		}

		return "", err
	}

	return u.ID, nil
}

func (r *UsersRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, error) {
	var u user.User

	err := r.observe("users.find_by_identifier", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
			 FROM users
			 WHERE username = $1 OR email = lower($1)`,
			identifier,
		).Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.SessionToken,
			&u.SessionExpiresAt,
			&u.CreatedAt,
			&u.LastLogin,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) FindByToken(ctx context.Context, token string) (user.User, error) {
	var u user.User

	err := r.observe("users.find_by_token", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
			 FROM users
			 WHERE session_token = $1`,
			token,
		).Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.SessionToken,
			&u.SessionExpiresAt,
			&u.CreatedAt,
			&u.LastLogin,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// UpdateSession writes token and expiry together (both values or both NULL).
// last_login is only touched when provided.
func (r *UsersRepo) UpdateSession(ctx context.Context, userID string, token *string, expiresAt *time.Time, lastLogin *time.Time) error {
	var tag pgconn.CommandTag

	err := r.observe("users.update_session", func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`UPDATE users
			 SET session_token = $2,
			     session_expires_at = $3,
			     last_login = COALESCE($4, last_login)
			 WHERE id = $1`,
			userID, token, expiresAt, lastLogin,
		)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}
