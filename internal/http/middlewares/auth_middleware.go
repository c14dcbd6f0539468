package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/expensehub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (user.User, error)
}

// AuthMiddleware is the single chokepoint every expense operation passes
// through. On failure the wrapped handler never runs; on success the resolved
// user identity is the only scoping key handlers may use.
type AuthMiddleware struct {
	sessions SessionValidator
}

func NewAuthMiddleware(sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "invalid_session", "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "invalid_session", "Missing session token")
			return
		}

		u, err := m.sessions.Validate(c.Request.Context(), raw)

		if err != nil {
			var expiredErr *user.SessionExpiredError

			switch {
			case errors.As(err, &expiredErr):
				abortUnauthorized(c, "session_expired",
					"Session expired at "+expiredErr.ExpiredAt.UTC().Format(time.RFC3339))
			case errors.Is(err, user.ErrInvalidSession):
				abortUnauthorized(c, "invalid_session", "Invalid or logged-out session token")
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":    "internal_error",
						"message": "Could not validate session",
					},
				})
			}
			return
		}

		// Stash the resolved identity on the context
		c.Set(ctxUserIDKey, u.ID)
		c.Set(ctxUsernameKey, u.Username)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func UsernameFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUsernameKey)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}
