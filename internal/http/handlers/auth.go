package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/expensehub/internal/config"
	"github.com/geocoder89/expensehub/internal/domain/user"
	"github.com/geocoder89/expensehub/internal/session"
	"github.com/gin-gonic/gin"
)

// SessionService is the slice of the session manager the handlers need.
type SessionService interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, identifier, password string) (string, time.Time, error)
	Logout(ctx context.Context, token string) error
	Status(ctx context.Context, token string) (session.Status, error)
}

type AuthHandler struct {
	sessions SessionService
}

func NewAuthHandler(sessions SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	// username or email; the response never reveals which one matched
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	id, err := h.sessions.Register(cctx, req.Username, req.Email, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername):
			RespondConflict(ctx, "duplicate_username", "Username is already taken.")
		case errors.Is(err, user.ErrDuplicateEmail):
			RespondConflict(ctx, "duplicate_email", "Email is already in use.")
		case errors.Is(err, user.ErrInvalidInput):
			RespondBadRequest(ctx, "Invalid registration fields", gin.H{"reason": err.Error()})
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"id":       id,
		"username": req.Username,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	token, expiresAt, err := h.sessions.Login(cctx, req.Identifier, req.Password)

	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Identifier or password is incorrect.")
			return
		}

		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	token := bearerToken(ctx)

	if token == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing session token")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.sessions.Logout(cctx, token)

	if err != nil {
		if errors.Is(err, user.ErrInvalidSession) {
			RespondUnAuthorized(ctx, "invalid_session", "Invalid or already logged-out session token")
			return
		}

		RespondInternal(ctx, "Could not end session")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// SessionStatus reports validity, owning username, expiry and remaining time
// for the presented token. An invalid token is a 200 with valid=false, not an
// error: callers poll this endpoint.
func (h *AuthHandler) SessionStatus(ctx *gin.Context) {
	token := bearerToken(ctx)

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	status, err := h.sessions.Status(cctx, token)

	if err != nil {
		RespondInternal(ctx, "Could not check session")
		return
	}

	ctx.JSON(http.StatusOK, status)
}

func bearerToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
}
