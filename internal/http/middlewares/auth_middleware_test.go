package middlewares_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/expensehub/internal/domain/user"
	"github.com/geocoder89/expensehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	validateFn func(ctx context.Context, token string) (user.User, error)
}

func (f *fakeValidator) Validate(ctx context.Context, token string) (user.User, error) {
	if f.validateFn != nil {
		return f.validateFn(ctx, token)
	}

	return user.User{}, user.ErrInvalidSession
}

func protectedRouter(v middlewares.SessionValidator) *gin.Engine {
	r := gin.New()

	mw := middlewares.NewAuthMiddleware(v)

	r.GET("/protected", mw.RequireSession(), func(ctx *gin.Context) {
		id, _ := middlewares.UserIDFromContext(ctx)
		name, _ := middlewares.UsernameFromContext(ctx)

		ctx.JSON(http.StatusOK, gin.H{"userId": id, "username": name})
	})

	return r
}

func TestRequireSession(t *testing.T) {
	expiredAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	alice := user.User{ID: "u-1", Username: "alice"}

	tests := []struct {
		name       string
		authHeader string
		validateFn func(ctx context.Context, token string) (user.User, error)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_session",
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic abc123",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_session",
		},
		{
			name:       "bearer with empty token",
			authHeader: "Bearer ",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_session",
		},
		{
			name:       "unknown token",
			authHeader: "Bearer bogus",
			validateFn: func(_ context.Context, _ string) (user.User, error) {
				return user.User{}, user.ErrInvalidSession
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_session",
		},
		{
			name:       "expired token",
			authHeader: "Bearer stale",
			validateFn: func(_ context.Context, _ string) (user.User, error) {
				return user.User{}, &user.SessionExpiredError{ExpiredAt: expiredAt}
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "session_expired",
		},
		{
			name:       "store failure",
			authHeader: "Bearer fine",
			validateFn: func(_ context.Context, _ string) (user.User, error) {
				return user.User{}, context.DeadlineExceeded
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "valid token",
			authHeader: "Bearer good",
			validateFn: func(_ context.Context, token string) (user.User, error) {
				if token != "good" {
					t.Fatalf("middleware passed token %q, want %q", token, "good")
				}
				return alice, nil
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := protectedRouter(&fakeValidator{validateFn: tc.validateFn})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)

			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tc.wantStatus, w.Body.String())
			}

			var body map[string]any

			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json body: %v", err)
			}

			if tc.wantStatus == http.StatusOK {
				if body["userId"] != "u-1" || body["username"] != "alice" {
					t.Fatalf("handler saw identity %v", body)
				}
				return
			}

			errObj, ok := body["error"].(map[string]any)

			if !ok {
				t.Fatalf("missing error envelope in %s", w.Body.String())
			}

			if errObj["code"] != tc.wantCode {
				t.Fatalf("error code = %v, want %s", errObj["code"], tc.wantCode)
			}
		})
	}
}

func TestRequireSessionExpiredMessageCarriesDeadline(t *testing.T) {
	expiredAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := protectedRouter(&fakeValidator{
		validateFn: func(_ context.Context, _ string) (user.User, error) {
			return user.User{}, &user.SessionExpiredError{ExpiredAt: expiredAt}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer stale")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}

	want := expiredAt.Format(time.RFC3339)

	if !strings.Contains(body.Error.Message, want) {
		t.Fatalf("message %q does not mention expiry %q", body.Error.Message, want)
	}
}
