package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/zh-portal/zh_portal/internal/auth"
	"github.com/zh-portal/zh_portal/internal/identity"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"fiber error", fiber.NewError(http.StatusBadRequest, "bad body"), http.StatusBadRequest, "bad body"},
		{"validation", fmt.Errorf("%w: email is required", identity.ErrValidation), http.StatusBadRequest, "validation failed: email is required"},
		{"username taken", identity.ErrUsernameTaken, http.StatusConflict, "username already taken"},
		{"email taken", identity.ErrEmailTaken, http.StatusConflict, "email already registered"},
		{"store conflict", errors.Join(identity.ErrConflict, errors.New("UNIQUE constraint failed")), http.StatusConflict, "identity already registered"},
		{"not found", identity.ErrUserNotFound, http.StatusUnauthorized, "invalid credentials"},
		{"bad password", identity.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"missing token", auth.ErrTokenMissing, http.StatusUnauthorized, "missing bearer token"},
		{"expired token", auth.ErrTokenExpired, http.StatusUnauthorized, "invalid token"},
		{"storage", fmt.Errorf("%w: disk full", identity.ErrStorage), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Resolve(tt.err)
			if status != tt.status || msg != tt.msg {
				t.Fatalf("Resolve(%v) = %d %q, want %d %q", tt.err, status, msg, tt.status, tt.msg)
			}
		})
	}
}
