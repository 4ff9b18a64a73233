// Package httperr maps domain errors onto HTTP statuses and client-safe messages.
package httperr

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/zh-portal/zh_portal/internal/auth"
	"github.com/zh-portal/zh_portal/internal/identity"
)

// Problem is the JSON body sent for every failed request.
type Problem struct {
	Message string `json:"message"`
}

// Resolve returns the status and message for err. Login failures collapse
// into one message so responses do not reveal whether an account exists.
// Unknown errors get a generic message; their detail stays in the logs.
func Resolve(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, identity.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, identity.ErrConflict):
		return http.StatusConflict, conflictMessage(err)
	case errors.Is(err, identity.ErrUserNotFound), errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrTokenMissing):
		return http.StatusUnauthorized, auth.ErrTokenMissing.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrUsernameTaken):
		return "username already taken"
	case errors.Is(err, identity.ErrEmailTaken):
		return "email already registered"
	default:
		return identity.ErrConflict.Error()
	}
}
