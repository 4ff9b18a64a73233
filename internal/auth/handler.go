package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the login endpoint.
type Handler struct {
	svc *Service
}

// NewHandler constructs the login HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Login validates credentials and returns a bearer token with the account.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.svc.Login(c.UserContext(), req.User, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(session)
}
