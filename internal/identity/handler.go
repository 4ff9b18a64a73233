package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles account creation.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.service.Register(c.UserContext(), RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "created", "user": user.Public()})
}

// Users lists all accounts without password hashes.
func (h *Handler) Users(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(users)
}

// Export serves the account list as a downloadable JSON file.
func (h *Handler) Export(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	c.Attachment("users-export.json")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(http.StatusOK).Send(body)
}

// Dashboard returns aggregate account figures.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(stats)
}

// Import merges an array of user records into the store.
func (h *Handler) Import(c *fiber.Ctx) error {
	var items []json.RawMessage
	if err := json.Unmarshal(c.Body(), &items); err != nil || items == nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload: expected an array of users")
	}

	// Elements that are not user objects are skipped, not fatal.
	records := make([]ImportRecord, 0, len(items))
	malformed := 0
	for _, item := range items {
		var rec ImportRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			malformed++
			continue
		}
		records = append(records, rec)
	}

	res, err := h.service.Import(c.UserContext(), records)
	if err != nil {
		return err
	}
	res.Skipped += malformed
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "imported", "imported": res.Imported, "skipped": res.Skipped})
}

// Me returns the account behind the presented token.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.service.FindByID(c.UserContext(), uid)
	if errors.Is(err, ErrUserNotFound) {
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(user.Public())
}
