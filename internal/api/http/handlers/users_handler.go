package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/highscore-service/internal/api/dto"
	"github.com/spec-kit/highscore-service/internal/service"
	apperrors "github.com/spec-kit/highscore-service/pkg/util"
)

// UsersHandler exposes registration and login endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	user, err := h.auth.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login handles POST /:clientRequestId/login. The issued token embeds the
// client request id from the path.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	correlationID := c.Params("clientRequestId")

	var req dto.CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	token, err := h.auth.Login(c.UserContext(), req.Username, req.Password, correlationID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"token": token})
}
