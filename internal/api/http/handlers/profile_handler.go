package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/highscore-service/internal/api/dto"
	"github.com/spec-kit/highscore-service/internal/service"
	apperrors "github.com/spec-kit/highscore-service/pkg/util"
)

// ProfileHandler exposes token-gated profile and high score endpoints.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Profile handles GET /:token/profile.
func (h *ProfileHandler) Profile(c *fiber.Ctx) error {
	user, err := h.profiles.GetProfile(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":        user.ID,
		"username":  user.Username,
		"highScore": user.HighScore,
	})
}

// UpdateHighScore handles PATCH /:token/highscore. The score value is taken
// as-is from the caller; no bounds or monotonicity checks apply.
func (h *ProfileHandler) UpdateHighScore(c *fiber.Ctx) error {
	var req dto.HighScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.HighScore == nil {
		return apperrors.NewValidationError("highScore required", nil)
	}

	score, err := h.profiles.UpdateHighScore(c.UserContext(), c.Params("token"), *req.HighScore)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":   "High score updated successfully.",
		"highScore": score,
	})
}
