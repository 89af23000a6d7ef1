package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/highscore-service/internal/service"
	apperrors "github.com/spec-kit/highscore-service/pkg/util"
)

// SessionHandler exposes the correlation-id verification endpoint.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Verify handles GET /:clientRequestId/verify. The token under verification
// travels in the Authorization header; verification never consults any
// server-side token state.
func (h *SessionHandler) Verify(c *fiber.Ctx) error {
	correlationID := c.Params("clientRequestId")
	h.logger.Info("verify request", zap.String("client_request_id", correlationID))

	token, ok := bearerToken(c)
	if !ok {
		return apperrors.NewTokenUnreadable()
	}

	verified, err := h.sessions.Verify(correlationID, token)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"token": verified})
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
