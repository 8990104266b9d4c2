package handler

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/auth"
	"github.com/wildmind/studio-api/internal/middleware"
)

// AuthHandler answers ForwardAuth checks from the gateway
type AuthHandler struct {
	authn  *auth.Authenticator
	logger *log.Entry
}

func NewAuthHandler(authn *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authn: authn, logger: log.WithField("component", "AuthHandler")}
}

// Verify godoc
// @Summary      ForwardAuth token check
// @Description  Returns 200 with X-User-* headers when the bearer token is valid, 401 otherwise
// @Tags         auth
// @Success      200
// @Failure      401
// @Router       /auth/verify [get]
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	id, err := h.authn.Authenticate(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		h.logger.WithError(err).Debug("forward auth rejected")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set(middleware.HeaderUserID, id.UserID)
	c.Set(middleware.HeaderUserEmail, id.Email)
	c.Set(middleware.HeaderUserName, id.Name)
	return c.SendStatus(fiber.StatusOK)
}
