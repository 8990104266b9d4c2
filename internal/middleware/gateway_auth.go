package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wildmind/studio-api/internal/auth"
	"github.com/wildmind/studio-api/pkg/response"
)

// Identity headers exchanged with the gateway's ForwardAuth hop
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// GatewayIdentity trusts the X-User-* headers set after /auth/verify succeeded
func GatewayIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(HeaderUserID)
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}
		SetIdentity(c, &auth.Identity{
			UserID: userID,
			Email:  c.Get(HeaderUserEmail),
			Name:   c.Get(HeaderUserName),
		})
		return c.Next()
	}
}
