package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wildmind/studio-api/internal/auth"
	"github.com/wildmind/studio-api/pkg/response"
)

const identityKey = "identity"

// Authenticate requires a valid bearer token on every request
func Authenticate(authn *auth.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := authn.Authenticate(c.Get(fiber.HeaderAuthorization))
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			return response.Unauthorized(c, "Missing or malformed authorization header")
		case errors.Is(err, auth.ErrNotConfigured):
			return response.Unauthorized(c, "Authentication not configured")
		case err != nil:
			return response.Unauthorized(c, "Invalid or expired token")
		}
		SetIdentity(c, id)
		return c.Next()
	}
}

func SetIdentity(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(identityKey, id)
}

// GetIdentity returns nil on routes without an auth middleware
func GetIdentity(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(identityKey).(*auth.Identity)
	return id
}

func GetUserID(c *fiber.Ctx) string {
	if id := GetIdentity(c); id != nil {
		return id.UserID
	}
	return ""
}
