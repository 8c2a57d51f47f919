package middleware

import (
	"brickvault-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const principalLocal = "holder_id"

// PrincipalHeader carries the authenticated holder id, set by the auth
// gateway in front of this service. Authentication itself happens upstream;
// the ledger only needs a trustworthy principal identifier.
const PrincipalHeader = "X-Holder-Id"

// Principal extracts the authenticated holder id into Locals. Requests
// without a valid principal pass through with no holder set; use
// RequirePrincipal on routes that need one.
func Principal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(PrincipalHeader)
		if raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Locals(principalLocal, id)
			}
		}
		return c.Next()
	}
}

// RequirePrincipal rejects requests that carry no authenticated holder id.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(principalLocal).(uuid.UUID); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetHolderID returns the authenticated holder id from Locals.
func GetHolderID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(principalLocal).(uuid.UUID)
	return id, ok
}
