package handlers

import (
	"errors"
	"time"

	"burnchat-backend/internal/services"
	"burnchat-backend/internal/token"
	"burnchat-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthCookie is the HTTP-only cookie carrying the raw bearer token.
const AuthCookie = "x-auth-token"

// SetAuthCookie attaches the bearer token to the response. The cookie is the
// only place the token travels; it never appears in URLs.
func SetAuthCookie(c *fiber.Ctx, tok string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     AuthCookie,
		Value:    tok,
		Path:     "/",
		HTTPOnly: true,
		Secure:   utils.GetEnv("APP_ENV", "") == "production",
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Now().Add(ttl),
	})
}

// RequireRoomToken guards the protected routes. It resolves the room from
// the roomId query parameter, classifies the cookie token against it and
// stores token, roomId and role in locals for the handler.
func RequireRoomToken(rooms *services.RoomService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.Query("roomId")
		if roomID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "roomId required"})
		}
		tok := c.Cookies(AuthCookie)
		if tok == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		role, err := rooms.Classify(c.Context(), roomID, tok)
		if err != nil {
			if errors.Is(err, services.ErrRoomNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if role == token.RoleNone {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		c.Locals("token", tok)
		c.Locals("roomId", roomID)
		c.Locals("role", role)
		return c.Next()
	}
}
