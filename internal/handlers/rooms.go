package handlers

import (
	"errors"
	"time"

	"burnchat-backend/internal/models"
	"burnchat-backend/internal/services"
	"burnchat-backend/internal/token"

	"github.com/gofiber/fiber/v2"
)

// CreateRoomHandler allocates a room and hands back the owner token, also
// set as the bearer cookie.
func CreateRoomHandler(rooms *services.RoomService, roomTTL time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID, ownerToken, err := rooms.Create(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		SetAuthCookie(c, ownerToken, roomTTL)
		return c.JSON(models.CreateRoomResponse{RoomID: roomID, OwnerToken: ownerToken})
	}
}

// JoinRoomHandler admits a member into an existing room.
func JoinRoomHandler(rooms *services.RoomService, roomTTL time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.JoinRoomRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.RoomID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "roomId required"})
		}

		userToken, err := rooms.Join(c.Context(), req.RoomID)
		if err != nil {
			if errors.Is(err, services.ErrRoomNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		SetAuthCookie(c, userToken, roomTTL)
		return c.JSON(models.JoinRoomResponse{Success: true, RoomID: req.RoomID, UserToken: userToken})
	}
}

// SudoHandler reports whether the caller holds the owner token. The auth
// middleware already classified the cookie against the room.
func SudoHandler(rooms *services.RoomService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := c.Locals("role").(token.Role)
		return c.JSON(fiber.Map{"owner": role == token.RoleOwner})
	}
}

// TTLHandler reports the room's remaining seconds, never negative.
func TTLHandler(rooms *services.RoomService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.Locals("roomId").(string)

		ttl, err := rooms.RemainingTTL(c.Context(), roomID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"ttl": ttl})
	}
}

// DestroyRoomHandler is the owner's cascading delete.
func DestroyRoomHandler(rooms *services.RoomService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.Locals("roomId").(string)
		tok := c.Locals("token").(string)

		if err := rooms.Destroy(c.Context(), roomID, tok); err != nil {
			switch {
			case errors.Is(err, services.ErrUnauthorized):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
			case errors.Is(err, services.ErrRoomNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
