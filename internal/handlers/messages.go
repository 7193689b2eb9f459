package handlers

import (
	"errors"

	"burnchat-backend/internal/models"
	"burnchat-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PostMessageHandler appends a message to the room's log.
func PostMessageHandler(messages *services.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.Locals("roomId").(string)
		tok := c.Locals("token").(string)

		var req models.PostMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.Sender == "" || len(req.Sender) > models.MaxSenderLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sender required, at most 100 characters"})
		}
		if req.Text == "" || len(req.Text) > models.MaxTextLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text required, at most 1000 characters"})
		}

		if _, err := messages.Append(c.Context(), roomID, req, tok); err != nil {
			if errors.Is(err, services.ErrRoomNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListMessagesHandler returns the room's messages in append order, author
// tokens redacted per requester.
func ListMessagesHandler(messages *services.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.Locals("roomId").(string)
		tok := c.Locals("token").(string)

		msgs, err := messages.List(c.Context(), roomID, tok)
		if err != nil {
			if errors.Is(err, services.ErrRoomNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		return c.JSON(models.ListMessagesResponse{Messages: msgs})
	}
}

// DeleteMessageHandler removes one message by id. Owner only; a non-owner
// call leaves the log untouched and reports Unauthorized.
func DeleteMessageHandler(messages *services.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.Locals("roomId").(string)
		tok := c.Locals("token").(string)

		var req models.DeleteMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.ID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id required"})
		}

		if err := messages.Delete(c.Context(), roomID, req.ID, tok); err != nil {
			switch {
			case errors.Is(err, services.ErrUnauthorized):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
			case errors.Is(err, services.ErrRoomNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Room not found"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
