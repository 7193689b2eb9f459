package handlers

import (
	"context"
	"time"

	"burnchat-backend/internal/realtime"
	"burnchat-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// RealtimeSocketHandler mirrors the SSE gateway over a WebSocket: same
// channels/events/lastTimestamp query parameters, one JSON frame per
// delivered event, ping keepalive. The read pump exists only to notice the
// client going away.
func RealtimeSocketHandler(bus realtime.Bus) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		defer c.Close()

		channels, events, since, ok := parseStreamParams(c.Query("channels"), c.Query("events"), c.Query("lastTimestamp"))
		if !ok {
			_ = c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing channels or events"))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub, err := bus.Subscribe(ctx, channels, realtime.SubscribeOptions{Since: since})
		if err != nil {
			utils.LogError(err, "ws subscribe")
			return
		}
		defer sub.Close()

		// Detect disconnect promptly instead of waiting for a failed write.
		go func() {
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case ev, open := <-sub.Events():
				if !open {
					return
				}
				if !events[ev.Event] {
					continue
				}
				frame := streamFrame{Event: ev.Event, Data: ev.Data}
				if err := utils.SendJSON(c, frame); err != nil {
					return
				}
			case <-heartbeat.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
}
