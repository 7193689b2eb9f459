package utils

import (
	"encoding/json"
	"log"

	"github.com/gofiber/websocket/v2"
)

// SafeJSONParse parses JSON safely
func SafeJSONParse(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// SendJSON sends a JSON payload to a WebSocket connection. Fiber's websocket
// connection is not safe for concurrent writes; the gateway serializes all
// writes through a single goroutine.
func SendJSON(c *websocket.Conn, payload interface{}) error {
	return c.WriteJSON(payload)
}

// LogError logs an error if it's not nil
func LogError(err error, context string) {
	if err != nil {
		log.Printf("Error [%s]: %v", context, err)
	}
}
