package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"burnchat-backend/internal/realtime"
	"burnchat-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const heartbeatInterval = 30 * time.Second

// streamFrame is the body of a data frame: the event envelope minus the bus
// timestamp, which clients never consume.
type streamFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RealtimeHandler is the SSE event gateway. It subscribes to the requested
// room channels, forwards whitelisted events as data frames and keeps the
// connection warm with comment-frame heartbeats. Disconnect is observed as a
// failed flush or the request context closing; either way the subscription
// and timer are released before the stream ends.
func RealtimeHandler(bus realtime.Bus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		channels, events, since, ok := parseStreamParams(c.Query("channels"), c.Query("events"), c.Query("lastTimestamp"))
		if !ok {
			return c.Status(fiber.StatusBadRequest).SendString("Missing channels or events parameter")
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache, no-transform")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		reqCtx := c.Context()
		reqCtx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			streamEvents(reqCtx, w, bus, channels, events, since)
		}))
		return nil
	}
}

func parseStreamParams(channelsParam, eventsParam, lastTimestamp string) ([]string, map[string]bool, int64, bool) {
	if channelsParam == "" || eventsParam == "" {
		return nil, nil, 0, false
	}
	channels := strings.Split(channelsParam, ",")
	events := make(map[string]bool)
	for _, ev := range strings.Split(eventsParam, ",") {
		if ev != "" {
			events[ev] = true
		}
	}
	if len(channels) == 0 || len(events) == 0 {
		return nil, nil, 0, false
	}
	since, _ := strconv.ParseInt(lastTimestamp, 10, 64)
	return channels, events, since, true
}

// watchConn notices the peer going away. Event stream clients send nothing
// after the request, so a read error means the connection is done; any stray
// bytes are discarded.
func watchConn(conn net.Conn, cancel context.CancelFunc) {
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			cancel()
			return
		}
	}
}

// streamEvents runs for the lifetime of one client connection.
func streamEvents(reqCtx *fasthttp.RequestCtx, w *bufio.Writer, bus realtime.Bus, channels []string, events map[string]bool, since int64) {
	subCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The request context is done only at server shutdown; the connection is
	// the one place a client disconnect shows up before the next write.
	go watchConn(reqCtx.Conn(), cancel)

	sub, err := bus.Subscribe(subCtx, channels, realtime.SubscribeOptions{Since: since})
	if err != nil {
		utils.LogError(err, "realtime subscribe")
		return
	}
	defer sub.Close()

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
			frame, err := json.Marshal(streamFrame{Event: ev.Event, Data: ev.Data})
			if err != nil {
				utils.LogError(err, "frame encode")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", frame)
			if err := w.Flush(); err != nil {
				return
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			if err := w.Flush(); err != nil {
				return
			}
		case <-subCtx.Done():
			return
		case <-reqCtx.Done():
			return
		}
	}
}
