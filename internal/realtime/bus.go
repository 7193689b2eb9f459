// Package realtime fans room events out to live subscribers. Two strategies
// implement the same Bus contract: PubSubBus rides the store's native
// pub/sub, PollBus persists a capped ring buffer per channel and polls it
// with a timestamp cursor. Callers pick one at startup and depend only on
// the interface.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event names published on room channels.
const (
	EventMessage = "chat.message"
	EventDestroy = "chat.destroy"
	EventDelete  = "chat.delete"
)

// Event is the envelope carried on a channel. Data is kept raw so the bus
// never has to understand individual payloads.
type Event struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// DestroyPayload announces a room's teardown, sent before the keys go away.
type DestroyPayload struct {
	IsDestroyed bool `json:"isDestroyed"`
}

// DeletePayload announces removal of a single message.
type DeletePayload struct {
	ID string `json:"id"`
}

// SubscribeOptions tunes a subscription. Since is a resume cursor in epoch
// millis, only honored by the poll strategy; zero means "from now".
type SubscribeOptions struct {
	Since int64
}

// Subscription delivers a single subscriber's events in non-decreasing
// timestamp order per channel. Events is closed after Close.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Bus is the fan-out contract shared by both strategies.
type Bus interface {
	Publish(ctx context.Context, channel, event string, data any) error
	Subscribe(ctx context.Context, channels []string, opts SubscribeOptions) (Subscription, error)
}

func encodeEvent(event string, data any) (string, Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", Event{}, fmt.Errorf("encode event data: %w", err)
	}
	ev := Event{Event: event, Data: raw, Timestamp: time.Now().UnixMilli()}
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", Event{}, fmt.Errorf("encode event: %w", err)
	}
	return string(payload), ev, nil
}
