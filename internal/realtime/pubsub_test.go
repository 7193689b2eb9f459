package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"burnchat-backend/internal/store"
)

func recvEvent(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPubSubBusDeliversInOrder(t *testing.T) {
	bus := NewPubSubBus(store.NewMemory())
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, []string{"room1"}, SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	if err := bus.Publish(ctx, "room1", EventMessage, map[string]string{"text": "one"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := bus.Publish(ctx, "room1", EventMessage, map[string]string{"text": "two"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	first := recvEvent(t, sub)
	second := recvEvent(t, sub)

	var a, b map[string]string
	json.Unmarshal(first.Data, &a)
	json.Unmarshal(second.Data, &b)
	if a["text"] != "one" || b["text"] != "two" {
		t.Errorf("got %q then %q, want one then two", a["text"], b["text"])
	}
	if second.Timestamp < first.Timestamp {
		t.Errorf("timestamps went backwards: %d then %d", first.Timestamp, second.Timestamp)
	}
}

func TestPubSubBusNoBacklog(t *testing.T) {
	st := store.NewMemory()
	bus := NewPubSubBus(st)
	ctx := context.Background()

	// Published before anyone subscribes: lost by design.
	bus.Publish(ctx, "room1", EventMessage, map[string]string{"text": "early"})

	sub, err := bus.Subscribe(ctx, []string{"room1"}, SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	bus.Publish(ctx, "room1", EventMessage, map[string]string{"text": "late"})

	ev := recvEvent(t, sub)
	var got map[string]string
	json.Unmarshal(ev.Data, &got)
	if got["text"] != "late" {
		t.Errorf("got %q, want late (early publish must be missed)", got["text"])
	}
}

func TestPubSubBusChannelIsolation(t *testing.T) {
	bus := NewPubSubBus(store.NewMemory())
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, []string{"room1"}, SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	bus.Publish(ctx, "room2", EventMessage, map[string]string{"text": "other"})
	bus.Publish(ctx, "room1", EventMessage, map[string]string{"text": "mine"})

	ev := recvEvent(t, sub)
	var got map[string]string
	json.Unmarshal(ev.Data, &got)
	if got["text"] != "mine" {
		t.Errorf("got %q, want mine (room2 event leaked)", got["text"])
	}
}

func TestPubSubBusDropsMalformedPayload(t *testing.T) {
	st := store.NewMemory()
	bus := NewPubSubBus(st)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, []string{"room1"}, SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	// Garbage on the wire is logged and dropped, never terminates the stream.
	st.Publish(ctx, "room1", "{not json")
	bus.Publish(ctx, "room1", EventDelete, DeletePayload{ID: "m1"})

	ev := recvEvent(t, sub)
	if ev.Event != EventDelete {
		t.Errorf("event = %q, want %q", ev.Event, EventDelete)
	}
}

func TestPubSubBusCloseClosesEvents(t *testing.T) {
	bus := NewPubSubBus(store.NewMemory())

	sub, err := bus.Subscribe(context.Background(), []string{"room1"}, SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case _, open := <-sub.Events():
		if open {
			t.Error("Events() delivered after Close")
		}
	case <-time.After(time.Second):
		t.Error("Events() not closed after Close")
	}
}
