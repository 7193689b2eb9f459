package handlers

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestParseStreamParams(t *testing.T) {
	tests := []struct {
		name          string
		channels      string
		events        string
		lastTimestamp string
		wantOK        bool
		wantChannels  int
		wantSince     int64
	}{
		{"both present", "a,b", "chat.message,chat.destroy", "", true, 2, 0},
		{"single channel", "room1", "chat.message", "", true, 1, 0},
		{"with cursor", "room1", "chat.message", "1700000000000", true, 1, 1700000000000},
		{"missing channels", "", "chat.message", "", false, 0, 0},
		{"missing events", "room1", "", "", false, 0, 0},
		{"both missing", "", "", "", false, 0, 0},
		{"garbage cursor ignored", "room1", "chat.message", "not-a-number", true, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channels, events, since, ok := parseStreamParams(tt.channels, tt.events, tt.lastTimestamp)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(channels) != tt.wantChannels {
				t.Errorf("channels = %v, want %d entries", channels, tt.wantChannels)
			}
			if since != tt.wantSince {
				t.Errorf("since = %d, want %d", since, tt.wantSince)
			}
			for ev := range events {
				if !events[ev] {
					t.Errorf("event %q not whitelisted", ev)
				}
			}
		})
	}
}

func TestParseStreamParamsFiltersEmptyEvents(t *testing.T) {
	_, events, _, ok := parseStreamParams("room1", "chat.message,,chat.delete", "")
	if !ok {
		t.Fatal("parse failed")
	}
	if len(events) != 2 {
		t.Errorf("events = %v, want exactly chat.message and chat.delete", events)
	}
	if events[""] {
		t.Error("empty event name whitelisted")
	}
}

func TestWatchConnCancelsOnPeerClose(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go watchConn(server, cancel)

	client.Close()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("peer close not observed")
	}
}

func TestWatchConnIgnoresStrayClientBytes(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchConn(server, cancel)

	if _, err := client.Write([]byte("x")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	select {
	case <-ctx.Done():
		t.Fatal("stray client byte treated as disconnect")
	case <-time.After(50 * time.Millisecond):
	}
}
