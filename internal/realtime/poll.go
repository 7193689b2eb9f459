package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"burnchat-backend/internal/store"
	"burnchat-backend/internal/utils"
)

// Poll strategy defaults.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultBufferSize   = 100
	DefaultBufferTTL    = 30 * time.Minute
)

// PollOptions tunes the poll strategy. Zero values take the defaults above.
type PollOptions struct {
	Interval   time.Duration
	BufferSize int64
	BufferTTL  time.Duration
}

// PollBus implements the bus on stores without native pub/sub. Publishing
// appends to a capped per-channel ring buffer; subscribers poll the tail on
// a fixed interval and advance a timestamp cursor past what they have seen.
// A reconnecting subscriber that presents its old cursor replays whatever is
// still inside the buffer's size and time bounds.
type PollBus struct {
	store    store.Store
	interval time.Duration
	size     int64
	ttl      time.Duration
}

func NewPollBus(st store.Store, opts PollOptions) *PollBus {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.BufferTTL <= 0 {
		opts.BufferTTL = DefaultBufferTTL
	}
	return &PollBus{store: st, interval: opts.Interval, size: opts.BufferSize, ttl: opts.BufferTTL}
}

// BufferKey is the store key of a channel's poll ring buffer. Exported so
// the room teardown path can manage the buffer without restating the scheme.
func BufferKey(channel string) string {
	return "realtime:" + channel
}

func (b *PollBus) Publish(ctx context.Context, channel, event string, data any) error {
	payload, _, err := encodeEvent(event, data)
	if err != nil {
		return err
	}
	return b.store.AppendCapped(ctx, BufferKey(channel), payload, b.size, b.ttl)
}

func (b *PollBus) Subscribe(ctx context.Context, channels []string, opts SubscribeOptions) (Subscription, error) {
	cursors := make(map[string]int64, len(channels))
	start := opts.Since
	if start <= 0 {
		// No resume cursor: only events from this point on. Backing off one
		// millisecond keeps a publish racing the subscribe from being lost;
		// delivery is at-least-once, clients de-duplicate by id.
		start = time.Now().UnixMilli() - 1
	}
	for _, ch := range channels {
		cursors[ch] = start
	}

	sub := &pollSub{
		bus:      b,
		channels: channels,
		cursors:  cursors,
		out:      make(chan Event, 64),
		done:     make(chan struct{}),
	}
	go sub.loop(ctx)
	return sub, nil
}

type pollSub struct {
	bus      *PollBus
	channels []string
	cursors  map[string]int64
	out      chan Event
	done     chan struct{}
	closing  sync.Once
}

func (s *pollSub) loop(ctx context.Context) {
	defer close(s.out)
	ticker := time.NewTicker(s.bus.interval)
	defer ticker.Stop()

	// Drain once immediately so a resume cursor replays without waiting a
	// full interval.
	if !s.drain(ctx) {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !s.drain(ctx) {
				return
			}
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// drain reads every channel's buffer tail and delivers entries newer than
// the channel's cursor, in buffer order. Returns false once the subscriber
// is gone.
func (s *pollSub) drain(ctx context.Context) bool {
	for _, ch := range s.channels {
		entries, err := s.bus.store.LRange(ctx, BufferKey(ch), -s.bus.size, -1)
		if err != nil {
			utils.LogError(err, "poll read")
			continue
		}
		cursor := s.cursors[ch]
		for _, raw := range entries {
			var ev Event
			if err := json.Unmarshal([]byte(raw), &ev); err != nil {
				utils.LogError(err, "poll decode")
				continue
			}
			if ev.Timestamp <= cursor {
				continue
			}
			select {
			case s.out <- ev:
			case <-s.done:
				return false
			case <-ctx.Done():
				return false
			}
			if ev.Timestamp > s.cursors[ch] {
				s.cursors[ch] = ev.Timestamp
			}
		}
	}
	return true
}

func (s *pollSub) Events() <-chan Event {
	return s.out
}

func (s *pollSub) Close() error {
	s.closing.Do(func() {
		close(s.done)
	})
	return nil
}
