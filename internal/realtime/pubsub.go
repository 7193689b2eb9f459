package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"burnchat-backend/internal/store"
	"burnchat-backend/internal/utils"
)

// PubSubBus delivers events over the store's native publish/subscribe. Each
// subscriber holds a dedicated store connection and sees only what is
// published while it is listening; there is no backlog.
type PubSubBus struct {
	store store.Store
}

func NewPubSubBus(st store.Store) *PubSubBus {
	return &PubSubBus{store: st}
}

func (b *PubSubBus) Publish(ctx context.Context, channel, event string, data any) error {
	payload, _, err := encodeEvent(event, data)
	if err != nil {
		return err
	}
	return b.store.Publish(ctx, channel, payload)
}

func (b *PubSubBus) Subscribe(ctx context.Context, channels []string, _ SubscribeOptions) (Subscription, error) {
	ps, err := b.store.Subscribe(ctx, channels...)
	if err != nil {
		return nil, err
	}

	sub := &pushSub{
		ps:   ps,
		out:  make(chan Event, 64),
		done: make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

type pushSub struct {
	ps      store.PubSub
	out     chan Event
	done    chan struct{}
	closing sync.Once
}

func (s *pushSub) pump() {
	defer close(s.out)
	for msg := range s.ps.Messages() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			// A malformed payload is dropped, never fatal to the stream.
			utils.LogError(err, "pubsub decode")
			continue
		}
		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *pushSub) Events() <-chan Event {
	return s.out
}

func (s *pushSub) Close() error {
	var err error
	s.closing.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
