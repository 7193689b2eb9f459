package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of Store with the same expiry
// and pub/sub semantics as the Redis adapter. It backs tests and
// single-process deployments that have no Redis available.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]*memEntry
	subs map[*memPubSub]struct{}
}

type memEntry struct {
	hash     map[string]string
	list     []string
	set      map[string]struct{}
	expireAt time.Time // zero means no expiry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*memEntry),
		subs: make(map[*memPubSub]struct{}),
	}
}

// live returns the entry for key, lazily discarding it when its expiry has
// lapsed. Callers hold s.mu.
func (s *MemoryStore) live(key string) *memEntry {
	e, ok := s.keys[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && time.Now().After(e.expireAt) {
		delete(s.keys, key)
		return nil
	}
	return e
}

func (s *MemoryStore) ensure(key string) *memEntry {
	e := s.live(key)
	if e == nil {
		e = &memEntry{}
		s.keys[key] = e
	}
	return e
}

func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	for f, v := range fields {
		e.hash[f] = v
	}
	return nil
}

func (s *MemoryStore) HSetEx(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	for f, v := range fields {
		e.hash[f] = v
	}
	e.expireAt = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || e.hash == nil {
		return "", false, nil
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	e := s.live(key)
	if e == nil {
		return out, nil
	}
	for f, v := range e.hash {
		out[f] = v
	}
	return out, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key) != nil, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(key); e != nil {
		e.expireAt = time.Now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) ExpireMany(ctx context.Context, ttl time.Duration, keys ...string) error {
	for _, key := range keys {
		if err := s.Expire(ctx, key, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return TTLKeyAbsent, nil
	}
	if e.expireAt.IsZero() {
		return TTLNoExpiry, nil
	}
	secs := int64(time.Until(e.expireAt).Seconds() + 0.999)
	if secs < 0 {
		secs = 0
	}
	return secs, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func (s *MemoryStore) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	e.list = append(e.list, values...)
	return nil
}

func (s *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil, nil
	}
	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

func (s *MemoryStore) LRem(_ context.Context, key string, count int64, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return 0, nil
	}
	var removed int64
	kept := e.list[:0]
	for _, v := range e.list {
		if v == value && (count == 0 || removed < count) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	e.list = kept
	return removed, nil
}

func (s *MemoryStore) AppendCapped(_ context.Context, key, value string, max int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	e.list = append(e.list, value)
	if int64(len(e.list)) > max {
		e.list = e.list[int64(len(e.list))-max:]
	}
	e.expireAt = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) SAddEx(_ context.Context, key string, ttl time.Duration, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(key)
	if e.set == nil {
		e.set = make(map[string]struct{})
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || e.set == nil {
		return false, nil
	}
	_, ok := e.set[member]
	return ok, nil
}

func (s *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.set)), nil
}

func (s *MemoryStore) Publish(_ context.Context, channel Channel, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if !sub.listening(channel) {
			continue
		}
		// Slow subscribers drop rather than block the publisher.
		select {
		case sub.out <- Message{Channel: channel, Payload: payload}:
		default:
		}
	}
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, channels ...Channel) (PubSub, error) {
	sub := &memPubSub{
		store:    s,
		channels: make(map[Channel]struct{}, len(channels)),
		out:      make(chan Message, 256),
	}
	for _, ch := range channels {
		sub.channels[ch] = struct{}{}
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		close(sub.out)
	}
	s.subs = make(map[*memPubSub]struct{})
	return nil
}

type memPubSub struct {
	store    *MemoryStore
	channels map[Channel]struct{}
	out      chan Message
	closing  sync.Once
}

func (p *memPubSub) listening(ch Channel) bool {
	_, ok := p.channels[ch]
	return ok
}

func (p *memPubSub) Messages() <-chan Message {
	return p.out
}

func (p *memPubSub) Close() error {
	p.closing.Do(func() {
		p.store.mu.Lock()
		if _, ok := p.store.subs[p]; ok {
			delete(p.store.subs, p)
			close(p.out)
		}
		p.store.mu.Unlock()
	})
	return nil
}
