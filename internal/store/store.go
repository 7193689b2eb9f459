// Package store defines the key-value contract the rest of the backend is
// built on: hashes, ordered lists, sets, key expiry and pub/sub. Two
// implementations exist, RedisStore for real deployments and MemoryStore for
// tests and single-process use.
package store

import (
	"context"
	"time"
)

// TTL sentinel values, mirroring Redis semantics.
const (
	TTLNoExpiry  = -1
	TTLKeyAbsent = -2
)

// Message is a single pub/sub delivery.
type Message struct {
	Channel Channel
	Payload string
}

// Channel is a logical pub/sub address. Rooms publish on their own id.
type Channel = string

// PubSub is one subscriber's view of a set of channels. Messages is closed
// after Close returns; Close releases the dedicated subscriber connection.
type PubSub interface {
	Messages() <-chan Message
	Close() error
}

// Store is the uniform adapter over the backing key-value store. Every
// mutation is a single store round trip; the pipelined helpers (Del,
// ExpireMany, AppendCapped, HSetEx, SAddEx) exist so callers never have to
// compose multi-key invariants out of separately observable writes.
type Store interface {
	// Hashes.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HSetEx writes fields and arms the key's expiry in one pipeline.
	HSetEx(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Keys.
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// ExpireMany arms the same expiry on several keys in one pipeline.
	ExpireMany(ctx context.Context, ttl time.Duration, keys ...string) error
	// TTL returns the remaining lifetime in whole seconds, TTLNoExpiry for a
	// key without expiry and TTLKeyAbsent for a missing key.
	TTL(ctx context.Context, key string) (int64, error)
	// Del removes all given keys in one pipeline.
	Del(ctx context.Context, keys ...string) error

	// Ordered lists.
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LRem(ctx context.Context, key string, count int64, value string) (int64, error)
	// AppendCapped appends, trims the list to its last max entries and arms
	// the key's expiry, all in one pipeline.
	AppendCapped(ctx context.Context, key, value string, max int64, ttl time.Duration) error

	// Sets. SAddEx is the atomic admit-a-member primitive: concurrent calls
	// never lose entries.
	SAddEx(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)

	// Pub/sub.
	Publish(ctx context.Context, channel Channel, payload string) error
	Subscribe(ctx context.Context, channels ...Channel) (PubSub, error)

	Ping(ctx context.Context) error
	Close() error
}
