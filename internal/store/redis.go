package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	readRetries   = 3
	retryStep     = 50 * time.Millisecond
	retryDelayMax = 2 * time.Second
)

// RedisStore implements Store on a pooled go-redis client. Construct it once
// at startup and inject it; there is no package-level instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at url (redis://host:port form) and
// verifies the connection with a ping.
func NewRedis(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("[store] Connected to Redis at %s", opts.Addr)
	return &RedisStore{client: client}, nil
}

// NewRedisWithClient wraps an existing client. Used by tests.
func NewRedisWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// retryRead runs fn with bounded backoff. Only idempotent reads go through
// here; writes are never silently retried because their side effect may have
// already applied.
func retryRead(fn func() error) error {
	var err error
	for attempt := 1; attempt <= readRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < readRetries {
			delay := time.Duration(attempt) * retryStep
			if delay > retryDelayMax {
				delay = retryDelayMax
			}
			time.Sleep(delay)
		}
	}
	return err
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	args := make([]interface{}, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	if err := s.client.HSet(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("store hset error: %w", err)
	}
	return nil
}

func (s *RedisStore) HSetEx(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	args := make([]interface{}, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, args...)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store hsetex error: %w", err)
	}
	return nil
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	var (
		val   string
		found bool
	)
	err := retryRead(func() error {
		v, err := s.client.HGet(ctx, key, field).Result()
		if err == redis.Nil {
			val, found = "", false
			return nil
		}
		if err != nil {
			return err
		}
		val, found = v, true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("store hget error: %w", err)
	}
	return val, found, nil
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var val map[string]string
	err := retryRead(func() error {
		var err error
		val, err = s.client.HGetAll(ctx, key).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store hgetall error: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := retryRead(func() error {
		var err error
		n, err = s.client.Exists(ctx, key).Result()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("store exists error: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("store expire error: %w", err)
	}
	return nil
}

func (s *RedisStore) ExpireMany(ctx context.Context, ttl time.Duration, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store expire pipeline error: %w", err)
	}
	return nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (int64, error) {
	var d time.Duration
	err := retryRead(func() error {
		var err error
		d, err = s.client.TTL(ctx, key).Result()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("store ttl error: %w", err)
	}
	// go-redis passes the -1/-2 sentinels through unscaled.
	if d < 0 {
		return int64(d), nil
	}
	return int64(d / time.Second), nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store del error: %w", err)
	}
	return nil
}

func (s *RedisStore) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.RPush(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("store rpush error: %w", err)
	}
	return nil
}

func (s *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var vals []string
	err := retryRead(func() error {
		var err error
		vals, err = s.client.LRange(ctx, key, start, stop).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store lrange error: %w", err)
	}
	return vals, nil
}

func (s *RedisStore) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	n, err := s.client.LRem(ctx, key, count, value).Result()
	if err != nil {
		return 0, fmt.Errorf("store lrem error: %w", err)
	}
	return n, nil
}

func (s *RedisStore) AppendCapped(ctx context.Context, key, value string, max int64, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, value)
	pipe.LTrim(ctx, key, -max, -1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store capped append error: %w", err)
	}
	return nil
}

func (s *RedisStore) SAddEx(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, args...)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store sadd error: %w", err)
	}
	return nil
}

func (s *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	var ok bool
	err := retryRead(func() error {
		var err error
		ok, err = s.client.SIsMember(ctx, key, member).Result()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("store sismember error: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := retryRead(func() error {
		var err error
		n, err = s.client.SCard(ctx, key).Result()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("store scard error: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Publish(ctx context.Context, channel Channel, payload string) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("store publish error: %w", err)
	}
	return nil
}

// Subscribe opens a dedicated subscriber connection for the given channels.
func (s *RedisStore) Subscribe(ctx context.Context, channels ...Channel) (PubSub, error) {
	ps := s.client.Subscribe(ctx, channels...)
	// Force the subscription onto the wire before we report success.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("store subscribe error: %w", err)
	}

	sub := &redisPubSub{ps: ps, out: make(chan Message, 64), done: make(chan struct{})}
	go sub.pump()
	return sub, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisPubSub struct {
	ps      *redis.PubSub
	out     chan Message
	done    chan struct{}
	closing sync.Once
}

func (p *redisPubSub) pump() {
	defer close(p.out)
	for msg := range p.ps.Channel() {
		select {
		case p.out <- Message{Channel: msg.Channel, Payload: msg.Payload}:
		case <-p.done:
			return
		}
	}
}

func (p *redisPubSub) Messages() <-chan Message {
	return p.out
}

func (p *redisPubSub) Close() error {
	var err error
	p.closing.Do(func() {
		close(p.done)
		err = p.ps.Close()
	})
	return err
}
