package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Requires Redis on localhost:6379; tests skip when it is not reachable.
const testRedisAddr = "localhost:6379"

func setupRedis(t *testing.T) *RedisStore {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	s := NewRedisWithClient(client)
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "storetest:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return s
}

func TestRedisHashRoundTrip(t *testing.T) {
	s := setupRedis(t)
	ctx := context.Background()

	if err := s.HSetEx(ctx, "storetest:h", map[string]string{"owner": "c-abc", "createdAt": "123"}, time.Minute); err != nil {
		t.Fatalf("HSetEx() error = %v", err)
	}

	v, ok, err := s.HGet(ctx, "storetest:h", "owner")
	if err != nil || !ok || v != "c-abc" {
		t.Fatalf("HGet(owner) = %q, %v, %v; want c-abc, true, nil", v, ok, err)
	}

	all, err := s.HGetAll(ctx, "storetest:h")
	if err != nil || len(all) != 2 {
		t.Fatalf("HGetAll() = %v, %v; want two fields", all, err)
	}

	ttl, err := s.TTL(ctx, "storetest:h")
	if err != nil || ttl <= 0 || ttl > 60 {
		t.Fatalf("TTL() = %d, %v; want (0,60]", ttl, err)
	}
}

func TestRedisTTLSentinels(t *testing.T) {
	s := setupRedis(t)
	ctx := context.Background()

	ttl, err := s.TTL(ctx, "storetest:absent")
	if err != nil || ttl != TTLKeyAbsent {
		t.Fatalf("TTL(absent) = %d, %v; want %d", ttl, err, TTLKeyAbsent)
	}

	s.HSet(ctx, "storetest:noexp", map[string]string{"a": "1"})
	ttl, err = s.TTL(ctx, "storetest:noexp")
	if err != nil || ttl != TTLNoExpiry {
		t.Fatalf("TTL(no expiry) = %d, %v; want %d", ttl, err, TTLNoExpiry)
	}
}

func TestRedisListAndCappedAppend(t *testing.T) {
	s := setupRedis(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if err := s.AppendCapped(ctx, "storetest:ring", string(rune('a'+i)), 5, time.Minute); err != nil {
			t.Fatalf("AppendCapped() error = %v", err)
		}
	}
	all, err := s.LRange(ctx, "storetest:ring", 0, -1)
	if err != nil {
		t.Fatalf("LRange() error = %v", err)
	}
	if len(all) != 5 || all[0] != "c" || all[4] != "g" {
		t.Errorf("ring = %v, want [c d e f g]", all)
	}

	n, err := s.LRem(ctx, "storetest:ring", 1, "e")
	if err != nil || n != 1 {
		t.Fatalf("LRem() = %d, %v; want 1, nil", n, err)
	}
}

func TestRedisPubSubRoundTrip(t *testing.T) {
	s := setupRedis(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "storetest:chan")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	if err := s.Publish(ctx, "storetest:chan", "hello"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if msg.Payload != "hello" {
			t.Errorf("payload = %q, want hello", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pub/sub delivery")
	}
}
