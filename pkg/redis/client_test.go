package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSetNXOnlySetsOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "first", time.Minute)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected first SetNX to win")
	}

	ok, err = client.SetNX(ctx, "k", "second", time.Minute)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if ok {
		t.Fatalf("expected second SetNX to lose")
	}

	v, err := client.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != "first" {
		t.Fatalf("expected original value, got %q", v)
	}
}

func TestSetGetDelLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, "k", "value", 10*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, err := client.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != "value" {
		t.Fatalf("expected stored value, got %q", v)
	}

	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err == nil || err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "kasuwa:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LockKey("cron-worker"); got != "kasuwa:lock:cron-worker" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.IdempotencyKey("scope", ""); got != "kasuwa:idempotency:scope" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	ctx := context.Background()
	client := &Client{}

	if err := client.Set(ctx, "k", "v", 0); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if err := client.Ping(ctx); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
