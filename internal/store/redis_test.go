package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) KeyValueStore {
	t.Helper()

	mr := miniredis.RunT(t)
	kv, err := NewRedisStore(mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestRedisStore_GetAbsentKey(t *testing.T) {
	kv := newTestRedisStore(t)

	value, found, err := kv.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if found {
		t.Fatalf("expected absent key, got value %q", value)
	}
}

func TestRedisStore_PutGet(t *testing.T) {
	kv := newTestRedisStore(t)
	ctx := context.Background()

	payload := []byte{0x00, 0x01, 0xFF, 'a'}
	if err := kv.Put(ctx, "session", payload); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	value, found, err := kv.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found {
		t.Fatalf("expected key to be present")
	}
	if !bytes.Equal(value, payload) {
		t.Errorf("expected %v, got %v", payload, value)
	}
}

func TestRedisStore_PutOverwrites(t *testing.T) {
	kv := newTestRedisStore(t)
	ctx := context.Background()

	if err := kv.Put(ctx, "session", []byte("first")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := kv.Put(ctx, "session", []byte("second")); err != nil {
		t.Fatalf("Put overwrite error: %v", err)
	}

	value, found, err := kv.Get(ctx, "session")
	if err != nil || !found {
		t.Fatalf("Get error: %v found: %v", err, found)
	}
	if !bytes.Equal(value, []byte("second")) {
		t.Errorf("expected overwritten value, got %q", value)
	}
}

func TestNewStore_RedisURL(t *testing.T) {
	mr := miniredis.RunT(t)

	kv, err := NewStore("redis", "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewStore(redis) error: %v", err)
	}
	defer func() { _ = kv.Close() }()

	if err := kv.Put(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
}
