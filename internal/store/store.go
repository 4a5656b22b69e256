package store

import (
	"context"
	"fmt"
	"log/slog"
)

// KeyValueStore is the persistence contract the session layer depends on: an
// asynchronous get/put of opaque blobs under string keys. The concrete engine
// is a deployment choice.
type KeyValueStore interface {
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Get returns the value under key. The second result is false when the
	// key is absent; absence is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Close() error
}

// NewStore creates a store of the given type. Supported types: "sqlite"
// (connectionString is the database path, ":memory:" works) and "redis"
// (connectionString is a redis URL or host:port address).
func NewStore(storeType, connectionString string) (KeyValueStore, error) {
	var (
		kv  KeyValueStore
		err error
	)
	switch storeType {
	case "sqlite":
		kv, err = NewSQLiteStore(connectionString)
	case "redis":
		kv, err = NewRedisStore(connectionString)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", storeType, err)
	}

	slog.Info("store initialized", "type", storeType)
	return kv, nil
}
