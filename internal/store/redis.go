package store

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore persists blobs as plain redis string values, one per key.
type RedisStore struct {
	rdb *goredis.Client
}

// NewRedisStore accepts either a redis URL (redis://...) or a bare host:port
// address.
func NewRedisStore(connectionString string) (*RedisStore, error) {
	var opts *goredis.Options
	if strings.Contains(connectionString, "://") {
		parsed, err := goredis.ParseURL(connectionString)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: connectionString}
	}

	return &RedisStore{rdb: goredis.NewClient(opts)}, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
