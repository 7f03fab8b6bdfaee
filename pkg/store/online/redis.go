package online

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// RedisStore is the production online store, backed by redis hashes.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOptions configures the redis online store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// RequestTimeout bounds every operation; zero means 2s.
	RequestTimeout time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	s := &RedisStore{client: client, timeout: timeout}
	if err := s.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Write replaces the hash under key with the given fields. Delete and set
// run in one transactional pipeline so readers never observe a partial map.
func (s *RedisStore) Write(ctx context.Context, key string, fields map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapRedisErr(err, "online write failed", key)
	}
	return nil
}

// ReadAll returns the hash under key. Redis reports an absent key as an
// empty map, which matches the Store contract directly.
func (s *RedisStore) ReadAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapRedisErr(err, "online read failed", key)
	}
	return fields, nil
}

// Ping verifies the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrapRedisErr(err, "online store unreachable", "")
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func wrapRedisErr(err error, msg, key string) error {
	errType := skyerrors.ErrorTypeStorage
	if errors.Is(err, context.DeadlineExceeded) {
		errType = skyerrors.ErrorTypeTimeout
	}
	e := skyerrors.Wrap(err, errType, msg)
	if key != "" {
		e = e.WithDetail("key", key)
	}
	return e
}
