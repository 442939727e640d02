package preferences

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

const methodKeyPrefix = "preferences:second_factor_method:"

// RedisStore persists method preferences in redis with no expiry. Subscribe
// callbacks are process-local; cross-process propagation is out of scope.
type RedisStore struct {
	client redis.Cmdable

	mu          sync.Mutex
	subscribers []func(string, Method)
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Method, error) {
	raw, err := s.client.Get(ctx, methodKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", dErrors.New(dErrors.CodeNotFound, "no method preference recorded")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not load method preference")
	}

	method, err := ParseMethod(raw)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "stored method preference is corrupt")
	}
	return method, nil
}

func (s *RedisStore) Set(ctx context.Context, userID string, method Method) error {
	if _, err := ParseMethod(string(method)); err != nil {
		return err
	}

	if err := s.client.Set(ctx, methodKeyPrefix+userID, string(method), 0).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not store method preference")
	}

	s.mu.Lock()
	subscribers := append([]func(string, Method){}, s.subscribers...)
	s.mu.Unlock()

	for _, notify := range subscribers {
		notify(userID, method)
	}
	return nil
}

func (s *RedisStore) Subscribe(notify func(userID string, method Method)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, notify)
}
