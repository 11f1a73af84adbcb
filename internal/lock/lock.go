// Package lock provides per-key mutual exclusion for discussion writes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/steemit/discussion/pkg/logging"
)

// ErrNotAcquired is returned when a lock could not be obtained before the
// context or the wait timeout expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held lock
type Unlock func()

// Locker serializes work per key
type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}

// Key joins parts into a lock key
func Key(parts ...interface{}) string {
	key := "lock"
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// LocalLocker is an in-process Locker. Each key is a one-slot semaphore so
// that waiters can give up when their context ends.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process locker
func NewLocal() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free or ctx is done
func (l *LocalLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, s)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
	}
}

func (l *LocalLocker) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held returns the number of keys currently tracked
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// RedisLocker is a Locker shared by every process using the same Redis
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedis creates a Redis-backed locker. ttl bounds how long a crashed
// holder can keep a key; wait bounds how long Acquire retries.
func NewRedis(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
		logger: logging.WithComponent("lock"),
	}
}

// Acquire obtains key, retrying until wait elapses or ctx is done
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held, err := l.client.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retry),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := held.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
