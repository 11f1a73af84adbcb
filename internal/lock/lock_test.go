package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		parts    []interface{}
		expected string
	}{
		{"no parts", nil, "lock"},
		{"comment", []interface{}{"comment", int64(42)}, "lock:comment:42"},
		{"reaction", []interface{}{"reaction", int64(1), "alice"}, "lock:reaction:1:alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.parts...); got != tt.expected {
				t.Errorf("Key() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Acquire(context.Background(), "comment:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen, "at most one holder at a time")
}

func TestLocalLocker(t *testing.T) {
	l := NewLocal()
	exerciseMutualExclusion(t, l)
	assert.Equal(t, 0, l.held(), "slots are released")
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocal()

	unlockA, err := l.Acquire(context.Background(), "block:alice")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Acquire(ctx, "block:bob")
	require.NoError(t, err, "a different key must not wait")
	unlockB()
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.True(t, errors.Is(err, ErrNotAcquired))

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, l.held())
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedis(client, 5*time.Second, 5*time.Second)
	exerciseMutualExclusion(t, l)
}

func TestRedisLocker_WaitTimeout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedis(client, 5*time.Second, 50*time.Millisecond)
	unlock, err := l.Acquire(context.Background(), "flag:7")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Acquire(context.Background(), "flag:7")
	assert.True(t, errors.Is(err, ErrNotAcquired), "got %v", err)
}
