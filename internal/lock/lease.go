// Package lock provides the lease that keeps two daily runs for the same
// day from executing at the same time.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the lease.
var ErrHeld = errors.New("lease already held")

// Releaser gives a lease back.
type Releaser func(ctx context.Context) error

// Locker acquires named leases. A lease is renewed in the background until
// its Releaser is called, so ttl only bounds how long a crashed holder keeps
// the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Releaser, error)
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// renewScript extends the key only if it still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// renewFunc extends a lease and reports whether it is still ours.
type renewFunc func(ctx context.Context) (bool, error)

// keepAlive calls renew every ttl/3 until the returned stop is called or the
// lease is lost. stop waits for the renewal goroutine to exit.
func keepAlive(ttl time.Duration, renew renewFunc) (stop func()) {
	interval := ttl / 3
	if interval <= 0 {
		return func() {}
	}

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				held, err := renew(ctx)
				cancel()
				if err == nil && !held {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
		})
	}
}

// RedisLocker implements Locker with SET NX PX so leases span instances.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker builds a Redis-backed locker.
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Releaser, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	stop := keepAlive(ttl, func(ctx context.Context) (bool, error) {
		n, err := renewScript.Run(ctx, l.client, []string{fullKey}, token, ttl.Milliseconds()).Int()
		return n == 1, err
	})

	return func(ctx context.Context) error {
		stop()
		return releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
	}, nil
}

type localLease struct {
	token   uint64
	expires time.Time
}

// LocalLocker implements Locker within one process.
type LocalLocker struct {
	mu     sync.Mutex
	held   map[string]localLease
	tokens uint64
	now    func() time.Time
}

// NewLocalLocker builds an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localLease), now: time.Now}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Releaser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, ok := l.held[key]; ok && l.now().Before(lease.expires) {
		return nil, ErrHeld
	}
	l.tokens++
	token := l.tokens
	l.held[key] = localLease{token: token, expires: l.now().Add(ttl)}

	stop := keepAlive(ttl, func(context.Context) (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		lease, ok := l.held[key]
		if !ok || lease.token != token {
			return false, nil
		}
		lease.expires = l.now().Add(ttl)
		l.held[key] = lease
		return true, nil
	})

	return func(context.Context) error {
		stop()
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
