// Package runlock guards against overlapping sync cycles. Uploads are only
// at-least-once safe when a single cycle runs at a time, so when redis is
// configured the job takes a short-lived lock before touching anything.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKey = "filesync:cycle:lock"

// ErrHeld means another cycle is still running.
var ErrHeld = errors.New("cycle lock already held")

type Lock struct {
	client *redis.Client
	value  string
	ttl    time.Duration
}

func New(addr, password string, db int, ttl time.Duration) (*Lock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Lock{client: client, ttl: ttl}, nil
}

// Acquire takes the lock for this cycle. The value identifies the holder so
// Release never clears somebody else's lock.
func (l *Lock) Acquire(ctx context.Context, value string) error {
	ok, err := l.client.SetNX(ctx, lockKey, value, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	l.value = value
	return nil
}

// Release drops the lock if this process still holds it. The TTL covers the
// crash case, so a failed delete is not an error worth surfacing.
func (l *Lock) Release(ctx context.Context) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	l.client.Eval(ctx, script, []string{lockKey}, l.value)
}

func (l *Lock) Close() error {
	return l.client.Close()
}
