package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SweepLock grants the right to sweep for one interval.
type SweepLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
}

// RedisSweepLock is a SETNX lease shared by every instance.
type RedisSweepLock struct {
	client redis.Cmdable
	key    string
	owner  string
}

// NewRedisSweepLock builds a lease on key held under owner.
func NewRedisSweepLock(client redis.Cmdable, key, owner string) *RedisSweepLock {
	return &RedisSweepLock{client: client, key: key, owner: owner}
}

// Acquire takes the lease if no other instance holds it. The lease is never
// released early; it lapses after ttl.
func (l *RedisSweepLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, ttl).Result()
}

// LocalSweepLock always grants the lease. Used when Redis is not configured.
type LocalSweepLock struct{}

func (LocalSweepLock) Acquire(context.Context, time.Duration) (bool, error) {
	return true, nil
}
