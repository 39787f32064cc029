package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers keys in redis for a limited time. It is used for Telegram
// callback ids, which can be redelivered, and for reminders already sent.
type Deduper struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewDeduper(rdb *redis.Client, prefix string, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Claim records key and reports whether this is the first claim within the TTL.
func (d *Deduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s%s: %w", d.prefix, key, err)
	}
	return ok, nil
}

// Release forgets key so a later Claim succeeds again.
func (d *Deduper) Release(ctx context.Context, key string) error {
	if err := d.rdb.Del(ctx, d.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %s%s: %w", d.prefix, key, err)
	}
	return nil
}
