// Package rediscache puts a Redis read-through cache in front of a
// profile.Resolver.
//
// Only positive lookups are cached so that a newly provisioned profile becomes
// visible immediately. Redis failures degrade to direct origin lookups.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MrEthical07/goIdentity/profile"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// Resolver caches profiles from Origin in Redis.
type Resolver struct {
	origin profile.Resolver
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New wraps origin. An empty prefix defaults to "gi:profile"; ttl <= 0 uses
// five minutes.
func New(origin profile.Resolver, client redis.UniversalClient, prefix string, ttl time.Duration) *Resolver {
	if prefix == "" {
		prefix = "gi:profile"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Resolver{origin: origin, redis: client, prefix: prefix, ttl: ttl}
}

func (r *Resolver) key(email string) string {
	return r.prefix + ":" + profile.NormalizeEmail(email)
}

func (r *Resolver) FindByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	key := r.key(email)

	raw, err := r.redis.Get(ctx, key).Bytes()
	if err == nil {
		var p profile.Profile
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return &p, nil
		}
		_ = r.redis.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	p, err := r.origin.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		_ = r.redis.Set(ctx, key, data, r.ttl).Err()
	}
	return p, nil
}

// Invalidate drops the cached entry for email.
func (r *Resolver) Invalidate(ctx context.Context, email string) error {
	return r.redis.Del(ctx, r.key(email)).Err()
}
