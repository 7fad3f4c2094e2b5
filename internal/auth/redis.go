package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedTokenKeyPrefix   = "authcore:revoked:token:"
	revokedSessionKeyPrefix = "authcore:revoked:sessions:"
)

// RedisRevocations is the shared revocation store: oracle and revoker in one.
// Revoked token ids live exactly as long as the token could still be
// presented; a session cutoff lives for one full token lifetime, after which
// every pre-cutoff token has expired on its own.
type RedisRevocations struct {
	rdb         redis.UniversalClient
	maxTokenTTL time.Duration
	now         func() time.Time
}

var (
	_ RevocationOracle = (*RedisRevocations)(nil)
	_ Revoker          = (*RedisRevocations)(nil)
)

func NewRedisRevocations(rdb redis.UniversalClient, maxTokenTTL time.Duration) *RedisRevocations {
	if maxTokenTTL <= 0 {
		maxTokenTTL = DefaultTokenTTL
	}
	return &RedisRevocations{rdb: rdb, maxTokenTTL: maxTokenTTL, now: time.Now}
}

func (r *RedisRevocations) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedTokenKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *RedisRevocations) RevokeSessions(ctx context.Context, identityID string) error {
	cutoff := r.now().UTC().Format(time.RFC3339Nano)
	return r.rdb.Set(ctx, revokedSessionKeyPrefix+identityID, cutoff, r.maxTokenTTL).Err()
}

func (r *RedisRevocations) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedTokenKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRevocations) SessionsRevokedAt(ctx context.Context, identityID string) (time.Time, error) {
	raw, err := r.rdb.Get(ctx, revokedSessionKeyPrefix+identityID).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis get: %w", err)
	}
	cutoff, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session cutoff: %w", err)
	}
	return cutoff, nil
}
