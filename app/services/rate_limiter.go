package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of one sliding window check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	Limit     int
	// RetryAfter is how long until the oldest counted request leaves the window. Zero when allowed.
	RetryAfter time.Duration
}

// RateLimiter is a sliding window counter per identifier, backed by a Redis sorted set
// keyed by prefix:identifier. The identifier is escaped with KeyPart. Every check records
// the request, denied ones included.
type RateLimiter interface {
	Check(ctx context.Context, identifier string, limit int, window time.Duration, prefix string) (RateLimitResult, error)
	// Reset drops the window for identifier and reports whether one existed
	Reset(ctx context.Context, identifier, prefix string) (bool, error)
	CheckIP(ctx context.Context, ip string) (RateLimitResult, error)
	CheckUser(ctx context.Context, userID uint) (RateLimitResult, error)
	CheckURLCreation(ctx context.Context, identifier string) (RateLimitResult, error)
}

// RedisRateLimiter implements RateLimiter
type RedisRateLimiter struct {
	client redis.UniversalClient
	cfg    config.RateLimitConfig
	now    func() time.Time
}

// NewRedisRateLimiter uses utils.UTCNow when now is nil
func NewRedisRateLimiter(client redis.UniversalClient, cfg config.RateLimitConfig, now func() time.Time) RateLimiter {
	if now == nil {
		now = utils.UTCNow
	}
	return &RedisRateLimiter{client: client, cfg: cfg, now: now}
}

func (l *RedisRateLimiter) Check(ctx context.Context, identifier string, limit int, window time.Duration, prefix string) (RateLimitResult, error) {
	if window <= 0 {
		return RateLimitResult{}, fmt.Errorf("rate limit window must be positive, got %s", window)
	}

	key := MakeKey(prefix, KeyPart(identifier))
	now := l.now()
	nowScore := unixSeconds(now)
	windowStart := unixSeconds(now.Add(-window))
	// the suffix keeps two requests in the same nanosecond from collapsing into one member
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()[:8]

	var (
		card   *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatFloat(windowStart, 'f', -1, 64))
		card = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		pipe.ZAdd(ctx, key, redis.Z{Score: nowScore, Member: member})
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limit check for %s: %w", key, err)
	}

	count := int(card.Val())
	result := RateLimitResult{
		Allowed:   count < limit,
		Remaining: max(0, limit-count-1),
		Limit:     limit,
	}

	if !result.Allowed {
		result.RetryAfter = l.cfg.RetryAfter
		if zs := oldest.Val(); len(zs) > 0 {
			until := zs[0].Score + window.Seconds() - nowScore
			result.RetryAfter = time.Duration(math.Ceil(until)) * time.Second
		}
		if result.RetryAfter < time.Second {
			result.RetryAfter = time.Second
		}
		rateLimitDecisionsTotal.WithLabelValues(prefix, "denied").Inc()
	} else {
		rateLimitDecisionsTotal.WithLabelValues(prefix, "allowed").Inc()
	}

	return result, nil
}

func (l *RedisRateLimiter) Reset(ctx context.Context, identifier, prefix string) (bool, error) {
	key := MakeKey(prefix, KeyPart(identifier))
	n, err := l.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit reset for %s: %w", key, err)
	}
	return n > 0, nil
}

func (l *RedisRateLimiter) CheckIP(ctx context.Context, ip string) (RateLimitResult, error) {
	return l.Check(ctx, ip, l.cfg.IPLimit, l.cfg.IPWindow, utils.RateLimitPrefixIP)
}

func (l *RedisRateLimiter) CheckUser(ctx context.Context, userID uint) (RateLimitResult, error) {
	return l.Check(ctx, strconv.FormatUint(uint64(userID), 10), l.cfg.UserLimit, l.cfg.UserWindow, utils.RateLimitPrefixUser)
}

func (l *RedisRateLimiter) CheckURLCreation(ctx context.Context, identifier string) (RateLimitResult, error) {
	return l.Check(ctx, identifier, l.cfg.URLCreationLimit, l.cfg.URLCreationWindow, utils.RateLimitPrefixURLCreation)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
