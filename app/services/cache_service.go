package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyDelimiter joins key parts. It is reserved: parts must not contain it.
const KeyDelimiter = ":"

// MakeKey joins prefix and parts with KeyDelimiter
func MakeKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), KeyDelimiter)
}

var keyPartEscaper = strings.NewReplacer("%", "%25", KeyDelimiter, "%3A")

// KeyPart escapes KeyDelimiter in a caller supplied value such as an IPv6 address
// so it can be passed to MakeKey as a single part
func KeyPart(value string) string {
	return keyPartEscaper.Replace(value)
}

// CacheService is a thin key-value contract with TTL. Get reports a miss as (nil, false, nil).
// Callers treat any returned error as a miss; the cache is never authoritative.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	// GetJSON decodes into dest. A value that is not valid JSON counts as a miss.
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisCacheService implements CacheService on a shared go-redis client
type RedisCacheService struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisCacheService prefixes every key with namespace when it is not empty
func NewRedisCacheService(client redis.UniversalClient, namespace string) CacheService {
	return &RedisCacheService{client: client, namespace: namespace}
}

func (s *RedisCacheService) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + KeyDelimiter + k
}

func (s *RedisCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	bs, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheLookupsTotal.WithLabelValues("miss").Inc()
			return nil, false, nil
		}
		cacheLookupsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	cacheLookupsTotal.WithLabelValues("hit").Inc()
	return bs, true, nil
}

func (s *RedisCacheService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache set %s: ttl must be positive", key)
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (s *RedisCacheService) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache delete %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisCacheService) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	return getJSON(ctx, s, key, dest)
}

func (s *RedisCacheService) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return setJSON(ctx, s, key, value, ttl)
}

func getJSON(ctx context.Context, c CacheService, key string, dest any) (bool, error) {
	bs, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(bs, dest); err != nil {
		return false, nil
	}
	return true, nil
}

func setJSON(ctx context.Context, c CacheService, key string, value any, ttl time.Duration) error {
	bs, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.Set(ctx, key, bs, ttl)
}

// NoopCacheService always misses. Used when caching is disabled.
type NoopCacheService struct{}

func NewNoopCacheService() CacheService {
	return NoopCacheService{}
}

func (NoopCacheService) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopCacheService) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoopCacheService) Delete(context.Context, string) (bool, error) {
	return false, nil
}

func (NoopCacheService) GetJSON(context.Context, string, any) (bool, error) {
	return false, nil
}

func (NoopCacheService) SetJSON(context.Context, string, any, time.Duration) error {
	return nil
}
