package businessflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/shorty/app/services"
	businessflow "github.com/amirphl/shorty/business_flow"
	"github.com/amirphl/shorty/models"
	testingutil "github.com/amirphl/shorty/testing"
	"github.com/amirphl/shorty/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redirectFixture struct {
	mr     *miniredis.Miniredis
	links  *testingutil.FakeShortLinkRepository
	clicks *testingutil.FakeClickEventRepository
	cache  services.CacheService
	flow   businessflow.RedirectFlow
}

func newRedirectFixture(t *testing.T) *redirectFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	links := testingutil.NewFakeShortLinkRepository()
	clicks := testingutil.NewFakeClickEventRepository()
	cache := services.NewRedisCacheService(client, "")
	flow := businessflow.NewRedirectFlow(
		links,
		cache,
		services.NewCodeGenerator(6, nil),
		&testingutil.SyncClickRecorder{Repo: clicks},
		time.Hour,
		"https://sho.rt",
	)
	return &redirectFixture{mr: mr, links: links, clicks: clicks, cache: cache, flow: flow}
}

func (f *redirectFixture) put(code, longURL string, expiresAt *time.Time) *models.ShortLink {
	return f.links.Put(&models.ShortLink{ShortCode: code, LongURL: longURL, ExpiresAt: expiresAt})
}

func metadata() *businessflow.ClientMetadata {
	md := businessflow.NewClientMetadata("203.0.113.7", "curl/8.0")
	md.SetReferer("https://news.example.com/")
	return md
}

func TestRedirect_CacheMissIncrementsAndRefills(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	link := f.put("abc123", "https://example.com/a", nil)

	got, err := f.flow.Resolve(ctx, "abc123", metadata())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)

	stored, err := f.links.ByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ClickCount)
	assert.NotNil(t, stored.LastAccessedAt)

	raw, err := f.mr.Get("url:abc123")
	require.NoError(t, err)
	var snapshot businessflow.CachedLinkSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
	assert.Equal(t, businessflow.CachedLinkSnapshot{ID: link.ID, LongURL: "https://example.com/a"}, snapshot)
	assert.Equal(t, time.Hour, f.mr.TTL("url:abc123"))

	assert.Equal(t, 1, f.clicks.Len())
}

func TestRedirect_CacheHitDoesNotTouchCounter(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	link := f.put("abc123", "https://example.com/a", nil)

	_, err := f.flow.Resolve(ctx, "abc123", metadata())
	require.NoError(t, err)

	for range 3 {
		got, err := f.flow.Resolve(ctx, "abc123", metadata())
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", got)
	}

	stored, err := f.links.ByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ClickCount)
	assert.Equal(t, 1, f.links.IncrementCalls)
	assert.Equal(t, 4, f.clicks.Len())

	events, err := f.clicks.ByShortLink(ctx, link.ID, 0, 0)
	require.NoError(t, err)
	for _, e := range events {
		assert.Equal(t, "203.0.113.7", utils.DerefString(e.IPAddress))
		assert.Equal(t, "curl/8.0", utils.DerefString(e.UserAgent))
		assert.Equal(t, "https://news.example.com/", utils.DerefString(e.Referer))
	}
}

func TestRedirect_CacheIsAuthoritativeOnHit(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)

	require.NoError(t, f.cache.SetJSON(ctx, "url:warm01", businessflow.CachedLinkSnapshot{ID: 99, LongURL: "https://cached.example"}, time.Minute))

	got, err := f.flow.Resolve(ctx, "warm01", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cached.example", got)
	assert.Equal(t, 0, f.links.IncrementCalls)
}

func TestRedirect_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)

	tests := []struct {
		name string
		code string
	}{
		{"missing code", "nope42"},
		{"too short", "ab"},
		{"too long", "abcdefghijk"},
		{"invalid characters", "ab-c!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.flow.Resolve(ctx, tt.code, metadata())
			assert.True(t, businessflow.IsShortLinkNotFound(err))
		})
	}
	assert.Equal(t, 0, f.clicks.Len())
}

func TestRedirect_ExpiredIsGone(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	f.put("old123", "https://example.com/old", utils.ToPtr(time.Now().Add(-time.Minute)))

	_, err := f.flow.Resolve(ctx, "old123", metadata())
	assert.True(t, businessflow.IsShortLinkExpired(err))
	assert.False(t, businessflow.IsShortLinkNotFound(err))

	assert.False(t, f.mr.Exists("url:old123"))
	assert.Equal(t, 0, f.clicks.Len())
	assert.Equal(t, 0, f.links.IncrementCalls)
}

func TestRedirect_RefillTTLCappedByExpiry(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	f.put("soon12", "https://example.com/soon", utils.ToPtr(time.Now().Add(10*time.Minute)))

	_, err := f.flow.Resolve(ctx, "soon12", nil)
	require.NoError(t, err)

	ttl := f.mr.TTL("url:soon12")
	assert.Greater(t, ttl, 9*time.Minute)
	assert.LessOrEqual(t, ttl, 10*time.Minute)
}

func TestRedirect_SoftDeletedAfterCacheExpiry(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	link := f.put("gone12", "https://example.com/x", nil)

	_, err := f.flow.Resolve(ctx, "gone12", nil)
	require.NoError(t, err)

	require.NoError(t, f.links.SoftDelete(ctx, link.ID))
	f.mr.FastForward(2 * time.Hour)

	_, err = f.flow.Resolve(ctx, "gone12", nil)
	assert.True(t, businessflow.IsShortLinkNotFound(err))
}

func TestRedirect_CacheDownFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	link := f.put("abc123", "https://example.com/a", nil)
	f.mr.Close()

	got, err := f.flow.Resolve(ctx, "abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)

	stored, err := f.links.ByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ClickCount)
}

func TestRedirect_MalformedCacheEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	f.put("abc123", "https://example.com/a", nil)
	require.NoError(t, f.mr.Set("url:abc123", "not-json"))

	got, err := f.flow.Resolve(ctx, "abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)
	assert.Equal(t, 1, f.links.IncrementCalls)
}

func TestRedirect_ClickFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	f.put("abc123", "https://example.com/a", nil)
	f.clicks.SaveErr = errors.New("analytics down")

	got, err := f.flow.Resolve(ctx, "abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)
}

func TestRedirect_StoreFailureIsServerError(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	f.links.Err = errors.New("connection refused")

	_, err := f.flow.Resolve(ctx, "abc123", nil)
	require.Error(t, err)
	var be *businessflow.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "SHORT_LINK_LOOKUP_FAILED", be.Code)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	f := newRedirectFixture(t)
	f.put("abc123", "https://example.com/a", nil)
	f.put("old123", "https://example.com/old", utils.ToPtr(time.Now().Add(-time.Hour)))

	resp, err := f.flow.Lookup(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.ShortCode)
	assert.Equal(t, "https://sho.rt/abc123", resp.ShortURL)
	assert.True(t, resp.IsActive)

	_, err = f.flow.Lookup(ctx, "a!")
	assert.True(t, businessflow.IsShortLinkNotFound(err))

	_, err = f.flow.Lookup(ctx, "old123")
	assert.True(t, businessflow.IsShortLinkExpired(err))

	assert.Equal(t, 0, f.clicks.Len())
	assert.Equal(t, 0, f.links.IncrementCalls)
}
