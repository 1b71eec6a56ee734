package businessflow

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	"github.com/amirphl/shorty/models"
	"github.com/amirphl/shorty/repository"
	"github.com/amirphl/shorty/utils"
)

// ClickRecorder accepts click events for persistence. Implementations may be asynchronous.
type ClickRecorder interface {
	Record(ctx context.Context, event models.ClickEvent) error
}

// CachedLinkSnapshot is the cache projection of a link under url:{short_code}
type CachedLinkSnapshot struct {
	ID      uint   `json:"id"`
	LongURL string `json:"long_url"`
}

// RedirectFlow resolves short codes for the public redirect and lookup endpoints.
// A malformed code is reported as ErrShortLinkNotFound so callers cannot tell it
// apart from a missing one. Cache failures degrade to the store path.
type RedirectFlow interface {
	// Resolve returns the long URL and records a click. The durable click counter
	// only moves on a cache miss.
	Resolve(ctx context.Context, shortCode string, metadata *ClientMetadata) (string, error)
	// Lookup returns the link without recording a click
	Lookup(ctx context.Context, shortCode string) (*dto.ShortLinkResponse, error)
}

// RedirectFlowImpl implements RedirectFlow
type RedirectFlowImpl struct {
	repo     repository.ShortLinkRepository
	cache    services.CacheService
	codes    services.CodeGenerator
	recorder ClickRecorder
	cacheTTL time.Duration
	baseURL  string
	now      func() time.Time
}

func NewRedirectFlow(
	repo repository.ShortLinkRepository,
	cache services.CacheService,
	codes services.CodeGenerator,
	recorder ClickRecorder,
	cacheTTL time.Duration,
	baseURL string,
) RedirectFlow {
	if cacheTTL <= 0 {
		cacheTTL = utils.DefaultLinkCacheTTL
	}
	return &RedirectFlowImpl{
		repo:     repo,
		cache:    cache,
		codes:    codes,
		recorder: recorder,
		cacheTTL: cacheTTL,
		baseURL:  baseURL,
		now:      utils.UTCNow,
	}
}

func LinkCacheKey(shortCode string) string {
	return services.MakeKey(utils.LinkCachePrefix, shortCode)
}

func (f *RedirectFlowImpl) Resolve(ctx context.Context, shortCode string, metadata *ClientMetadata) (string, error) {
	if !f.codes.Validate(shortCode) {
		return "", ErrShortLinkNotFound
	}

	key := LinkCacheKey(shortCode)
	var snapshot CachedLinkSnapshot
	hit, err := f.cache.GetJSON(ctx, key, &snapshot)
	if err != nil {
		log.Printf("Cache read failed for %s, falling back to store: %v", key, err)
		hit = false
	}
	if hit && snapshot.ID != 0 && snapshot.LongURL != "" {
		f.recordClick(ctx, snapshot.ID, metadata)
		return snapshot.LongURL, nil
	}

	link, err := f.repo.ByShortCode(ctx, shortCode)
	if err != nil {
		return "", NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if link == nil {
		return "", ErrShortLinkNotFound
	}

	now := f.now()
	if link.IsExpiredAt(now) {
		return "", ErrShortLinkExpired
	}

	f.recordClick(ctx, link.ID, metadata)

	if err := f.repo.IncrementClicks(ctx, link.ID, now); err != nil {
		log.Printf("Failed to increment click count for short link %d: %v", link.ID, err)
	}

	ttl := f.cacheTTL
	if link.ExpiresAt != nil {
		ttl = min(ttl, link.ExpiresAt.Sub(now))
	}
	if ttl > 0 {
		snapshot = CachedLinkSnapshot{ID: link.ID, LongURL: link.LongURL}
		if err := f.cache.SetJSON(ctx, key, snapshot, ttl); err != nil {
			log.Printf("Cache refill failed for %s: %v", key, err)
		}
	}

	return link.LongURL, nil
}

func (f *RedirectFlowImpl) Lookup(ctx context.Context, shortCode string) (*dto.ShortLinkResponse, error) {
	if !f.codes.Validate(shortCode) {
		return nil, ErrShortLinkNotFound
	}

	link, err := f.repo.ByShortCode(ctx, shortCode)
	if err != nil {
		return nil, NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if link == nil {
		return nil, ErrShortLinkNotFound
	}
	if link.IsExpiredAt(f.now()) {
		return nil, ErrShortLinkExpired
	}

	resp := ToShortLinkResponse(*link, f.baseURL)
	return &resp, nil
}

// recordClick never fails the redirect; errors are logged
func (f *RedirectFlowImpl) recordClick(ctx context.Context, shortLinkID uint, metadata *ClientMetadata) {
	if f.recorder == nil {
		return
	}
	event := models.ClickEvent{
		ShortLinkID: shortLinkID,
		ClickedAt:   f.now(),
	}
	if metadata != nil {
		event.IPAddress = utils.NonEmptyPtr(metadata.IPAddress)
		event.UserAgent = utils.NonEmptyPtr(metadata.UserAgent)
		event.Referer = utils.NonEmptyPtr(metadata.Referer)
	}
	if err := f.recorder.Record(ctx, event); err != nil {
		log.Printf("Failed to record click for short link %d: %v", shortLinkID, err)
	}
}
