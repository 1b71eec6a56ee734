package utils

import (
	"time"
)

// Short link constants
const (
	// DefaultShortCodeLength is the length of generated short codes
	DefaultShortCodeLength = 6

	// MinShortCodeLength and MaxShortCodeLength bound any short code, custom aliases included
	MinShortCodeLength = 3
	MaxShortCodeLength = 10

	// DefaultLinkCacheTTL is how long a resolved link stays in the cache (24 hours)
	DefaultLinkCacheTTL = 24 * time.Hour

	// LinkCachePrefix namespaces cached link snapshots: url:{short_code}
	LinkCachePrefix = "url"

	// DefaultPageSize and MaxPageSize bound list endpoints
	DefaultPageSize = 20
	MaxPageSize     = 100

	// RecentClicksLimit is how many click events the stats endpoint returns
	RecentClicksLimit = 20

	// MaxExportClicks caps the rows of a click export workbook
	MaxExportClicks = 100000
)

// Rate limit key prefixes
const (
	RateLimitPrefixIP          = "ratelimit:ip"
	RateLimitPrefixUser        = "ratelimit:user"
	RateLimitPrefixURLCreation = "ratelimit:url_creation"
	RateLimitPrefixEndpoint    = "ratelimit"
)

// Context keys for request scoped values
type contextKey string

const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
)
