package constants

import "time"

// Redis key layout: sorso:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_STATIC_LONG       = 24 * time.Hour
	TTL_SEMI_STATIC_QUICK = 15 * time.Minute
	TTL_REALTIME_SHORT    = 30 * time.Second
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "sorso"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENTS_ACTIVE = CACHE_PREFIX + ":events:active"
	CACHE_KEY_EVENT_DETAIL  = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
)

const (
	TTL_EVENTS_ACTIVE = TTL_SEMI_STATIC_QUICK
	TTL_EVENT_DETAIL  = TTL_SEMI_STATIC_QUICK
)

// ================== AVAILABILITY MODULE ==================

const (
	CACHE_KEY_AVAILABILITY = CACHE_PREFIX + ":availability:event:" // + event-id
)

const (
	TTL_AVAILABILITY = TTL_REALTIME_SHORT
)

// ================== AUTH MODULE ==================

const (
	CACHE_KEY_REVOKED_TOKEN = CACHE_PREFIX + ":auth:revoked:jti:" // + token-id
)

// ================== RATE LIMIT ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:"
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_EVENT_ALL = CACHE_PREFIX + ":events:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildAvailabilityKey(eventID string) string {
	return CACHE_KEY_AVAILABILITY + eventID
}

func BuildRevokedTokenKey(tokenID string) string {
	return CACHE_KEY_REVOKED_TOKEN + tokenID
}
