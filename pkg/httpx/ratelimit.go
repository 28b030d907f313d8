package httpx

import (
	"context"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines client-side throttle parameters. The tax authority
// enforces per-client ceilings server-side; throttling locally keeps a busy
// integration from burning its quota on 429 responses.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Throttle profiles matching the authority's published per-endpoint ceilings.
// These can be overridden via environment variables (see init() below).
var (
	// TokenLimit paces calls to the token endpoint. Token churn is the
	// first thing the authority blocks, so this is deliberately tight.
	// Override with: RATELIMIT_TOKEN_REQUESTS, RATELIMIT_TOKEN_WINDOW_SEC, RATELIMIT_TOKEN_BURST
	TokenLimit = RateLimitConfig{
		RequestsPerWindow: 12,
		Window:            time.Minute,
		Burst:             3,
	}

	// SubmissionLimit paces document submission calls.
	// Override with: RATELIMIT_SUBMISSION_REQUESTS, RATELIMIT_SUBMISSION_WINDOW_SEC, RATELIMIT_SUBMISSION_BURST
	SubmissionLimit = RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Burst:             10,
	}

	// QueryLimit paces read-only calls (status, search, retrieval).
	// Override with: RATELIMIT_QUERY_REQUESTS, RATELIMIT_QUERY_WINDOW_SEC, RATELIMIT_QUERY_BURST
	QueryLimit = RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            time.Minute,
		Burst:             30,
	}
)

func init() {
	// Allow overriding rate limits via environment variables (useful for testing)
	TokenLimit = ParseRateLimitFromEnv("TOKEN", TokenLimit)
	SubmissionLimit = ParseRateLimitFromEnv("SUBMISSION", SubmissionLimit)
	QueryLimit = ParseRateLimitFromEnv("QUERY", QueryLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_TOKEN_REQUESTS, RATELIMIT_TOKEN_WINDOW_SEC, RATELIMIT_TOKEN_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	// Parse requests per window
	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	// Parse window duration in seconds
	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	// Parse burst size
	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// Limiter is a context-aware client-side throttle. A nil *Limiter never
// waits, so callers can leave throttling unconfigured without nil checks.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter builds a Limiter from the given configuration.
func NewLimiter(config RateLimitConfig) *Limiter {
	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()
	return &Limiter{
		lim: rate.NewLimiter(rate.Limit(ratePerSecond), config.Burst),
	}
}

// Wait blocks until the limiter permits one request or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.lim.Wait(ctx)
}

// Allow reports whether one request may proceed immediately without waiting.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.lim.Allow()
}
