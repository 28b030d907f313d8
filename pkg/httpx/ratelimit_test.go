package httpx_test

import (
	"context"
	"testing"
	"time"

	"github.com/merbau/myinvois/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Run("uses defaults when env not set", func(t *testing.T) {
		defaultConfig := httpx.RateLimitConfig{
			RequestsPerWindow: 10,
			Window:            time.Minute,
			Burst:             5,
		}

		config := httpx.ParseRateLimitFromEnv("NONEXISTENT", defaultConfig)
		require.Equal(t, defaultConfig, config)
	})

	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("RATELIMIT_TESTPREFIX_REQUESTS", "50")
		t.Setenv("RATELIMIT_TESTPREFIX_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_TESTPREFIX_BURST", "7")

		config := httpx.ParseRateLimitFromEnv("TESTPREFIX", httpx.RateLimitConfig{
			RequestsPerWindow: 10,
			Window:            time.Minute,
			Burst:             5,
		})

		require.Equal(t, 50, config.RequestsPerWindow)
		require.Equal(t, 30*time.Second, config.Window)
		require.Equal(t, 7, config.Burst)
	})

	t.Run("ignores invalid values", func(t *testing.T) {
		t.Setenv("RATELIMIT_BADPREFIX_REQUESTS", "not-a-number")
		t.Setenv("RATELIMIT_BADPREFIX_BURST", "-3")

		config := httpx.ParseRateLimitFromEnv("BADPREFIX", httpx.RateLimitConfig{
			RequestsPerWindow: 10,
			Window:            time.Minute,
			Burst:             5,
		})

		require.Equal(t, 10, config.RequestsPerWindow)
		require.Equal(t, 5, config.Burst)
	})
}

func TestLimiterBurstThenThrottle(t *testing.T) {
	limiter := httpx.NewLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 60,
		Window:            time.Minute,
		Burst:             3,
	})

	// The burst passes immediately
	for i := range 3 {
		require.True(t, limiter.Allow(), "burst request %d", i)
	}

	// The next request has to wait for a token
	require.False(t, limiter.Allow())
}

func TestLimiterWaitRespectsContext(t *testing.T) {
	limiter := httpx.NewLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Hour,
		Burst:             1,
	})

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err, "second wait should fail before an hour-long refill")
}

func TestNilLimiterNeverBlocks(t *testing.T) {
	var limiter *httpx.Limiter

	require.True(t, limiter.Allow())
	require.NoError(t, limiter.Wait(context.Background()))
}
