package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkspider/internal/config"
)

func TestDomainLimiterDelaysSameHost(t *testing.T) {
	limiter := NewDomainLimiter(config.CrawlConfig{PerDomainDelay: config.DurationFrom(60 * time.Millisecond)})
	ctx := context.Background()

	require.NoError(t, limiter.WaitURL(ctx, "http://example.com/a"))
	start := time.Now()
	require.NoError(t, limiter.WaitURL(ctx, "http://EXAMPLE.com/b"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	start = time.Now()
	require.NoError(t, limiter.WaitURL(ctx, "http://other.example/"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestDomainLimiterHonoursContext(t *testing.T) {
	limiter := NewDomainLimiter(config.CrawlConfig{PerDomainDelay: config.DurationFrom(time.Hour)})
	require.NoError(t, limiter.Wait(context.Background(), "example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx, "example.com"), context.DeadlineExceeded)
}

func TestDomainLimiterRateLimit(t *testing.T) {
	limiter := NewDomainLimiter(config.CrawlConfig{
		RateLimitPerDomain: config.RateLimitConfig{Requests: 1, Window: config.DurationFrom(50 * time.Millisecond)},
	})
	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx, "example.com"))
	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDomainLimiterDisabled(t *testing.T) {
	limiter := NewDomainLimiter(config.CrawlConfig{})
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))
	}
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}
