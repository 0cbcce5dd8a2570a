package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"linkspider/internal/config"
)

func newTestFootprint(ttl time.Duration, maxEntries int) *Footprint {
	return NewFootprint(config.FootprintConfig{
		Enabled:    true,
		TTL:        config.DurationFrom(ttl),
		MaxEntries: maxEntries,
	})
}

func TestFootprintClaimDepth(t *testing.T) {
	fp := newTestFootprint(0, 10)

	assert.True(t, fp.Claim("http://example.com/a", 2))
	assert.False(t, fp.Claim("http://example.com/a", 2), "same depth")
	assert.False(t, fp.Claim("http://example.com/a", 3), "deeper")
	assert.True(t, fp.Claim("http://example.com/a", 1), "shallower leaves more budget")

	fp.MarkExplored("http://example.com/a")
	assert.False(t, fp.Claim("http://example.com/a", 0))
}

func TestFootprintCanonicalKeys(t *testing.T) {
	fp := newTestFootprint(0, 10)

	assert.True(t, fp.Claim("HTTP://Example.COM:80", 0))
	assert.False(t, fp.Claim("http://example.com/", 0))
	assert.False(t, fp.Claim("http://example.com/#top", 0))
	assert.True(t, fp.Claim("http://example.com/?q=1", 0))
	assert.True(t, fp.Claim("http://example.com:8080/", 0))
	assert.False(t, fp.Claim("not a url", 0))
	assert.Equal(t, 3, fp.Len())
}

func TestFootprintExpiry(t *testing.T) {
	fp := newTestFootprint(time.Minute, 10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fp.now = func() time.Time { return now }

	assert.True(t, fp.Claim("http://example.com/", 0))
	now = now.Add(30 * time.Second)
	assert.False(t, fp.Claim("http://example.com/", 0))
	now = now.Add(2 * time.Minute)
	assert.True(t, fp.Claim("http://example.com/", 0))
}

func TestFootprintEvictsOldest(t *testing.T) {
	fp := newTestFootprint(0, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fp.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	assert.True(t, fp.Claim("http://example.com/1", 0))
	assert.True(t, fp.Claim("http://example.com/2", 0))
	assert.True(t, fp.Claim("http://example.com/3", 0))
	assert.Equal(t, 2, fp.Len())
	assert.True(t, fp.Claim("http://example.com/1", 0), "oldest entry was evicted")
}

func TestFootprintRelease(t *testing.T) {
	fp := newTestFootprint(0, 10)

	assert.True(t, fp.Claim("http://example.com/a", 1))
	fp.Release("http://Example.com/a#frag")
	assert.Zero(t, fp.Len())
	assert.True(t, fp.Claim("http://example.com/a", 1), "released claim can be taken again")
	fp.Release("::bad")
	assert.Equal(t, 1, fp.Len())
}
