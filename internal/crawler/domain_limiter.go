package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"linkspider/internal/config"
)

// DomainLimiter spaces out requests to the same host with a fixed delay and
// an optional token bucket.
type DomainLimiter struct {
	delay    time.Duration
	requests int
	window   time.Duration

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter builds a limiter from the crawl settings.
func NewDomainLimiter(cfg config.CrawlConfig) *DomainLimiter {
	d := &DomainLimiter{
		delay:    cfg.PerDomainDelay.Duration,
		last:     make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
	}
	if cfg.RateLimitPerDomain.Enabled() {
		d.requests = cfg.RateLimitPerDomain.Requests
		d.window = cfg.RateLimitPerDomain.Window.Duration
	}
	return d
}

// WaitURL blocks until the host of rawURL may be contacted again.
func (d *DomainLimiter) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return d.Wait(ctx, u.Hostname())
}

// Wait blocks until host may be contacted again or ctx ends.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d == nil || host == "" || (d.delay <= 0 && d.requests == 0) {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	d.mu.Lock()
	if last, ok := d.last[host]; ok && d.delay > 0 {
		sleep = time.Until(last.Add(d.delay))
	}
	limiter := d.limiterLocked(host)
	// Reserve the slot before sleeping so concurrent callers queue up behind it.
	d.last[host] = time.Now().Add(max(sleep, 0))
	d.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if limiter != nil {
		return limiter.Wait(ctx)
	}
	return nil
}

func (d *DomainLimiter) limiterLocked(host string) *rate.Limiter {
	if d.requests == 0 {
		return nil
	}
	if limiter, ok := d.limiters[host]; ok {
		return limiter
	}
	interval := d.window / time.Duration(d.requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), d.requests)
	d.limiters[host] = limiter
	return limiter
}
