package crawler

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"linkspider/internal/config"
	"linkspider/pkg/types"
)

// Footprint remembers which URLs were scheduled and at what depth.
type Footprint struct {
	mu         sync.Mutex
	entries    map[string]types.FootprintState
	maxEntries int
	ttl        time.Duration
	enabled    bool
	now        func() time.Time
}

// NewFootprint builds a footprint from configuration. A disabled footprint
// still deduplicates within one run; it only drops the TTL and capacity rules.
func NewFootprint(cfg config.FootprintConfig) *Footprint {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 200000
	}
	return &Footprint{
		entries:    make(map[string]types.FootprintState),
		maxEntries: maxEntries,
		ttl:        cfg.TTL.Duration,
		enabled:    cfg.Enabled,
		now:        time.Now,
	}
}

// Claim reports whether rawURL should be scheduled at depth and, if so,
// records it. A URL already seen is claimed again only when reached at a
// shallower depth (more budget left below it) and it was not marked explored,
// or when its entry has expired.
func (f *Footprint) Claim(rawURL string, depth int) bool {
	key, ok := canonicalKey(rawURL)
	if !ok {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	state, seen := f.entries[key]
	if seen && f.expiredLocked(state, now) {
		seen = false
	}
	if seen && (state.FullyExplored || depth >= state.Depth) {
		return false
	}
	f.entries[key] = types.FootprintState{Depth: depth, LastVisited: now}
	if f.enabled && len(f.entries) > f.maxEntries {
		f.evictOldestLocked(now)
	}
	return true
}

// MarkExplored prevents rawURL from being claimed again at any depth.
func (f *Footprint) MarkExplored(rawURL string) {
	key, ok := canonicalKey(rawURL)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.entries[key]
	state.FullyExplored = true
	state.LastVisited = f.now()
	f.entries[key] = state
}

// Release forgets a claim that was never scheduled, so a later link may claim it again.
func (f *Footprint) Release(rawURL string) {
	key, ok := canonicalKey(rawURL)
	if !ok {
		return
	}
	f.mu.Lock()
	delete(f.entries, key)
	f.mu.Unlock()
}

// Len returns the number of remembered URLs.
func (f *Footprint) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *Footprint) expiredLocked(state types.FootprintState, now time.Time) bool {
	return f.enabled && f.ttl > 0 && now.Sub(state.LastVisited) > f.ttl
}

func (f *Footprint) evictOldestLocked(now time.Time) {
	var oldestKey string
	var oldestTime time.Time
	for key, state := range f.entries {
		if f.expiredLocked(state, now) {
			delete(f.entries, key)
			continue
		}
		if oldestKey == "" || state.LastVisited.Before(oldestTime) {
			oldestKey = key
			oldestTime = state.LastVisited
		}
	}
	if len(f.entries) > f.maxEntries && oldestKey != "" {
		delete(f.entries, oldestKey)
	}
}

// canonicalKey lowercases scheme and host, drops default ports and the
// fragment, and keeps the query untouched.
func canonicalKey(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPortForScheme(scheme) {
		host = host + ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := scheme + "://" + host + path
	if q := u.RawQuery; q != "" {
		key += "?" + q
	}
	return key, true
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
