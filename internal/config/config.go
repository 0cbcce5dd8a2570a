package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything needed to run the spider and its crawl driver.
type Config struct {
	DB      SQLConfig     `yaml:"db"`
	Worker  WorkerConfig  `yaml:"worker"`
	Crawl   CrawlConfig   `yaml:"crawl"`
	Spider  SpiderConfig  `yaml:"spider"`
	Scope   ScopeConfig   `yaml:"scope"`
	Robots  RobotsConfig  `yaml:"robots"`
	Logging LoggingConfig `yaml:"logging"`
}

// SQLConfig describes the database the provenance graph is written to.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// Enabled reports whether a database has been configured.
func (c SQLConfig) Enabled() bool {
	return c.Driver != "" && c.DSN != ""
}

// WorkerConfig controls concurrency and queue sizing.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
	QueueSize   int `yaml:"queue_size"` // initial frontier capacity; the queue grows past it
}

// CrawlConfig controls the crawl frontier, limits, and throttling.
type CrawlConfig struct {
	Seeds              []SeedConfig      `yaml:"seeds"`
	MaxDepth           int               `yaml:"max_depth"`
	MaxPages           int               `yaml:"max_pages"`
	UserAgent          string            `yaml:"user_agent"`
	Headers            map[string]string `yaml:"headers"`
	ProxyURL           string            `yaml:"proxy_url"`
	PerDomainDelay     Duration          `yaml:"per_domain_delay"`
	RateLimitPerDomain RateLimitConfig   `yaml:"rate_limit_per_domain"`
	RequestTimeout     Duration          `yaml:"request_timeout"`
	MaxBodyBytes       int64             `yaml:"max_body_bytes"`
	MaxRedirects       int               `yaml:"max_redirects"`
	Footprint          FootprintConfig   `yaml:"footprint"`
}

// SeedConfig declares an initial URL and optional depth override.
type SeedConfig struct {
	URL      string `yaml:"url"`
	MaxDepth int    `yaml:"max_depth"`
}

// RateLimitConfig applies a token bucket per domain.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// FootprintConfig controls how the crawler remembers visited URLs.
type FootprintConfig struct {
	Enabled    bool     `yaml:"enabled"`
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// SpiderConfig tunes link discovery for a single page.
type SpiderConfig struct {
	WordlistDir         string   `yaml:"wordlist_dir"`
	WordlistName        string   `yaml:"wordlist_no_spider"`
	FollowRedirects     bool     `yaml:"follow_redirects"`
	FollowFirstRedirect bool     `yaml:"follow_first_redirect"`
	MaxContentLength    int64    `yaml:"max_content_length"`
	PageExtensions      []string `yaml:"page_extensions"`
	MaxLinksPerPage     int      `yaml:"max_links_per_page"`
}

// ScopeConfig defines which URLs the audit is authorised to visit.
type ScopeConfig struct {
	AllowedDomains    []string `yaml:"allowed_domains"`
	ExcludedDomains   []string `yaml:"excluded_domains"`
	IncludePatterns   []string `yaml:"include_patterns"`
	ExcludePatterns   []string `yaml:"exclude_patterns"`
	IncludeSubdomains bool     `yaml:"include_subdomains"`
}

// RobotsConfig configures robots.txt handling.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// DefaultPageExtensions lists extensions that usually name a rendered web page.
var DefaultPageExtensions = []string{"asp", "aspx", "htm", "html", "jsp", "php"}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Worker: WorkerConfig{
			Concurrency: 8,
			QueueSize:   1024,
		},
		Crawl: CrawlConfig{
			MaxDepth:       3,
			MaxPages:       1000,
			UserAgent:      "linkspider/1.0",
			Headers:        map[string]string{},
			PerDomainDelay: DurationFrom(250 * time.Millisecond),
			RequestTimeout: DurationFrom(10 * time.Second),
			MaxBodyBytes:   6 * 1024 * 1024,
			MaxRedirects:   10,
			Footprint: FootprintConfig{
				Enabled:    true,
				TTL:        DurationFrom(24 * time.Hour),
				MaxEntries: 100000,
			},
		},
		Spider: SpiderConfig{
			WordlistName:        "no_spider.txt",
			FollowRedirects:     false,
			FollowFirstRedirect: true,
			MaxContentLength:    100000,
			PageExtensions:      append([]string(nil), DefaultPageExtensions...),
		},
		Scope: ScopeConfig{
			IncludeSubdomains: true,
		},
		Robots: RobotsConfig{
			Respect:   true,
			Overrides: []string{},
			UserAgent: "linkspider/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
		DB: SQLConfig{
			AutoMigrate: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()

	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants for the configuration.
func (c Config) Validate() error {
	for i := range c.Crawl.Seeds {
		if c.Crawl.Seeds[i].URL == "" {
			return fmt.Errorf("seed %d has empty url", i)
		}
		if c.Crawl.Seeds[i].MaxDepth < 0 {
			return fmt.Errorf("seed %s has invalid max_depth %d", c.Crawl.Seeds[i].URL, c.Crawl.Seeds[i].MaxDepth)
		}
	}
	if c.Crawl.MaxDepth < 0 {
		return fmt.Errorf("crawl.max_depth must be >= 0 (got %d)", c.Crawl.MaxDepth)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0 (got %d)", c.Worker.Concurrency)
	}
	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker.queue_size must be > 0 (got %d)", c.Worker.QueueSize)
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0 (got %d)", c.Crawl.MaxPages)
	}
	if rl := c.Crawl.RateLimitPerDomain; rl.Requests < 0 {
		return fmt.Errorf("crawl.rate_limit_per_domain.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if strings.TrimSpace(c.Crawl.UserAgent) == "" {
		return errors.New("crawl.user_agent must be set")
	}
	if c.Spider.MaxContentLength <= 0 {
		return fmt.Errorf("spider.max_content_length must be > 0 (got %d)", c.Spider.MaxContentLength)
	}
	if c.Spider.MaxLinksPerPage < 0 {
		return fmt.Errorf("spider.max_links_per_page must be >= 0 (got %d)", c.Spider.MaxLinksPerPage)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set")
	}
	for _, group := range [][]string{c.Scope.IncludePatterns, c.Scope.ExcludePatterns} {
		for _, raw := range group {
			if _, err := regexp.Compile(raw); err != nil {
				return fmt.Errorf("invalid scope pattern %q: %w", raw, err)
			}
		}
	}
	return nil
}

// ValidateForCrawl additionally requires seeds to start a crawl from.
func (c Config) ValidateForCrawl() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Crawl.Seeds) == 0 {
		return errors.New("at least one crawl seed must be configured")
	}
	return nil
}

func (c *Config) normalise() {
	for i := range c.Crawl.Seeds {
		c.Crawl.Seeds[i].URL = strings.TrimSpace(c.Crawl.Seeds[i].URL)
	}
	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Spider.WordlistDir = strings.TrimSpace(c.Spider.WordlistDir)
	c.Spider.WordlistName = strings.TrimSpace(c.Spider.WordlistName)

	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
	if len(c.Scope.AllowedDomains) > 0 {
		c.Scope.AllowedDomains = dedupeLower(c.Scope.AllowedDomains)
	}
	if len(c.Scope.ExcludedDomains) > 0 {
		c.Scope.ExcludedDomains = dedupeLower(c.Scope.ExcludedDomains)
	}
	if len(c.Spider.PageExtensions) > 0 {
		exts := make([]string, 0, len(c.Spider.PageExtensions))
		for _, ext := range c.Spider.PageExtensions {
			exts = append(exts, strings.TrimPrefix(strings.TrimSpace(ext), "."))
		}
		c.Spider.PageExtensions = dedupeLower(exts)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}

// Enabled reports whether per-domain rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}
