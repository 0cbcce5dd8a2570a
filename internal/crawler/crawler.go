// Package crawler drives the spider over a frontier of fetch targets.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"sync/atomic"

	"linkspider/internal/config"
	"linkspider/internal/robots"
	"linkspider/internal/spider"
	"linkspider/internal/storage"
	"linkspider/pkg/types"
)

// Components are the collaborators an Engine schedules work through.
// Robots and Graph are optional.
type Components struct {
	Spider  *spider.Spider
	Robots  *robots.Agent
	Graph   storage.Graph
	Logger  *slog.Logger
	Closers []func() error
}

// Engine schedules spider.Process calls across a worker pool, honouring
// depth and page budgets, robots.txt, and per-domain politeness.
type Engine struct {
	cfg    config.Config
	spider *spider.Spider
	robots *robots.Agent
	graph  storage.Graph
	logger *slog.Logger

	limiter   *DomainLimiter
	footprint *Footprint
	stats     statsCollector

	maxPages int64
	enqueued atomic.Int64

	pool *WorkerPool
	wg   sync.WaitGroup

	closers   []func() error
	closeOnce sync.Once
}

type request struct {
	target   types.FetchTarget
	maxDepth int
}

// NewEngine builds an engine around already assembled components.
func NewEngine(cfg config.Config, c Components) (*Engine, error) {
	if c.Spider == nil {
		return nil, errors.New("crawler requires a spider")
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxPages := int64(cfg.Crawl.MaxPages)
	if maxPages <= 0 {
		maxPages = math.MaxInt64
	}
	return &Engine{
		cfg:       cfg,
		spider:    c.Spider,
		robots:    c.Robots,
		graph:     c.Graph,
		logger:    logger,
		limiter:   NewDomainLimiter(cfg.Crawl),
		footprint: NewFootprint(cfg.Crawl.Footprint),
		maxPages:  maxPages,
		closers:   c.Closers,
	}, nil
}

// Run crawls from the configured seeds until the frontier is exhausted or
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	seeds, err := e.seedRequests()
	if err != nil {
		return err
	}
	pool, err := NewWorkerPool(ctx, e.cfg.Worker.Concurrency, e.cfg.Worker.QueueSize)
	if err != nil {
		return err
	}
	e.pool = pool
	defer pool.Close()

	for _, req := range seeds {
		e.enqueue(req)
	}

	// Workers drain the queue after cancellation, so this always returns.
	e.wg.Wait()
	if err := ctx.Err(); err != nil {
		e.logger.Warn("context cancelled, shutting down")
		return err
	}
	stats := e.Stats()
	e.logger.Info("crawl finished",
		"pages", stats.Pages,
		"targets", stats.Targets,
		"mailboxes", len(stats.Mailboxes),
		"failures", stats.FetchFailures)
	return nil
}

// Stats returns a snapshot of the crawl counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// Close releases resources owned by the engine.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		for _, closer := range e.closers {
			err = errors.Join(err, closer())
		}
	})
	return err
}

func (e *Engine) enqueue(req request) {
	if req.target.Depth > req.maxDepth {
		return
	}
	if e.enqueued.Load() >= e.maxPages {
		return
	}
	if !e.footprint.Claim(req.target.URL, req.target.Depth) {
		return
	}
	if e.enqueued.Add(1) > e.maxPages {
		e.enqueued.Add(-1)
		return
	}

	e.wg.Add(1)
	if err := e.pool.Submit(func(workerCtx context.Context) {
		defer e.wg.Done()
		e.handleRequest(workerCtx, req)
	}); err != nil {
		e.wg.Done()
		e.enqueued.Add(-1)
		e.footprint.Release(req.target.URL)
		e.stats.dropped.Add(1)
		e.logger.Warn("enqueue failed", "url", req.target.URL, "error", err)
	}
}

func (e *Engine) handleRequest(ctx context.Context, req request) {
	if ctx.Err() != nil {
		return
	}
	target := req.target

	if e.robots != nil && !e.robots.Allowed(ctx, target.URL) {
		e.logger.Debug("blocked by robots", "url", target.URL)
		e.footprint.MarkExplored(target.URL)
		e.stats.robotsBlocked.Add(1)
		return
	}

	if err := e.limiter.WaitURL(ctx, target.URL); err != nil {
		e.logger.Warn("domain limiter interrupted", "url", target.URL, "error", err)
		return
	}

	result := e.spider.Process(ctx, target)
	e.stats.observe(result)
	if result.Page == nil {
		return
	}

	if e.graph != nil {
		if err := e.graph.SavePage(ctx, result.Page, target.Depth); err != nil {
			e.logger.Error("persist failed", "url", target.URL, "error", err)
		}
	}

	if target.Depth >= req.maxDepth {
		e.footprint.MarkExplored(target.URL)
		return
	}
	for _, child := range result.Targets() {
		e.enqueue(request{target: child, maxDepth: req.maxDepth})
	}
}

func (e *Engine) seedRequests() ([]request, error) {
	seeds := make([]request, 0, len(e.cfg.Crawl.Seeds))
	for _, seed := range e.cfg.Crawl.Seeds {
		rawURL, err := seedURL(seed.URL)
		if err != nil {
			return nil, err
		}
		depthLimit := e.cfg.Crawl.MaxDepth
		if seed.MaxDepth > 0 && seed.MaxDepth < depthLimit {
			depthLimit = seed.MaxDepth
		}
		seeds = append(seeds, request{
			target:   types.FetchTarget{URL: rawURL},
			maxDepth: depthLimit,
		})
	}
	return seeds, nil
}

// seedURL defaults a bare host to https and requires a host.
func seedURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse seed %q: %w", raw, err)
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil {
			return "", fmt.Errorf("parse seed %q: %w", raw, err)
		}
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("seed %q missing host", raw)
	}
	return parsed.String(), nil
}
