package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"linkspider/internal/config"
	"linkspider/internal/extract"
	"linkspider/internal/fetcher"
	"linkspider/internal/robots"
	"linkspider/internal/scope"
	"linkspider/internal/spider"
	"linkspider/internal/storage"
	"linkspider/internal/wordlist"
)

// Assemble builds every collaborator described by cfg. When no allowed
// domains are configured the scope is narrowed to the seed hosts, so a crawl
// never leaves the sites it was started on.
func Assemble(ctx context.Context, cfg config.Config, logger *slog.Logger) (Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Headers:      cfg.Crawl.Headers,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		MaxRedirects: cfg.Crawl.MaxRedirects,
		ProxyURL:     cfg.Crawl.ProxyURL,
	})
	if err != nil {
		return Components{}, fmt.Errorf("http fetcher: %w", err)
	}

	matcher, err := scope.New(cfg.Scope)
	if err != nil {
		return Components{}, fmt.Errorf("scope: %w", err)
	}
	if len(cfg.Scope.AllowedDomains) == 0 {
		for _, seed := range cfg.Crawl.Seeds {
			rawURL, err := seedURL(seed.URL)
			if err != nil {
				return Components{}, err
			}
			u, _ := url.Parse(rawURL)
			matcher = matcher.AllowDomain(u.Hostname())
		}
	}

	var (
		graph   storage.Graph
		closers []func() error
	)
	if cfg.DB.Enabled() {
		sqlGraph, err := storage.OpenSQLGraph(ctx, cfg.DB)
		if err != nil {
			return Components{}, err
		}
		graph = sqlGraph
		closers = append(closers, sqlGraph.Close)
	} else {
		graph = storage.NewMemoryGraph()
	}

	sp, err := spider.New(spider.Options{
		Config:     cfg.Spider,
		Downloader: httpFetcher,
		Extractor:  extract.New(),
		Scope:      matcher,
		Wordlists:  wordlist.NewLoader(cfg.Spider.WordlistDir),
		Provenance: graph,
		Logger:     logger,
	})
	if err != nil {
		for _, closer := range closers {
			_ = closer()
		}
		return Components{}, fmt.Errorf("spider: %w", err)
	}

	return Components{
		Spider:  sp,
		Robots:  robots.NewAgent(cfg.Robots, httpFetcher.Client()),
		Graph:   graph,
		Logger:  logger,
		Closers: closers,
	}, nil
}
