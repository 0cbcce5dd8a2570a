// Package spider decides which links on a fetched page are worth crawling next.
//
// Process handles one fetch event: it downloads the page through the
// configured transport with the Gate as acceptance callback, extracts raw
// links, drops self links and duplicates, filters forbidden keywords and
// out-of-scope URLs, and returns typed work items. It keeps no state between
// calls and is safe for concurrent use as long as its collaborators are.
package spider

import (
	"context"
	"errors"
	"log/slog"

	"linkspider/internal/config"
	"linkspider/internal/wordlist"
	"linkspider/pkg/types"
)

// Options wires a Spider to its collaborators.
type Options struct {
	Config     config.SpiderConfig
	Downloader Downloader
	Extractor  Extractor
	Scope      ScopeOracle
	Wordlists  WordlistSource
	Provenance ProvenanceSink
	Logger     *slog.Logger
}

// Spider processes fetch events.
type Spider struct {
	cfg        config.SpiderConfig
	gate       *Gate
	downloader Downloader
	extractor  Extractor
	scope      ScopeOracle
	wordlists  WordlistSource
	builder    *Builder
	logger     *slog.Logger
}

// New validates opts and builds a Spider.
func New(opts Options) (*Spider, error) {
	if opts.Downloader == nil {
		return nil, errNilDownloader
	}
	if opts.Extractor == nil {
		return nil, errNilExtractor
	}
	if opts.Scope == nil {
		return nil, errNilScopeOracle
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Spider{
		cfg:        opts.Config,
		gate:       NewGate(opts.Config, logger),
		downloader: opts.Downloader,
		extractor:  opts.Extractor,
		scope:      opts.Scope,
		wordlists:  opts.Wordlists,
		builder:    NewBuilder(opts.Provenance, logger),
		logger:     logger,
	}, nil
}

// Report collects per-page diagnostics.
type Report struct {
	FetchErr   error
	ExtractErr error
	Candidates int
	Filter     FilterReport
	Build      BuildReport
}

// Result is what one Process call hands back to the scheduler. Page is nil
// when the download failed or was rejected, in which case Resources is empty.
type Result struct {
	Page      *types.FetchedPage
	Resources []types.Resource
	Report    Report
}

// Targets returns the new fetch targets in output order.
func (r Result) Targets() []types.FetchTarget {
	var out []types.FetchTarget
	for _, res := range r.Resources {
		if res.Kind == types.ResourceTarget && res.Target != nil {
			out = append(out, *res.Target)
		}
	}
	return out
}

// Mailboxes returns the mailbox references in output order.
func (r Result) Mailboxes() []types.MailboxReference {
	var out []types.MailboxReference
	for _, res := range r.Resources {
		if res.Kind == types.ResourceMailbox && res.Mailbox != nil {
			out = append(out, *res.Mailbox)
		}
	}
	return out
}

// Process spiders a single target.
func (s *Spider) Process(ctx context.Context, target types.FetchTarget) Result {
	var result Result
	logger := s.logger.With("url", target.URL, "depth", target.Depth)
	logger.Info("spidering url")

	allowRedirects := s.cfg.FollowRedirects || (target.Depth == 0 && s.cfg.FollowFirstRedirect)
	page, err := s.downloader.Download(ctx, target.URL, s.gate.AcceptFunc(), allowRedirects)
	if err != nil {
		result.Report.FetchErr = err
		if errors.Is(err, types.ErrRejected) {
			logger.Debug("download rejected")
		} else {
			logger.Debug("error while processing url", "error", err)
		}
		return result
	}
	if page == nil {
		return result
	}
	result.Page = page

	links, err := s.extract(page)
	if err != nil {
		result.Report.ExtractErr = err
		logger.Warn("link extraction failed", "error", err)
		return result
	}

	candidates := Dedupe(links, target.URL, page.FinalURL)
	if limit := s.cfg.MaxLinksPerPage; limit > 0 && len(candidates) > limit {
		logger.Debug("truncating links", "found", len(candidates), "max", limit)
		candidates = candidates[:limit]
	}
	result.Report.Candidates = len(candidates)

	filter := NewFilter(s.forbidden(logger), s.scope, logger)
	result.Report.Filter = filter.Apply(candidates)
	if kept := len(result.Report.Filter.Kept); kept > 0 {
		logger.Info("found links", "count", kept)
	} else {
		logger.Info("no links found")
	}

	result.Resources, result.Report.Build = s.builder.Build(ctx, target, result.Report.Filter.Kept)
	return result
}

func (s *Spider) extract(page *types.FetchedPage) ([]string, error) {
	if page.Kind == types.ContentHTML {
		return s.extractor.HTML(page.Body, page.BaseURL())
	}
	return s.extractor.Text(page.Body, page.BaseURL())
}

func (s *Spider) forbidden(logger *slog.Logger) wordlist.Set {
	if s.wordlists == nil || s.cfg.WordlistName == "" {
		return wordlist.Set{}
	}
	set, err := s.wordlists.Get(s.cfg.WordlistName)
	if err != nil {
		logger.Warn("load wordlist failed, no keywords filtered", "wordlist", s.cfg.WordlistName, "error", err)
		return wordlist.Set{}
	}
	return set
}
