package crawler

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"linkspider/internal/spider"
	"linkspider/pkg/types"
)

// Stats summarises a crawl.
type Stats struct {
	Pages         int64
	Rejected      int64
	FetchFailures int64
	ExtractErrors int64
	Candidates    int64
	Forbidden     int64
	OutOfScope    int64
	Uncrawlable   int64
	Malformed     int64
	Skipped       int64
	Targets       int64
	RobotsBlocked int64
	Dropped       int64
	Mailboxes     []string
}

type statsCollector struct {
	pages         atomic.Int64
	rejected      atomic.Int64
	fetchFailures atomic.Int64
	extractErrors atomic.Int64
	candidates    atomic.Int64
	forbidden     atomic.Int64
	outOfScope    atomic.Int64
	uncrawlable   atomic.Int64
	malformed     atomic.Int64
	skipped       atomic.Int64
	targets       atomic.Int64
	robotsBlocked atomic.Int64
	dropped       atomic.Int64

	mu        sync.Mutex
	mailboxes map[string]struct{}
}

func (s *statsCollector) observe(result spider.Result) {
	report := result.Report
	if result.Page == nil {
		if errors.Is(report.FetchErr, types.ErrRejected) {
			s.rejected.Add(1)
		} else {
			s.fetchFailures.Add(1)
		}
		return
	}
	s.pages.Add(1)
	if report.ExtractErr != nil {
		s.extractErrors.Add(1)
	}
	s.candidates.Add(int64(report.Candidates))
	s.forbidden.Add(int64(len(report.Filter.Forbidden)))
	s.outOfScope.Add(int64(len(report.Filter.OutOfScope)))
	s.uncrawlable.Add(int64(len(report.Filter.Uncrawlable)))
	s.malformed.Add(int64(len(report.Build.Malformed)))
	s.skipped.Add(int64(report.Build.Skipped))
	s.targets.Add(int64(report.Build.Targets))

	mailboxes := result.Mailboxes()
	if len(mailboxes) == 0 {
		return
	}
	s.mu.Lock()
	if s.mailboxes == nil {
		s.mailboxes = make(map[string]struct{})
	}
	for _, m := range mailboxes {
		s.mailboxes[m.Address] = struct{}{}
	}
	s.mu.Unlock()
}

func (s *statsCollector) snapshot() Stats {
	out := Stats{
		Pages:         s.pages.Load(),
		Rejected:      s.rejected.Load(),
		FetchFailures: s.fetchFailures.Load(),
		ExtractErrors: s.extractErrors.Load(),
		Candidates:    s.candidates.Load(),
		Forbidden:     s.forbidden.Load(),
		OutOfScope:    s.outOfScope.Load(),
		Uncrawlable:   s.uncrawlable.Load(),
		Malformed:     s.malformed.Load(),
		Skipped:       s.skipped.Load(),
		Targets:       s.targets.Load(),
		RobotsBlocked: s.robotsBlocked.Load(),
		Dropped:       s.dropped.Load(),
	}
	s.mu.Lock()
	for addr := range s.mailboxes {
		out.Mailboxes = append(out.Mailboxes, addr)
	}
	s.mu.Unlock()
	sort.Strings(out.Mailboxes)
	return out
}
