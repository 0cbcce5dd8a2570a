package spider

import (
	"log/slog"
	"sort"
	"strings"

	"linkspider/internal/wordlist"
)

// FilterReport lists where every candidate went. Each slice is sorted.
type FilterReport struct {
	Forbidden   []string
	OutOfScope  []string
	Uncrawlable []string
	Kept        []string
}

// Filter drops links containing forbidden keywords, then links outside the audit scope.
type Filter struct {
	forbidden wordlist.Set
	scope     ScopeOracle
	logger    *slog.Logger
}

// NewFilter builds a filter. A nil scope keeps every keyword-clean link.
func NewFilter(forbidden wordlist.Set, scope ScopeOracle, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{forbidden: forbidden, scope: scope, logger: logger}
}

// Apply runs both stages over links and returns the survivors in sorted order.
func (f *Filter) Apply(links []string) FilterReport {
	var report FilterReport

	allowed := make([]string, 0, len(links))
	for _, link := range links {
		if _, hit := f.forbidden.Match(link); hit {
			report.Forbidden = append(report.Forbidden, link)
			continue
		}
		allowed = append(allowed, link)
	}
	sort.Strings(report.Forbidden)
	if len(report.Forbidden) > 0 {
		f.logger.Debug("skipped forbidden urls",
			"count", len(report.Forbidden),
			"urls", strings.Join(report.Forbidden, "\n    "))
	}

	// Scope is checked against the keyword survivors, never the kept list being built.
	for _, link := range allowed {
		if f.scope == nil {
			report.Kept = append(report.Kept, link)
			continue
		}
		inScope, err := f.scope.Contains(link)
		switch {
		case err != nil:
			report.Uncrawlable = append(report.Uncrawlable, link)
		case inScope:
			report.Kept = append(report.Kept, link)
		default:
			report.OutOfScope = append(report.OutOfScope, link)
		}
	}
	sort.Strings(report.Kept)
	sort.Strings(report.OutOfScope)
	sort.Strings(report.Uncrawlable)

	switch len(report.Uncrawlable) {
	case 0:
	case 1:
		f.logger.Debug("skipped uncrawlable url", "url", report.Uncrawlable[0])
	default:
		f.logger.Debug("skipped uncrawlable urls",
			"count", len(report.Uncrawlable),
			"urls", strings.Join(report.Uncrawlable, "\n    "))
	}
	if n := len(report.OutOfScope); n > 0 {
		f.logger.Debug("skipped links out of scope", "count", n)
	}
	return report
}
