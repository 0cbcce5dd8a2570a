package spider

import (
	"sort"
	"strings"
)

// Dedupe collapses duplicate links and drops any link equal to one of the
// page's own URLs. The result is sorted.
func Dedupe(links []string, self ...string) []string {
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		seen[link] = struct{}{}
	}
	for _, s := range self {
		delete(seen, s)
	}
	out := make([]string, 0, len(seen))
	for link := range seen {
		out = append(out, link)
	}
	sort.Strings(out)
	return out
}
