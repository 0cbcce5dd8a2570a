// Package scope decides which URLs an audit is authorised to visit.
package scope

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"linkspider/internal/config"
)

var (
	errMissingHost    = errors.New("missing host")
	errMissingScheme  = errors.New("missing scheme")
	errEmptyMailbox   = errors.New("mailto without address")
	errUnscopedScheme = errors.New("scheme cannot be scoped")
)

// Error reports a URL the matcher could not evaluate.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scope %q: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Matcher is an immutable scope definition, safe for concurrent use.
type Matcher struct {
	allowed    []string
	excluded   map[string]struct{}
	include    []*regexp.Regexp
	exclude    []*regexp.Regexp
	subdomains bool
}

// New compiles a scope from configuration.
func New(cfg config.ScopeConfig) (*Matcher, error) {
	include, err := compilePatterns(cfg.IncludePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	exclude, err := compilePatterns(cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	m := &Matcher{
		excluded:   make(map[string]struct{}, len(cfg.ExcludedDomains)),
		include:    include,
		exclude:    exclude,
		subdomains: cfg.IncludeSubdomains,
	}
	for _, d := range cfg.AllowedDomains {
		if d = normaliseHost(d); d != "" {
			m.allowed = append(m.allowed, d)
		}
	}
	for _, d := range cfg.ExcludedDomains {
		if d = normaliseHost(d); d != "" {
			m.excluded[d] = struct{}{}
		}
	}
	return m, nil
}

// AllowDomain returns a copy of m that also admits host. Seeds use it so a
// crawl with no configured domains stays on the sites it started from.
func (m *Matcher) AllowDomain(host string) *Matcher {
	clone := *m
	clone.allowed = append(append([]string(nil), m.allowed...), normaliseHost(host))
	return &clone
}

// Contains reports whether rawURL is in scope. It returns an *Error when the
// URL cannot be evaluated at all.
func (m *Matcher) Contains(rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, &Error{URL: rawURL, Err: err}
	}

	var host string
	switch u.Scheme {
	case "":
		return false, &Error{URL: rawURL, Err: errMissingScheme}
	case "http", "https":
		host = u.Hostname()
		if host == "" {
			return false, &Error{URL: rawURL, Err: errMissingHost}
		}
	case "mailto":
		host, err = mailboxDomain(u)
		if err != nil {
			return false, &Error{URL: rawURL, Err: err}
		}
	default:
		if u.Host == "" {
			return false, &Error{URL: rawURL, Err: errUnscopedScheme}
		}
		host = u.Hostname()
	}

	if !m.hostAllowed(normaliseHost(host)) {
		return false, nil
	}
	if len(m.include) > 0 && !matchAny(m.include, rawURL) {
		return false, nil
	}
	if matchAny(m.exclude, rawURL) {
		return false, nil
	}
	return true, nil
}

func (m *Matcher) hostAllowed(host string) bool {
	for h := host; h != ""; h = parentDomain(h) {
		if _, denied := m.excluded[h]; denied {
			return false
		}
	}
	if len(m.allowed) == 0 {
		return true
	}
	for _, d := range m.allowed {
		if host == d {
			return true
		}
		if m.subdomains && strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func mailboxDomain(u *url.URL) (string, error) {
	addr := u.Opaque
	if addr == "" && u.User != nil {
		addr = u.User.String() + "@" + u.Host
	}
	if unescaped, err := url.PathUnescape(addr); err == nil {
		addr = unescaped
	}
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return "", errEmptyMailbox
	}
	return addr[at+1:], nil
}

func parentDomain(host string) string {
	idx := strings.Index(host, ".")
	if idx < 0 {
		return ""
	}
	return host[idx+1:]
}

func normaliseHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pat, err := regexp.Compile(raw)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, pat)
	}
	return compiled, nil
}
