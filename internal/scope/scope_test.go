package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkspider/internal/config"
)

func TestContains(t *testing.T) {
	m, err := New(config.ScopeConfig{
		AllowedDomains:    []string{"example.com"},
		ExcludedDomains:   []string{"private.example.com"},
		ExcludePatterns:   []string{`\.pdf$`},
		IncludeSubdomains: true,
	})
	require.NoError(t, err)

	tests := []struct {
		url  string
		want bool
	}{
		{"http://example.com/b", true},
		{"https://WWW.Example.com/x", true},
		{"http://evil.com/c", false},
		{"http://notexample.com/", false},
		{"http://private.example.com/a", false},
		{"http://deep.private.example.com/a", false},
		{"http://example.com/report.pdf", false},
		{"mailto:x@example.com", true},
		{"mailto:x@evil.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := m.Contains(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContainsErrors(t *testing.T) {
	m, err := New(config.ScopeConfig{AllowedDomains: []string{"example.com"}})
	require.NoError(t, err)

	for _, raw := range []string{
		"http://[::1",
		"http:///no-host",
		"/relative/path",
		"mailto:",
		"javascript:alert(1)",
	} {
		t.Run(raw, func(t *testing.T) {
			ok, err := m.Contains(raw)
			assert.False(t, ok)
			var scopeErr *Error
			require.True(t, errors.As(err, &scopeErr), "got %v", err)
			assert.Equal(t, raw, scopeErr.URL)
		})
	}
}

func TestIncludePatterns(t *testing.T) {
	m, err := New(config.ScopeConfig{IncludePatterns: []string{`/docs/`}})
	require.NoError(t, err)

	ok, err := m.Contains("http://anything.org/docs/page")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Contains("http://anything.org/blog/page")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubdomainsDisabled(t *testing.T) {
	m, err := New(config.ScopeConfig{AllowedDomains: []string{"example.com"}})
	require.NoError(t, err)

	ok, err := m.Contains("http://www.example.com/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowDomainDoesNotMutate(t *testing.T) {
	base, err := New(config.ScopeConfig{AllowedDomains: []string{"example.com"}})
	require.NoError(t, err)
	widened := base.AllowDomain("Other.org")

	ok, _ := widened.Contains("http://other.org/")
	assert.True(t, ok)
	ok, _ = base.Contains("http://other.org/")
	assert.False(t, ok)
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(config.ScopeConfig{IncludePatterns: []string{"("}})
	assert.Error(t, err)
}
