package spider

import (
	"log/slog"
	"net/url"
	"strings"

	"linkspider/internal/config"
	"linkspider/pkg/types"
)

// DefaultMaxContentLength is the largest body, in bytes, the gate accepts.
const DefaultMaxContentLength = 100000

// Gate decides whether a response body should be downloaded at all. It is
// handed to the transport as a pre-fetch acceptance callback.
type Gate struct {
	maxContentLength int64
	pageExtensions   map[string]struct{}
	logger           *slog.Logger
}

// NewGate builds a gate from spider configuration.
func NewGate(cfg config.SpiderConfig, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	maxLen := cfg.MaxContentLength
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLength
	}
	exts := cfg.PageExtensions
	if len(exts) == 0 {
		exts = config.DefaultPageExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Gate{maxContentLength: maxLen, pageExtensions: set, logger: logger}
}

// AcceptFunc exposes the gate in the shape transports expect.
func (g *Gate) AcceptFunc() types.AcceptFunc {
	return g.Accept
}

// Accept reports whether the body behind rawURL should be fetched.
// contentLength < 0 means the length is unknown.
func (g *Gate) Accept(rawURL, name string, contentLength int64, contentType string) bool {
	if !isTextContent(contentType) {
		g.logger.Debug("skipping url, binary content", "url", rawURL, "content_type", contentType)
		return false
	}

	if contentLength >= 0 {
		if contentLength == 0 {
			g.logger.Debug("skipping url, empty content", "url", rawURL)
			return false
		}
		if contentLength > g.maxContentLength {
			g.logger.Debug("skipping url, content too large", "url", rawURL, "bytes", contentLength)
			return false
		}
		return true
	}

	filename, err := urlFilename(rawURL)
	if err != nil {
		g.logger.Debug("skipping url, cannot parse", "url", rawURL, "error", err)
		return false
	}
	// Most likely a directory index.
	if filename == "" {
		return true
	}
	if name == "" {
		name = filename
	}

	ext, ok := extension(name)
	if !ok {
		return true
	}
	if strings.Contains(rawURL, "download") {
		return true
	}
	if _, page := g.pageExtensions[ext]; page {
		return true
	}
	g.logger.Debug("skipping url, content is likely not text", "url", rawURL, "name", name)
	return false
}

func isTextContent(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	return contentType != "" && strings.HasPrefix(contentType, "text/")
}

// urlFilename returns the last path segment, or "" when the path names a directory.
func urlFilename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return "", nil
	}
	return p[strings.LastIndex(p, "/")+1:], nil
}

// extension returns the lower-cased text after the last dot. A name without
// a dot, or ending in one, has no extension.
func extension(name string) (string, bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", false
	}
	return strings.ToLower(name[idx+1:]), true
}
