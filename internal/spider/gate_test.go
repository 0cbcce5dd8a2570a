package spider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkspider/internal/config"
	"linkspider/internal/logging"
)

func TestGateAccept(t *testing.T) {
	gate := NewGate(config.SpiderConfig{}, logging.Discard())

	tests := []struct {
		name        string
		url         string
		filename    string
		length      int64
		contentType string
		want        bool
	}{
		{"binary content", "http://example.com/a.html", "", 100, "application/octet-stream", false},
		{"missing content type", "http://example.com/a.html", "", 100, "", false},
		{"case insensitive text", "http://example.com/a.html", "", 100, "TEXT/HTML; charset=utf-8", true},
		{"empty body", "http://example.com/a.html", "", 0, "text/html", false},
		{"at the limit", "http://example.com/a.html", "", 100000, "text/html", true},
		{"over the limit", "http://example.com/a.html", "", 100001, "text/html", false},
		{"known length ignores extension", "http://example.com/setup.exe", "", 10, "text/plain", true},
		{"unknown length directory", "http://example.com/docs/", "", -1, "text/html", true},
		{"unknown length root", "http://example.com", "", -1, "text/html", true},
		{"unknown length no extension", "http://example.com/about", "", -1, "text/html", true},
		{"unknown length trailing dot", "http://example.com/about.", "", -1, "text/html", true},
		{"unknown length page extension", "http://example.com/index.PHP", "", -1, "text/html", true},
		{"unknown length binary extension", "http://example.com/setup.exe", "", -1, "text/plain", false},
		{"download hint", "http://example.com/download/setup.exe", "", -1, "text/plain", true},
		{"disposition name wins", "http://example.com/get", "report.pdf", -1, "text/plain", false},
		{"disposition page name", "http://example.com/get.bin", "view.html", -1, "text/html", true},
		{"unparseable url", "http://example.com/%zz", "", -1, "text/html", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Accept(tt.url, tt.filename, tt.length, tt.contentType))
		})
	}
}

func TestGateCustomLimits(t *testing.T) {
	gate := NewGate(config.SpiderConfig{
		MaxContentLength: 10,
		PageExtensions:   []string{".cgi"},
	}, logging.Discard())

	accept := gate.AcceptFunc()
	assert.True(t, accept("http://example.com/a", "", 10, "text/html"))
	assert.False(t, accept("http://example.com/a", "", 11, "text/html"))
	assert.True(t, accept("http://example.com/run.cgi", "", -1, "text/html"))
	assert.False(t, accept("http://example.com/index.php", "", -1, "text/html"))
}

func TestURLFilenameAndExtension(t *testing.T) {
	name, err := urlFilename("http://example.com/a/b.txt?x=1")
	assert.NoError(t, err)
	assert.Equal(t, "b.txt", name)

	name, err = urlFilename("http://example.com/a/")
	assert.NoError(t, err)
	assert.Empty(t, name)

	ext, ok := extension("archive.tar.GZ")
	assert.True(t, ok)
	assert.Equal(t, "gz", ext)

	_, ok = extension("README")
	assert.False(t, ok)
}
