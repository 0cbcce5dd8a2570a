package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkspider/internal/extract"
)

const pageHTML = `<!DOCTYPE html>
<html>
<head><link rel="stylesheet" href="/style.css"></head>
<body>
  <a href="/b">B</a>
  <a href="c#section">C</a>
  <a href="http://evil.com/c">Evil</a>
  <a href="mailto:x@example.com">Mail</a>
  <a href="javascript:void(0)">JS</a>
  <a href="#top">Top</a>
  <a href="">Empty</a>
  <form action="/search"></form>
  <iframe src="https://example.com/embed"></iframe>
</body>
</html>`

func TestHTMLResolvesLinks(t *testing.T) {
	links, err := extract.New().HTML([]byte(pageHTML), "http://example.com/dir/a")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"http://example.com/b",
		"http://example.com/dir/c",
		"http://evil.com/c",
		"mailto:x@example.com",
		"http://example.com/style.css",
		"http://example.com/search",
		"https://example.com/embed",
	}, links)
}

func TestHTMLHonoursBaseHref(t *testing.T) {
	body := `<html><head><base href="https://cdn.example.com/root/"></head><body><a href="x">x</a></body></html>`
	links, err := extract.New().HTML([]byte(body), "http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/root/x"}, links)
}

func TestHTMLToleratesMalformedMarkup(t *testing.T) {
	body := `<a href="/one"><div><a href='/two'<<<</p></table><a href="http://[::1">`
	links, err := extract.New().HTML([]byte(body), "http://example.com/")
	require.NoError(t, err)
	assert.Contains(t, links, "http://example.com/one")
	assert.NotContains(t, links, "http://[::1")
}

func TestHTMLRejectsRelativeBase(t *testing.T) {
	_, err := extract.New().HTML([]byte(pageHTML), "/relative")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	body := []byte("See http://example.com/b, or (https://example.com/c). Mail mailto:x@example.com! ftp://no.example.com")
	links, err := extract.New().Text(body, "http://example.com/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://example.com/b",
		"https://example.com/c",
		"mailto:x@example.com",
	}, links)
}

func TestTextRejectsRelativeBase(t *testing.T) {
	_, err := extract.New().Text([]byte("http://example.com"), "")
	assert.Error(t, err)
}
