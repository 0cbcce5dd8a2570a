// Package extract pulls absolute links out of HTML and plain-text bodies.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

var errRelativeBase = errors.New("base url must be absolute")

// linkAttrs maps selectors to the attribute that carries the link.
var linkAttrs = []struct {
	selector string
	attr     string
}{
	{"a[href]", "href"},
	{"area[href]", "href"},
	{"link[href]", "href"},
	{"frame[src]", "src"},
	{"iframe[src]", "src"},
	{"form[action]", "action"},
}

// pseudoSchemes never name a fetchable resource.
var pseudoSchemes = []string{"javascript:", "data:", "about:", "blob:"}

var textURLPattern = regexp.MustCompile(`(?i)\b(?:https?://|mailto:)[^\s<>"'` + "`" + `(){}\[\]]+`)

// Extractor implements HTML and plain-text link extraction. The zero value is ready to use.
type Extractor struct{}

// New returns an Extractor.
func New() Extractor {
	return Extractor{}
}

// HTML returns the absolute links found in an HTML document, resolved
// against base or the document's <base href>.
func (Extractor) HTML(body []byte, base string) ([]string, error) {
	baseURL, err := parseBase(base)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(decode(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := baseURL.Parse(strings.TrimSpace(href)); err == nil && b.IsAbs() {
			baseURL = b
		}
	}

	var links []string
	for _, la := range linkAttrs {
		doc.Find(la.selector).Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr(la.attr)
			if link, ok := resolve(baseURL, raw); ok {
				links = append(links, link)
			}
		})
	}
	return links, nil
}

// Text returns the absolute http, https and mailto URLs mentioned in plain text.
func (Extractor) Text(body []byte, base string) ([]string, error) {
	baseURL, err := parseBase(base)
	if err != nil {
		return nil, err
	}
	var links []string
	for _, match := range textURLPattern.FindAll(body, -1) {
		raw := strings.TrimRight(string(match), ".,;:!?")
		if link, ok := resolve(baseURL, raw); ok {
			links = append(links, link)
		}
	}
	return links, nil
}

func parseBase(base string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("parse base url %q: %w", base, errRelativeBase)
	}
	return u, nil
}

// decode converts the body to UTF-8 using any charset declared in the document.
func decode(body []byte) io.Reader {
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}

func resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	lower := strings.ToLower(raw)
	for _, p := range pseudoSchemes {
		if strings.HasPrefix(lower, p) {
			return "", false
		}
	}
	u, err := base.Parse(raw)
	if err != nil || !u.IsAbs() {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
