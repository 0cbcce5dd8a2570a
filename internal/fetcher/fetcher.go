package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"linkspider/pkg/types"
)

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent    string
	Headers      map[string]string
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRedirects int
	ProxyURL     string
	Transport    http.RoundTripper
}

// HTTPFetcher downloads pages over HTTP, asking an acceptance callback
// before any body bytes are read.
type HTTPFetcher struct {
	follow       *http.Client
	noFollow     *http.Client
	userAgent    string
	extraHeaders map[string]string
	maxBodyBytes int64
}

// NewHTTPFetcher constructs an HTTP fetcher using the provided options.
func NewHTTPFetcher(opts Options) (*HTTPFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024
	}

	transport := opts.Transport
	if transport == nil {
		base := &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		if strings.TrimSpace(opts.ProxyURL) != "" {
			proxyURL, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("parse proxy url: %w", err)
			}
			base.Proxy = http.ProxyURL(proxyURL)
		}
		transport = base
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPFetcher{
		follow: &http.Client{
			Timeout:       opts.Timeout,
			Transport:     transport,
			CheckRedirect: RedirectPolicy(opts.MaxRedirects),
		},
		noFollow: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:    opts.UserAgent,
		extraHeaders: headers,
		maxBodyBytes: opts.MaxBodyBytes,
	}, nil
}

// Download fetches rawURL. accept is consulted once the response headers are
// in; a false answer closes the connection and returns types.ErrRejected.
// Transport-level failures are returned as *NetworkError.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string, accept types.AcceptFunc, allowRedirects bool) (*types.FetchedPage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("build request: %w", err)}
	}

	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range f.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	client := f.noFollow
	if allowRedirects {
		client = f.follow
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: errBadStatus}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	contentType := resp.Header.Get("Content-Type")

	if accept != nil && !accept(finalURL, filename(resp), resp.ContentLength, contentType) {
		return nil, fmt.Errorf("%s: %w", finalURL, types.ErrRejected)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	return &types.FetchedPage{
		URL:         rawURL,
		FinalURL:    finalURL,
		Kind:        Classify(contentType),
		ContentType: contentType,
		Body:        body,
		Length:      len(body),
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header.Clone(),
		FetchedAt:   time.Now(),
		Latency:     time.Since(start),
	}, nil
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	var closers []io.Closer

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}
	return body, nil
}

// Client exposes the redirect-following HTTP client for reuse (eg. robots.txt fetches).
func (f *HTTPFetcher) Client() *http.Client {
	if f == nil {
		return nil
	}
	return f.follow
}

// Classify maps a Content-Type header to the extractor that should read the body.
func Classify(contentType string) types.ContentKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return types.ContentHTML
	case strings.HasPrefix(mediaType, "text/"):
		return types.ContentText
	default:
		return types.ContentOther
	}
}

// filename infers the served file name from Content-Disposition, falling
// back to the last segment of the final URL path.
func filename(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return path.Base(name)
			}
		}
	}
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	p := resp.Request.URL.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	return path.Base(p)
}
