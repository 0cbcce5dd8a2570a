package spider

import (
	"context"

	"linkspider/internal/wordlist"
	"linkspider/pkg/types"
)

// Downloader fetches a single URL, consulting accept before reading the body.
type Downloader interface {
	Download(ctx context.Context, rawURL string, accept types.AcceptFunc, allowRedirects bool) (*types.FetchedPage, error)
}

// Extractor returns absolute links found in a page body.
type Extractor interface {
	HTML(body []byte, base string) ([]string, error)
	Text(body []byte, base string) ([]string, error)
}

// ScopeOracle answers whether a URL belongs to the audit scope. An error
// means the URL could not be evaluated, which is not the same as false.
type ScopeOracle interface {
	Contains(rawURL string) (bool, error)
}

// WordlistSource resolves a wordlist by name.
type WordlistSource interface {
	Get(name string) (wordlist.Set, error)
}

// ProvenanceSink receives discovered-from edges.
type ProvenanceSink interface {
	RecordEdge(ctx context.Context, edge types.Edge) error
}
