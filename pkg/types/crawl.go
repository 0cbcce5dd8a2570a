package types

import (
	"net/http"
	"time"
)

// FetchTarget is a unit of crawl work handed to the spider by the scheduler.
type FetchTarget struct {
	URL     string
	Depth   int
	Referer string
}

// IsSeed reports whether the target was not discovered from another page.
func (t FetchTarget) IsSeed() bool {
	return t.Referer == ""
}

// Child returns the target discovered on t pointing at rawURL.
func (t FetchTarget) Child(rawURL string) FetchTarget {
	return FetchTarget{URL: rawURL, Depth: t.Depth + 1, Referer: t.URL}
}

// ContentKind classifies a fetched body for link extraction.
type ContentKind int

const (
	ContentOther ContentKind = iota
	ContentHTML
	ContentText
)

func (k ContentKind) String() string {
	switch k {
	case ContentHTML:
		return "html"
	case ContentText:
		return "text"
	default:
		return "other"
	}
}

// FetchedPage is the result of a download that passed the acceptance gate.
type FetchedPage struct {
	URL         string
	FinalURL    string
	Kind        ContentKind
	ContentType string
	Body        []byte
	Length      int
	StatusCode  int
	Headers     http.Header
	FetchedAt   time.Time
	Latency     time.Duration
}

// BaseURL returns the URL relative links on the page resolve against.
func (p *FetchedPage) BaseURL() string {
	if p == nil {
		return ""
	}
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// MailboxReference is produced for mailto: links.
type MailboxReference struct {
	Address string
}

// ResourceKind tags the variant held by a Resource.
type ResourceKind int

const (
	ResourceSkipped ResourceKind = iota
	ResourceTarget
	ResourceMailbox
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceTarget:
		return "target"
	case ResourceMailbox:
		return "mailbox"
	default:
		return "skipped"
	}
}

// Resource is the outcome of converting one surviving link.
// Exactly one of Target or Mailbox is set unless Kind is ResourceSkipped.
type Resource struct {
	Kind    ResourceKind
	URL     string
	Target  *FetchTarget
	Mailbox *MailboxReference
	Reason  string
}

// EdgeKind describes what a provenance edge points at.
type EdgeKind string

const (
	EdgeLink    EdgeKind = "link"
	EdgeMailbox EdgeKind = "mailbox"
)

// Edge records that To was discovered on From.
type Edge struct {
	From         string
	To           string
	Kind         EdgeKind
	Depth        int
	DiscoveredAt time.Time
}

// FootprintState tracks crawl completion for a URL at a specific depth.
type FootprintState struct {
	Depth         int
	FullyExplored bool
	LastVisited   time.Time
}
