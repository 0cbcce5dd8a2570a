package spider

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"linkspider/pkg/types"
)

// BuildReport summarises one Build call.
type BuildReport struct {
	Targets   int
	Mailboxes int
	Skipped   int
	Malformed []*ParseError
}

// Builder turns filtered links into typed resources and records where each came from.
type Builder struct {
	sink   ProvenanceSink
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a builder. sink may be nil.
func NewBuilder(sink ProvenanceSink, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{sink: sink, logger: logger, now: time.Now}
}

// Build converts each link discovered on parent. One bad link never stops the batch.
func (b *Builder) Build(ctx context.Context, parent types.FetchTarget, links []string) ([]types.Resource, BuildReport) {
	var report BuildReport
	resources := make([]types.Resource, 0, len(links))

	for _, link := range links {
		res, err := classify(parent, link)
		if err != nil {
			report.Malformed = append(report.Malformed, err)
			b.logger.Warn("skipped malformed url", "url", link, "referer", parent.URL, "error", err.Err)
			continue
		}

		switch res.Kind {
		case types.ResourceTarget:
			report.Targets++
			b.record(ctx, types.Edge{From: parent.URL, To: res.Target.URL, Kind: types.EdgeLink, Depth: res.Target.Depth})
		case types.ResourceMailbox:
			report.Mailboxes++
			b.record(ctx, types.Edge{From: parent.URL, To: res.Mailbox.Address, Kind: types.EdgeMailbox, Depth: parent.Depth + 1})
		default:
			report.Skipped++
			b.logger.Debug("skipped unsupported scheme", "url", link, "reason", res.Reason)
		}
		resources = append(resources, res)
	}
	return resources, report
}

func (b *Builder) record(ctx context.Context, edge types.Edge) {
	if b.sink == nil {
		return
	}
	edge.DiscoveredAt = b.now()
	if err := b.sink.RecordEdge(ctx, edge); err != nil {
		b.logger.Warn("record provenance failed", "from", edge.From, "to", edge.To, "error", err)
	}
}

func classify(parent types.FetchTarget, link string) (types.Resource, *ParseError) {
	u, err := url.Parse(link)
	if err != nil {
		return types.Resource{}, &ParseError{URL: link, Err: err}
	}

	switch u.Scheme {
	case "mailto":
		addr, err := mailboxAddress(u)
		if err != nil {
			return types.Resource{}, &ParseError{URL: link, Err: err}
		}
		return types.Resource{
			Kind:    types.ResourceMailbox,
			URL:     link,
			Mailbox: &types.MailboxReference{Address: addr},
		}, nil
	case "http", "https":
		if u.Host == "" {
			return types.Resource{}, &ParseError{URL: link, Err: errMissingHost}
		}
		child := parent.Child(link)
		return types.Resource{Kind: types.ResourceTarget, URL: link, Target: &child}, nil
	default:
		return types.Resource{Kind: types.ResourceSkipped, URL: link, Reason: "unsupported scheme " + u.Scheme}, nil
	}
}

// mailboxAddress extracts the location part of a mailto URL.
func mailboxAddress(u *url.URL) (string, error) {
	addr := u.Opaque
	if addr == "" {
		addr = u.Host
		if u.User != nil {
			addr = u.User.String() + "@" + addr
		}
	}
	if unescaped, err := url.PathUnescape(addr); err == nil {
		addr = unescaped
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errEmptyMailbox
	}
	return addr, nil
}
