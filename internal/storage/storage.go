// Package storage keeps the discovered-from graph produced while spidering.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	pq "github.com/lib/pq"

	"linkspider/internal/config"
	"linkspider/pkg/types"
)

// Graph records provenance edges and the pages they were found on.
type Graph interface {
	RecordEdge(ctx context.Context, edge types.Edge) error
	SavePage(ctx context.Context, page *types.FetchedPage, depth int) error
}

// MemoryGraph is an in-process Graph, safe for concurrent use.
type MemoryGraph struct {
	mu    sync.RWMutex
	edges map[[2]string]types.Edge
	pages map[string]PageRecord
}

// PageRecord is the stored summary of a fetched page.
type PageRecord struct {
	URL         string    `db:"url"`
	FinalURL    string    `db:"final_url"`
	Depth       int       `db:"depth"`
	StatusCode  int       `db:"status_code"`
	ContentType string    `db:"content_type"`
	Length      int       `db:"length"`
	RetrievedAt time.Time `db:"retrieved_at"`
}

// NewMemoryGraph creates an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		edges: make(map[[2]string]types.Edge),
		pages: make(map[string]PageRecord),
	}
}

// RecordEdge stores edge, keeping the earliest discovery of each (From, To) pair.
func (g *MemoryGraph) RecordEdge(_ context.Context, edge types.Edge) error {
	key := [2]string{edge.From, edge.To}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edges[key]; !ok {
		g.edges[key] = edge
	}
	return nil
}

// SavePage stores a summary of page.
func (g *MemoryGraph) SavePage(_ context.Context, page *types.FetchedPage, depth int) error {
	if page == nil {
		return errors.New("page is nil")
	}
	g.mu.Lock()
	g.pages[page.URL] = pageRecord(page, depth)
	g.mu.Unlock()
	return nil
}

// Edges returns every edge sorted by From then To.
func (g *MemoryGraph) Edges() []types.Edge {
	g.mu.RLock()
	out := make([]types.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Pages returns stored page summaries sorted by URL.
func (g *MemoryGraph) Pages() []PageRecord {
	g.mu.RLock()
	out := make([]PageRecord, 0, len(g.pages))
	for _, p := range g.pages {
		out = append(out, p)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

func pageRecord(page *types.FetchedPage, depth int) PageRecord {
	return PageRecord{
		URL:         page.URL,
		FinalURL:    page.FinalURL,
		Depth:       depth,
		StatusCode:  page.StatusCode,
		ContentType: page.ContentType,
		Length:      page.Length,
		RetrievedAt: page.FetchedAt,
	}
}

// SQLGraph persists the graph in PostgreSQL through either the "postgres"
// (lib/pq) or the "pgx" driver.
type SQLGraph struct {
	db          *sqlx.DB
	autoMigrate bool
}

type edgeRow struct {
	ID           string    `db:"id"`
	Src          string    `db:"src"`
	Dst          string    `db:"dst"`
	Kind         string    `db:"kind"`
	Depth        int       `db:"depth"`
	DiscoveredAt time.Time `db:"discovered_at"`
}

// OpenSQLGraph connects to the configured database.
func OpenSQLGraph(ctx context.Context, cfg config.SQLConfig) (*SQLGraph, error) {
	if !cfg.Enabled() {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sql connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}
	return NewSQLGraph(ctx, db, cfg.AutoMigrate)
}

// NewSQLGraph wraps an existing connection, creating the schema when autoMigrate is set.
func NewSQLGraph(ctx context.Context, db *sqlx.DB, autoMigrate bool) (*SQLGraph, error) {
	g := &SQLGraph{db: db, autoMigrate: autoMigrate}
	if autoMigrate {
		if err := g.ensureSchema(ctx); err != nil {
			return nil, err
		}
	}
	return g, nil
}

const upsertEdgeQuery = `
	INSERT INTO edges (id, src, dst, kind, depth, discovered_at)
	VALUES (:id, :src, :dst, :kind, :depth, :discovered_at)
	ON CONFLICT (src, dst) DO NOTHING
`

const upsertPageQuery = `
	INSERT INTO pages (url, final_url, depth, status_code, content_type, length, retrieved_at)
	VALUES (:url, :final_url, :depth, :status_code, :content_type, :length, :retrieved_at)
	ON CONFLICT (url) DO UPDATE SET
		final_url = EXCLUDED.final_url,
		depth = LEAST(pages.depth, EXCLUDED.depth),
		status_code = EXCLUDED.status_code,
		content_type = EXCLUDED.content_type,
		length = EXCLUDED.length,
		retrieved_at = EXCLUDED.retrieved_at
`

// RecordEdge inserts edge unless the pair is already known.
func (g *SQLGraph) RecordEdge(ctx context.Context, edge types.Edge) error {
	row := edgeRow{
		ID:           uuid.NewString(),
		Src:          edge.From,
		Dst:          edge.To,
		Kind:         string(edge.Kind),
		Depth:        edge.Depth,
		DiscoveredAt: edge.DiscoveredAt,
	}
	if err := g.exec(ctx, upsertEdgeQuery, row); err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

// SavePage upserts the page summary.
func (g *SQLGraph) SavePage(ctx context.Context, page *types.FetchedPage, depth int) error {
	if page == nil {
		return errors.New("page is nil")
	}
	if err := g.exec(ctx, upsertPageQuery, pageRecord(page, depth)); err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (g *SQLGraph) exec(ctx context.Context, query string, arg any) error {
	_, err := g.db.NamedExecContext(ctx, query, arg)
	if err != nil && g.autoMigrate && isUndefinedTableErr(err) {
		if schemaErr := g.ensureSchema(ctx); schemaErr != nil {
			return fmt.Errorf("ensure schema: %w", schemaErr)
		}
		_, err = g.db.NamedExecContext(ctx, query, arg)
	}
	return err
}

// Close closes the underlying DB connection.
func (g *SQLGraph) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pages (
	    url TEXT PRIMARY KEY,
	    final_url TEXT,
	    depth INT,
	    status_code INT,
	    content_type TEXT,
	    length INT,
	    retrieved_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
	    id UUID PRIMARY KEY,
	    src TEXT NOT NULL,
	    dst TEXT NOT NULL,
	    kind TEXT NOT NULL,
	    depth INT,
	    discovered_at TIMESTAMPTZ,
	    CONSTRAINT edge_links UNIQUE (src, dst)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges (dst)`,
}

func (g *SQLGraph) ensureSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for _, stmt := range schema {
		if _, err := g.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const undefinedTable = "42P01"

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == undefinedTable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
