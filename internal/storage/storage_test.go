package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	pq "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkspider/pkg/types"
)

func TestMemoryGraphKeepsFirstEdge(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, g.RecordEdge(ctx, types.Edge{From: "http://a", To: "http://b", Kind: types.EdgeLink, DiscoveredAt: first}))
	require.NoError(t, g.RecordEdge(ctx, types.Edge{From: "http://a", To: "http://b", Kind: types.EdgeLink, DiscoveredAt: first.Add(time.Hour)}))
	require.NoError(t, g.RecordEdge(ctx, types.Edge{From: "http://a", To: "x@a", Kind: types.EdgeMailbox}))

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "http://b", edges[0].To)
	assert.Equal(t, first, edges[0].DiscoveredAt)
	assert.Equal(t, types.EdgeMailbox, edges[1].Kind)
}

func TestMemoryGraphPages(t *testing.T) {
	g := NewMemoryGraph()
	require.Error(t, g.SavePage(context.Background(), nil, 0))
	require.NoError(t, g.SavePage(context.Background(), &types.FetchedPage{URL: "http://a", StatusCode: 200, Length: 3}, 2))

	pages := g.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, 2, pages[0].Depth)
	assert.Equal(t, 3, pages[0].Length)
}

func TestMemoryGraphConcurrentWrites(t *testing.T) {
	g := NewMemoryGraph()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = g.RecordEdge(context.Background(), types.Edge{From: "http://a", To: string(rune('a' + i%4))})
		}(i)
	}
	wg.Wait()
	assert.Len(t, g.Edges(), 4)
}

func newMockGraph(t *testing.T, autoMigrate bool) (*SQLGraph, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if autoMigrate {
		expectSchema(mock)
	}
	g, err := NewSQLGraph(context.Background(), sqlx.NewDb(db, "postgres"), autoMigrate)
	require.NoError(t, err)
	return g, mock
}

func expectSchema(mock sqlmock.Sqlmock) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pages").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS edges").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_edges_dst").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestSQLGraphRecordEdge(t *testing.T) {
	g, mock := newMockGraph(t, false)

	mock.ExpectExec("INSERT INTO edges").
		WithArgs(sqlmock.AnyArg(), "http://example.com/a", "http://example.com/b", "link", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := g.RecordEdge(context.Background(), types.Edge{
		From:         "http://example.com/a",
		To:           "http://example.com/b",
		Kind:         types.EdgeLink,
		Depth:        1,
		DiscoveredAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGraphSavePage(t *testing.T) {
	g, mock := newMockGraph(t, true)

	mock.ExpectExec("INSERT INTO pages").
		WithArgs("http://example.com/a", "http://example.com/a", 0, 200, "text/html", 12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := g.SavePage(context.Background(), &types.FetchedPage{
		URL:         "http://example.com/a",
		FinalURL:    "http://example.com/a",
		StatusCode:  200,
		ContentType: "text/html",
		Length:      12,
	}, 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGraphRecreatesMissingTables(t *testing.T) {
	g, mock := newMockGraph(t, true)

	mock.ExpectExec("INSERT INTO edges").WillReturnError(&pq.Error{Code: "42P01"})
	expectSchema(mock)
	mock.ExpectExec("INSERT INTO edges").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, g.RecordEdge(context.Background(), types.Edge{From: "a", To: "b", Kind: types.EdgeLink}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGraphWrapsErrors(t *testing.T) {
	g, mock := newMockGraph(t, false)
	boom := errors.New("boom")
	mock.ExpectExec("INSERT INTO edges").WillReturnError(boom)

	err := g.RecordEdge(context.Background(), types.Edge{From: "a", To: "b"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "insert edge")
}

func TestIsUndefinedTableErr(t *testing.T) {
	assert.True(t, isUndefinedTableErr(&pq.Error{Code: "42P01"}))
	assert.False(t, isUndefinedTableErr(&pq.Error{Code: "23505"}))
	assert.True(t, isUndefinedTableErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "42P01"})))
	assert.False(t, isUndefinedTableErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUndefinedTableErr(errors.New(`relation "edges" does not exist`)))
	assert.False(t, isUndefinedTableErr(errors.New("connection reset")))
}
