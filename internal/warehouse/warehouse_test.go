package warehouse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceLakehouse/internal/model"
	"PriceLakehouse/internal/snapshot"
)

func storedSnapshot(t *testing.T) (*snapshot.FileStore, string) {
	t.Helper()
	store := snapshot.NewFileStore(t.TempDir(), "raw")
	d := civil.Date{Year: 2026, Month: time.February, Day: 20}
	rows := []model.PriceRow{
		{Date: d, Symbol: "AAPL", Open: model.Float(150.56), Close: model.Float(151.2), AdjClose: model.Float(151.2), Volume: model.Int(1000000)},
		{Date: d, Symbol: "MSFT", Close: model.Float(411.01), AdjClose: model.Float(410.5)},
	}
	uri, err := store.Store(t.Context(), rows, "2026-02-23")
	require.NoError(t, err)
	return store, uri
}

func TestSQLite_LoadCreatesTableAndAppends(t *testing.T) {
	store, uri := storedSnapshot(t)
	wh, err := NewSQLite(filepath.Join(t.TempDir(), "warehouse.db"), "stock_prices", store)
	require.NoError(t, err)
	defer wh.Close()

	require.NoError(t, wh.Load(t.Context(), uri))
	n, err := wh.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// append-only: a re-load duplicates the rows
	require.NoError(t, wh.Load(t.Context(), uri))
	n, err = wh.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var (
		date   string
		high   *float64
		volume *int64
	)
	err = wh.db.QueryRowContext(t.Context(),
		"SELECT date, high, volume FROM stock_prices WHERE symbol = 'MSFT' LIMIT 1").Scan(&date, &high, &volume)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-20", date)
	assert.Nil(t, high)
	assert.Nil(t, volume)
}

func TestSQLite_MissingSnapshotFails(t *testing.T) {
	store := snapshot.NewFileStore(t.TempDir(), "raw")
	wh, err := NewSQLite(filepath.Join(t.TempDir(), "warehouse.db"), "stock_prices", store)
	require.NoError(t, err)
	defer wh.Close()

	err = wh.Load(t.Context(), store.Locate("2026-02-23"))
	assert.ErrorContains(t, err, "read snapshot")
}

func TestSQLite_RejectsBadTableName(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "w.db"), "prices; DROP TABLE x", nil)
	assert.Error(t, err)
}

func TestBigQuerySchema(t *testing.T) {
	s := Schema()
	require.Len(t, s, 8)

	want := []struct {
		name string
		typ  bigquery.FieldType
	}{
		{"date", bigquery.DateFieldType},
		{"symbol", bigquery.StringFieldType},
		{"open", bigquery.FloatFieldType},
		{"high", bigquery.FloatFieldType},
		{"low", bigquery.FloatFieldType},
		{"close", bigquery.FloatFieldType},
		{"adj_close", bigquery.FloatFieldType},
		{"volume", bigquery.IntegerFieldType},
	}
	for i, w := range want {
		assert.Equal(t, w.name, s[i].Name)
		assert.Equal(t, w.typ, s[i].Type)
	}
	assert.True(t, s[0].Required)
	assert.False(t, s[7].Required)
}

func TestBigQuery_RejectsNonGCSURI(t *testing.T) {
	b := &BigQuery{dataset: "staging", table: "stock_prices"}
	err := b.Load(t.Context(), "file:///tmp/stock_prices.parquet")
	assert.ErrorContains(t, err, "gs://")
}

func TestPostgres_CreateStatements(t *testing.T) {
	p := &Postgres{schema: "staging", table: "stock_prices"}
	stmts := p.createStatements()
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "staging"`, stmts[0])
	assert.Contains(t, stmts[1], `CREATE TABLE IF NOT EXISTS "staging"."stock_prices"`)
	assert.Contains(t, stmts[1], `"date" DATE NOT NULL`)
	assert.Contains(t, stmts[1], `"adj_close" DOUBLE PRECISION`)
	assert.Contains(t, stmts[1], `"volume" BIGINT`)
}

// Runs against a real database when POSTGRES_TEST_DSN is set.
func TestPostgres_Load(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	store, uri := storedSnapshot(t)
	table := "stock_prices_" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")

	ctx := context.Background()
	p, err := NewPostgres(ctx, dsn, "staging_test", table, store)
	require.NoError(t, err)
	defer p.Close()
	defer func() { _, _ = p.pool.Exec(ctx, "DROP TABLE IF EXISTS "+p.ident().Sanitize()) }()

	require.NoError(t, p.Load(ctx, uri))
	require.NoError(t, p.Load(ctx, uri))

	var n int
	require.NoError(t, p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+p.ident().Sanitize()).Scan(&n))
	assert.Equal(t, 4, n)
}
