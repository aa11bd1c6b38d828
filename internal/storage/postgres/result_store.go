// Package postgres stores scrape summaries in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for result rows.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	CreateTable     bool          `mapstructure:"create_table"`
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ResultStore writes one row per completed scrape.
type ResultStore struct {
	pool  execCloser
	table string
}

// NewResultStore connects to Postgres and optionally creates the result table.
func NewResultStore(ctx context.Context, cfg Config) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewResultStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.CreateTable {
		if err := store.EnsureTable(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewResultStoreWithPool wraps an existing pool. An empty table means "scrape_results".
func NewResultStoreWithPool(pool execCloser, table string) (*ResultStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = "scrape_results"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ResultStore{pool: pool, table: table}, nil
}

// Close releases the pool.
func (s *ResultStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureTable creates the result table if it does not exist.
func (s *ResultStore) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	article_number TEXT NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL,
	sections_found INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	record_uri TEXT NOT NULL,
	specifications JSONB NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// StoreResult inserts the row. Re-running with the same run id replaces it.
func (s *ResultStore) StoreResult(ctx context.Context, row product.StoredResult) error {
	if s == nil || s.pool == nil {
		return errors.New("result store is not configured")
	}
	if row.RunID == "" {
		return errors.New("run id is required")
	}
	specs := row.Specifications
	if specs == nil {
		specs = product.Sections{}
	}
	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return fmt.Errorf("marshal specifications: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	url,
	article_number,
	scraped_at,
	sections_found,
	content_hash,
	record_uri,
	specifications
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (run_id) DO UPDATE SET
	article_number = EXCLUDED.article_number,
	sections_found = EXCLUDED.sections_found,
	content_hash = EXCLUDED.content_hash,
	record_uri = EXCLUDED.record_uri,
	specifications = EXCLUDED.specifications`, s.table)

	args := []any{
		row.RunID,
		row.URL,
		row.ArticleNumber,
		row.ScrapedAt,
		row.SectionsFound,
		row.ContentHash,
		row.RecordURI,
		specsJSON,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert scrape result: %w", err)
	}
	return nil
}
