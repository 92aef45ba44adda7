// Package postgres provides the Postgres-backed posting store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobscout/internal/pipeline"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for posting rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store persists posting rows in a single append-mostly table. The status
// column is written once at insert time and never updated here; reviewers
// own it afterwards.
type Store struct {
	pool  pgxPool
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "postings"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "postings"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the posting table if it does not exist yet. Safe to
// call on every run.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	fingerprint  TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	company      TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	apply_url    TEXT NOT NULL,
	source       TEXT NOT NULL,
	posted_date  DATE,
	scraped_date DATE NOT NULL,
	salary       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'Not Applied'
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ReadAll returns every persisted row, including reviewer-owned status.
func (s *Store) ReadAll(ctx context.Context) ([]pipeline.StoreRow, error) {
	query := fmt.Sprintf(`
SELECT fingerprint, title, company, location, apply_url, source,
       posted_date, scraped_date, salary, status
FROM %s
ORDER BY scraped_date, fingerprint`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read postings: %w", err)
	}
	defer rows.Close()

	var out []pipeline.StoreRow
	for rows.Next() {
		var (
			row    pipeline.StoreRow
			posted *time.Time
		)
		if err := rows.Scan(
			&row.Fingerprint,
			&row.Title,
			&row.Company,
			&row.Location,
			&row.ApplyURL,
			&row.Source,
			&posted,
			&row.ScrapedDate,
			&row.Salary,
			&row.Status,
		); err != nil {
			return nil, fmt.Errorf("scan posting row: %w", err)
		}
		if posted != nil {
			row.PostedDate = *posted
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posting rows: %w", err)
	}
	return out, nil
}

// AppendRows inserts rows one by one, in order, stopping at the first
// failure. The returned count is always the number of rows that landed,
// so partial failures never lose the true written count. Existing rows
// are never updated; ON CONFLICT DO NOTHING protects reviewer edits if a
// duplicate slips past the dedup index.
func (s *Store) AppendRows(ctx context.Context, rows []pipeline.StoreRow) (int, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (
	fingerprint, title, company, location, apply_url, source,
	posted_date, scraped_date, salary, status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (fingerprint) DO NOTHING`, s.table)

	written := 0
	for _, row := range rows {
		var posted *time.Time
		if row.HasPostedDate() {
			d := row.PostedDate
			posted = &d
		}
		if _, err := s.pool.Exec(ctx, query,
			row.Fingerprint,
			row.Title,
			row.Company,
			row.Location,
			row.ApplyURL,
			string(row.Source),
			posted,
			row.ScrapedDate,
			row.Salary,
			row.Status,
		); err != nil {
			return written, fmt.Errorf("insert posting: %w", err)
		}
		written++
	}
	return written, nil
}
