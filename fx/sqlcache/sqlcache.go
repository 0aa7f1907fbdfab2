// Package sqlcache stores the rate table in PostgreSQL, for setups where
// several hosts share one cache.
package sqlcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/ecbconv/ecbconv/fx"
)

const DriverName = "pgx"

const (
	createRatesTable = `CREATE TABLE IF NOT EXISTS ecbconv_rates (
	code CHAR(3) PRIMARY KEY,
	rate DOUBLE PRECISION NOT NULL CHECK (rate > 0)
)`
	createMetaTable = `CREATE TABLE IF NOT EXISTS ecbconv_meta (
	published_at BIGINT NOT NULL
)`
	selectPublishedAt = "SELECT published_at FROM ecbconv_meta LIMIT 1"
	selectRates       = "SELECT code, rate FROM ecbconv_rates"
	truncateRates     = "TRUNCATE TABLE ecbconv_rates"
	insertRate        = "INSERT INTO ecbconv_rates (code, rate) VALUES ($1, $2)"
	deleteMeta        = "DELETE FROM ecbconv_meta"
	insertMeta        = "INSERT INTO ecbconv_meta (published_at) VALUES ($1)"
)

// SQLRatesCache implements fx.RatesCache over two tables.
type SQLRatesCache struct {
	DB      *sql.DB
	Timeout time.Duration
}

var _ fx.RatesCache = (*SQLRatesCache)(nil)

func New(db *sql.DB) *SQLRatesCache {
	return &SQLRatesCache{DB: db, Timeout: 5 * time.Second}
}

// Open does not connect; the first query does.
func Open(dsn string) (*SQLRatesCache, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, &fx.StorageError{Op: "open", Err: err}
	}
	return New(db), nil
}

func (c *SQLRatesCache) Close() error {
	return c.DB.Close()
}

func (c *SQLRatesCache) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.Timeout)
}

func (c *SQLRatesCache) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createRatesTable, createMetaTable} {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return &fx.StorageError{Op: "create schema", Err: err}
		}
	}
	return nil
}

func (c *SQLRatesCache) Load() (fx.CacheRecord, error) {
	ctx, cancel := c.context()
	defer cancel()

	var secs int64
	if err := c.DB.QueryRowContext(ctx, selectPublishedAt).Scan(&secs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fx.CacheRecord{}, fmt.Errorf("ecbconv_meta is empty: %w", fx.ErrCacheMiss)
		}
		return fx.CacheRecord{}, &fx.StorageError{Op: "read", Path: "ecbconv_meta", Err: err}
	}

	rows, err := c.DB.QueryContext(ctx, selectRates)
	if err != nil {
		return fx.CacheRecord{}, &fx.StorageError{Op: "read", Path: "ecbconv_rates", Err: err}
	}
	defer rows.Close()

	rates := make(fx.RateTable)
	for rows.Next() {
		var code string
		var rate float64
		if err := rows.Scan(&code, &rate); err != nil {
			return fx.CacheRecord{}, &fx.StorageError{Op: "read", Path: "ecbconv_rates", Err: err}
		}
		if rate <= 0 || code == fx.BaseCurrency {
			return fx.CacheRecord{}, fmt.Errorf("bad row %s=%v: %w", code, rate, fx.ErrCacheMiss)
		}
		rates[code] = rate
	}
	if err := rows.Err(); err != nil {
		return fx.CacheRecord{}, &fx.StorageError{Op: "read", Path: "ecbconv_rates", Err: err}
	}
	if len(rates) == 0 {
		return fx.CacheRecord{}, fmt.Errorf("ecbconv_rates is empty: %w", fx.ErrCacheMiss)
	}

	return fx.CacheRecord{Rates: rates, PublishedAt: time.Unix(secs, 0).UTC()}, nil
}

// Save replaces the stored table and timestamp in one transaction.
func (c *SQLRatesCache) Save(record fx.CacheRecord) error {
	ctx, cancel := c.context()
	defer cancel()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return &fx.StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, truncateRates); err != nil {
		return &fx.StorageError{Op: "truncate", Path: "ecbconv_rates", Err: err}
	}
	for _, code := range record.Rates.Codes() {
		if _, err := tx.ExecContext(ctx, insertRate, code, record.Rates[code]); err != nil {
			return &fx.StorageError{Op: "insert", Path: "ecbconv_rates", Err: err}
		}
	}
	if _, err := tx.ExecContext(ctx, deleteMeta); err != nil {
		return &fx.StorageError{Op: "delete", Path: "ecbconv_meta", Err: err}
	}
	if _, err := tx.ExecContext(ctx, insertMeta, record.PublishedAt.Unix()); err != nil {
		return &fx.StorageError{Op: "insert", Path: "ecbconv_meta", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &fx.StorageError{Op: "commit", Err: err}
	}
	return nil
}
