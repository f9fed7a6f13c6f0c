package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// recordSchema creates the structured-record table on first connect. One
// row per (broker-dealer, fiscal year); the full record rides along as
// JSONB so category columns never need migrating.
const recordSchema = `
CREATE TABLE IF NOT EXISTS balance_sheet_records (
	entity_id   TEXT NOT NULL,
	fiscal_year INT  NOT NULL,
	entity_name TEXT,
	filing_date TEXT,
	run_id      TEXT,
	record_json JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (entity_id, fiscal_year)
)`

// InitDB initializes the connection pool from the DATABASE_URL environment
// variable and ensures the record schema exists.
func InitDB(ctx context.Context) error {
	var err error
	once.Do(func() {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}
		config.MaxConnLifetime = time.Hour

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}

		if _, execErr := pool.Exec(ctx, recordSchema); execErr != nil {
			err = fmt.Errorf("failed to ensure record schema: %w", execErr)
			return
		}
		log.Printf("[Store] Connected to Postgres, record schema ready")
	})
	return err
}

// GetPool returns the database connection pool
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
