package storage

import (
	"context"
	"fmt"
)

const (
	ArticlesTable = "staged_articles"
	JobsTable     = "ingest_jobs"
)

// Times are stored as unix milliseconds so the same DDL runs on both
// Postgres and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS staged_articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		original_url TEXT NOT NULL,
		source_name TEXT NOT NULL DEFAULT '',
		source_feed_url TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		relevance_score DOUBLE PRECISION NOT NULL,
		images TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		pub_date BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS staged_articles_original_url_key ON staged_articles (original_url)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS staged_articles_content_hash_key ON staged_articles (content_hash)`,
	`CREATE TABLE IF NOT EXISTS ingest_jobs (
		dedup_key TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		payload TEXT NOT NULL,
		state TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		run_at BIGINT NOT NULL,
		locked_until BIGINT NOT NULL DEFAULT 0,
		lease_token TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ingest_jobs_ready ON ingest_jobs (state, run_at)`,
}

// Migrate creates the article and job tables if they are missing.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
