package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"rep-lookup/internal/logger"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS _lookup_stats_total (
		id INT PRIMARY KEY,
		total_lookups BIGINT NOT NULL DEFAULT 0,
		total_failures BIGINT NOT NULL DEFAULT 0,
		total_visitors BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS _lookup_stats_daily (
		day DATE PRIMARY KEY,
		lookups BIGINT NOT NULL DEFAULT 0,
		failures BIGINT NOT NULL DEFAULT 0,
		visitors BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS _lookup_stats_state (
		state TEXT PRIMARY KEY,
		lookups BIGINT NOT NULL DEFAULT 0
	)`,
	`INSERT INTO _lookup_stats_total(id, total_lookups, total_failures, total_visitors)
	 VALUES(1, 0, 0, 0)
	 ON CONFLICT (id) DO NOTHING`,
}

// EnsureSchema creates the statistics tables on first run. Every statement is idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
