package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_download_counts",
		SQL: `CREATE TABLE IF NOT EXISTS download_counts (
  file_name  TEXT        NOT NULL,
  user_id    TEXT        NOT NULL,
  count      BIGINT      NOT NULL CHECK (count >= 0),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (file_name, user_id)
);`,
	},
	{
		Name: "create_index_download_counts_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_download_counts_user_id ON download_counts (user_id);`,
	},
}

// EnsureMigrated creates the ledger schema unless the download_counts table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost)

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.download_counts') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error("db migration failed",
			"event", "db_migration_failed",
			"error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration",
			"event", "db_migration_skip",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db migration started", "event", "db_migration_start")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db migration failed",
				"event", "db_migration_failed",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db migration step applied",
			"event", "db_migration_step",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db migration succeeded",
		"event", "db_migration_success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
