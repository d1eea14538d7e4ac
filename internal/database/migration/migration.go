package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"canister/internal/config"
	"canister/internal/database"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_artifacts",
		SQL: `CREATE TABLE IF NOT EXISTS artifacts (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name         TEXT        NOT NULL,
  version      TEXT        NOT NULL,
  content_type TEXT        NOT NULL,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  digest       TEXT        NOT NULL,
  storage_key  TEXT        NOT NULL UNIQUE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (name, version)
);`,
	},
	{
		Name: "create_index_artifacts_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_artifacts_name ON artifacts (name);`,
	},
	{
		Name: "create_index_artifacts_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts (created_at);`,
	},
}

// Runner applies the schema during container start, before the HTTP listener
// accepts traffic. DB_MIGRATE=false turns it into a no-op.
type Runner struct {
	db  *database.DB
	cfg config.DatabaseConfig
	log zerolog.Logger
}

func NewRunner(db *database.DB, cfg config.DatabaseConfig, log zerolog.Logger) *Runner {
	return &Runner{
		db:  db,
		cfg: cfg,
		log: log.With().Str("component", "migration").Logger(),
	}
}

// Start implements the container start hook.
func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Migrate {
		r.log.Info().Msg("migrations disabled, skipping")
		return nil
	}
	return r.Ensure(ctx)
}

// Ensure checks if the 'artifacts' table exists and runs migrations if it doesn't.
func (r *Runner) Ensure(ctx context.Context) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.artifacts') IS NOT NULL"
	if err := r.db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		r.log.Info().Dur("took", time.Since(start)).Msg("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := r.db.ExecContext(ctx, step.SQL); err != nil {
			r.log.Error().Err(err).Str("step", step.Name).Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		r.log.Debug().Str("step", step.Name).Dur("took", time.Since(stepStart)).Msg("migration step applied")
	}

	r.log.Info().Int("steps", len(steps)).Dur("took", time.Since(start)).Msg("schema migrated")
	return nil
}
