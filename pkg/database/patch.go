package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAPIKeyColumn adds the api_key column to the users table if it is
// missing. Deployments that predate API key auth carry a schema without the
// column, and the migration history cannot be rewritten for them, so this
// runs as an idempotent patch at startup.
func EnsureAPIKeyColumn(ctx context.Context, pool *pgxpool.Pool) error {
	var columnName string
	err := pool.QueryRow(ctx, `
        SELECT column_name
        FROM information_schema.columns
        WHERE table_name = 'users' AND column_name = 'api_key'
    `).Scan(&columnName)
	if err == nil {
		// Column already present, nothing to do.
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to inspect users schema: %w", err)
	}

	if _, err := pool.Exec(ctx, `ALTER TABLE users ADD COLUMN api_key VARCHAR UNIQUE`); err != nil {
		return fmt.Errorf("failed to add api_key column: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_users_api_key ON users(api_key)`); err != nil {
		return fmt.Errorf("failed to create api_key index: %w", err)
	}
	return nil
}
