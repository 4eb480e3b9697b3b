package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// Postgres is the dialect for lib/pq.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: sq.Dollar,
	Schema: `CREATE TABLE IF NOT EXISTS kv_entries (
		namespace   TEXT   NOT NULL,
		entry_key   TEXT   NOT NULL,
		entry_value BYTEA  NOT NULL,
		expires_at  BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (namespace, entry_key)
	)`,
}

// OpenPostgres connects with the given DSN, pings, and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db, Postgres); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
