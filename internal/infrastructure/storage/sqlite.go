package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// SQLite is the dialect for the embedded modernc driver.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: sq.Question,
	Schema: `CREATE TABLE IF NOT EXISTS kv_entries (
		namespace   TEXT    NOT NULL,
		entry_key   TEXT    NOT NULL,
		entry_value BLOB    NOT NULL,
		expires_at  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (namespace, entry_key)
	)`,
}

// OpenSQLite opens (creating if needed) the database file and migrates it.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent ingestion.
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db, SQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
