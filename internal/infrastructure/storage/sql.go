package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"DailyDigest/internal/ports"
)

const kvTable = "kv_entries"

// Dialect captures the differences between SQL backends sharing the kv table.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	Schema      string
}

// SQLStore implements ports.KVStore on a shared kv_entries table, one namespace per instance.
type SQLStore struct {
	db        *sql.DB
	builder   sq.StatementBuilderType
	namespace string
	now       func() time.Time
}

var _ ports.KVStore = (*SQLStore)(nil)

// NewSQLStore binds a namespace to an already migrated database.
func NewSQLStore(db *sql.DB, dialect Dialect, namespace string) *SQLStore {
	return &SQLStore{
		db:        db,
		builder:   sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		namespace: namespace,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for expiry.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

// Migrate creates the kv table when missing.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect.Name, err)
	}
	return nil
}

// Get returns the live value stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.builder.
		Select("entry_value").
		From(kvTable).
		Where(sq.Eq{"namespace": s.namespace, "entry_key": key}).
		Where(s.liveCond()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}

	var value []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrKeyNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Put upserts value under key.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query, args, err := s.builder.
		Insert(kvTable).
		Columns("namespace", "entry_key", "entry_value", "expires_at").
		Values(s.namespace, key, value, s.expiry(ttl)).
		Suffix("ON CONFLICT (namespace, entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build put: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent inserts value unless a live row exists; expired rows are replaced.
func (s *SQLStore) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	query, args, err := s.builder.
		Insert(kvTable).
		Columns("namespace", "entry_key", "entry_value", "expires_at").
		Values(s.namespace, key, value, s.expiry(ttl)).
		Suffix("ON CONFLICT (namespace, entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, expires_at = EXCLUDED.expires_at "+
			"WHERE "+kvTable+".expires_at <> 0 AND "+kvTable+".expires_at <= ?", s.now().UnixMilli()).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build put if absent: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("put if absent %s: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns the live keys of the namespace in lexical order.
func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	query, args, err := s.builder.
		Select("entry_key").
		From(kvTable).
		Where(sq.Eq{"namespace": s.namespace}).
		Where(s.liveCond()).
		OrderBy("entry_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return keys, nil
}

// Delete removes key from the namespace.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query, args, err := s.builder.
		Delete(kvTable).
		Where(sq.Eq{"namespace": s.namespace, "entry_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) liveCond() sq.Sqlizer {
	return sq.Or{
		sq.Eq{"expires_at": 0},
		sq.Gt{"expires_at": s.now().UnixMilli()},
	}
}

func (s *SQLStore) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).UnixMilli()
}
