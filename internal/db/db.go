package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// ErrSourceUnavailable is wrapped by every error that prevents the snapshot
// from being opened or queried at all.
var ErrSourceUnavailable = errors.New("snapshot source unavailable")

// requiredTables are the app tables the report reads.
var requiredTables = []string{"holes", "placements", "climbs", "climb_stats", "beta_links"}

// DB is a read-only handle on a Kilter Board app database snapshot.
type DB struct {
	*sql.DB
}

// Open opens an existing snapshot read-only. A missing file, an unreadable
// database or a database lacking the app tables is reported as
// ErrSourceUnavailable.
func Open(ctx context.Context, path string) (*DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceUnavailable, path)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	// A single connection keeps the query_only pragma in force for every
	// statement.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.prepare(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) prepare(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return fmt.Errorf("%w: set query_only: %v", ErrSourceUnavailable, err)
	}
	for _, table := range requiredTables {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: missing table %q", ErrSourceUnavailable, table)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
	}
	return nil
}

// SQLiteVersion returns the version of the embedded SQLite engine.
func (db *DB) SQLiteVersion(ctx context.Context) (string, error) {
	var v string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}
