package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

var sqlitePrefixes = []string{"sqlite://", "sqlite3://"}

// IsSQLite reports whether dsn points to a sqlite database file (sqlite://path/to/file.db)
func IsSQLite(dsn string) bool {
	for _, p := range sqlitePrefixes {
		if strings.HasPrefix(dsn, p) {
			return true
		}
	}
	return false
}

func sqlitePath(dsn string) (string, error) {
	for _, p := range sqlitePrefixes {
		if path, ok := strings.CutPrefix(dsn, p); ok && path != "" {
			return path, nil
		}
	}
	return "", errors.New("sqlite dsn must look like sqlite://path/to/file.db")
}

// Run embedded sqlite migrations
func MigrateSQLite(dsn string) error {
	path, err := sqlitePath(dsn)
	if err != nil {
		return err
	}

	return migrateUp("migrations/sqlite", "sqlite3://"+path)
}

func ConnectSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	path, err := sqlitePath(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("cant open sqlite database. Err: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cant connect to sqlite database. Err: %w", err)
	}

	return db, nil
}

func ConnectAndMigrateSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	err := MigrateSQLite(dsn)
	if err != nil {
		return nil, err
	}

	return ConnectSQLite(ctx, dsn)
}
