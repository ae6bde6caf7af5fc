package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// NewSQLiteClient opens a sqlite database for local runs and tests.
// ":memory:" gives a private in-memory database.
func NewSQLiteClient(ctx context.Context, path string) (*DatabaseClient, error) {
	dsn := path
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// sqlite has a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, dialectSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db, dialect: dialectSQLite}, nil
}
