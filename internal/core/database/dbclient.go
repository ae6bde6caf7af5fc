package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/config"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// rebind turns $N placeholders into ?N for sqlite. Queries are written once
// in the postgres form.
func (d dialect) rebind(q string) string {
	if d == dialectSQLite {
		return placeholderRe.ReplaceAllString(q, "?$1")
	}
	return q
}

func (d dialect) schemaFile() string {
	if d == dialectSQLite {
		return "scripts/initdb_sqlite.sql"
	}
	return "scripts/initdb.sql"
}

func (d dialect) metaTableQuery() string {
	if d == dialectSQLite {
		return `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'supastart_meta')`
	}
	return `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'supastart_meta'
		)`
}

func (d dialect) String() string {
	if d == dialectSQLite {
		return "sqlite3"
	}
	return "pgx"
}

// DatabaseClient implements core.DbClient on database/sql for both backends.
type DatabaseClient struct {
	db      *sql.DB
	dialect dialect
}

var _ core.DbClient = (*DatabaseClient)(nil)

// NewDatabaseClient opens the backend named by DATABASE_URL: postgres:// and
// postgresql:// go to pgx, sqlite:// and :memory: go to sqlite3.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	var (
		client *DatabaseClient
		err    error
	)
	switch {
	case strings.HasPrefix(cfg.DatabaseURL, "postgres://"), strings.HasPrefix(cfg.DatabaseURL, "postgresql://"):
		client, err = NewPostgresClient(ctx, cfg.DatabaseURL, cfg.SslCertPath)
	case cfg.DatabaseURL == ":memory:":
		client, err = NewSQLiteClient(ctx, ":memory:")
	case strings.HasPrefix(cfg.DatabaseURL, "sqlite://"):
		client, err = NewSQLiteClient(ctx, strings.TrimPrefix(cfg.DatabaseURL, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", cfg.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) q(query string) string {
	return c.dialect.rebind(query)
}

// withTx runs fn in a transaction and commits when it returns nil.
func (c *DatabaseClient) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]any, error) {
	out := map[string]any{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return out, nil
}
