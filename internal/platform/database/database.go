// Package database opens the SQL backends and applies the embedded schema.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"recordshare/internal/platform/config"
)

//go:embed migrations
var migrations embed.FS

// Open connects to the configured SQL backend and verifies the connection.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	driverName, err := sqlDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// sqliteBusyTimeoutMillis bounds how long a writer waits for the database
// lock before the driver reports "database is locked".
const sqliteBusyTimeoutMillis = 5000

// sqliteDSN makes every transaction take the write lock at BEGIN and wait for
// it, unless the DSN already chooses otherwise. Deferred transactions would
// let two appends read the same ledger tail and fail one of them on upgrade.
func sqliteDSN(dsn string) string {
	_, query, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		params = url.Values{}
	}
	var extra []string
	if !params.Has("_txlock") {
		extra = append(extra, "_txlock=immediate")
	}
	if !params.Has("_busy_timeout") && !params.Has("_timeout") {
		extra = append(extra, fmt.Sprintf("_busy_timeout=%d", sqliteBusyTimeoutMillis))
	}
	if len(extra) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(extra, "&")
}

func sqlDriver(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return "postgres", nil
	case config.DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("driver %q has no SQL backend", driver)
	}
}

// Migrate applies every embedded migration for driver that is not yet
// recorded in schema_migrations, in file name order. It returns the names it
// applied.
func Migrate(ctx context.Context, db *sql.DB, driver string) ([]string, error) {
	if _, err := sqlDriver(driver); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY
		)
	`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := Pending(ctx, db, driver)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := apply(ctx, db, driver, name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// Pending lists embedded migrations for driver that have not been applied.
// schema_migrations must exist.
func Pending(ctx context.Context, db *sql.DB, driver string) ([]string, error) {
	all, err := fs.Glob(migrations, path.Join("migrations", driver, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(all)

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}

	var pending []string
	for _, file := range all {
		name := path.Base(file)
		if !applied[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

func apply(ctx context.Context, db *sql.DB, driver, name string) error {
	body, err := migrations.ReadFile(path.Join("migrations", driver, name))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range splitStatements(string(body)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	return tx.Commit()
}

// splitStatements splits on semicolons. Migrations hold plain DDL without
// procedural bodies, so no quoting rules are needed.
func splitStatements(body string) []string {
	var out []string
	for _, stmt := range strings.Split(body, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
