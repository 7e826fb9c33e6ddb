// =============================================================================
// FILE: internal/store/db.go
// PURPOSE: SQLite connection management for the catalog database. Opens a
//          single pure-Go (modernc.org/sqlite, no cgo) connection in WAL
//          mode with a single-writer discipline, and applies the schema.
//          Ports the shape of the teacher's internal/db/db.go, collapsed
//          from a per-username connection cache to this service's single
//          catalog database.
// =============================================================================

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the catalog database handle.
type DB struct {
	sql  *sql.DB
	Path string
}

// Open opens (creating if necessary) the catalog database at dbPath, in
// WAL mode with a busy timeout and foreign keys enabled, and applies the
// schema. A single writer connection is enforced via SetMaxOpenConns(1),
// matching the teacher's internal/db/db.go discipline for SQLite under
// concurrent goroutines.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create db directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", dbPath)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: ping %s: %w", dbPath, err)
	}

	if err := applySchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &DB{sql: sqlDB, Path: dbPath}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Raw exposes the underlying *sql.DB for components (e.g. admin backup/
// merge commands) that need to operate outside a Session.
func (d *DB) Raw() *sql.DB {
	return d.sql
}
