// =============================================================================
// FILE: internal/store/session.go
// PURPOSE: Transactional Session abstraction with explicit begin/commit/
//          rollback, per spec.md §4.A. Generalizes the teacher's
//          internal/db/wrapper.go WithTx helper into an explicit session
//          object threaded through the Requester/Resource/Job/Indexer/
//          Downloader/HTTP layers.
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Session wraps a single SQLite transaction. All entity merges, Download
// mutations, and job-record writes happen inside one.
type Session struct {
	tx     *sql.Tx
	db     *DB
	done   bool
}

// Begin starts a new Session (a new *sql.Tx) against db.
func (d *DB) Begin(ctx context.Context) (*Session, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	return &Session{tx: tx, db: d}, nil
}

// WithSession opens a Session, runs fn, and commits on success or rolls
// back on error/panic. This is the primary entry point callers should use.
func (d *DB) WithSession(ctx context.Context, fn func(s *Session) error) error {
	s, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if !s.done {
			_ = s.Rollback()
		}
	}()

	if err := fn(s); err != nil {
		_ = s.Rollback()
		return err
	}
	return s.Commit()
}

// Commit commits the underlying transaction.
func (s *Session) Commit() error {
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Rollback rolls back the underlying transaction. Safe to call after a
// successful Commit (no-op).
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("store: rollback: %w", err)
	}
	return nil
}

// Exec runs a statement within the session's transaction.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

// QueryRow runs a single-row query within the session's transaction.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}

// Query runs a query within the session's transaction.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.tx.QueryContext(ctx, query, args...)
}
