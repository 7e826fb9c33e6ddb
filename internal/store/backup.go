// =============================================================================
// FILE: internal/store/backup.go
// PURPOSE: Database backup and cross-database merge, adapted from the
//          teacher's internal/db/backup.go and internal/db/merge.go. Kept
//          as an admin CLI operation (`gbmm db backup`/`gbmm db merge`)
//          for restoring from or reconciling with a mirrored catalog
//          export, even though spec.md doesn't require multi-profile
//          databases — the teacher's generic row-merge machinery
//          generalizes cleanly to this domain's tables.
// =============================================================================

package store

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Backup creates a timestamped copy of the database file (plus its -wal/
// -shm sidecars, best effort) alongside dbPath.
func Backup(dbPath string) (string, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("store: database file does not exist: %s", dbPath)
	}

	dir := filepath.Dir(dbPath)
	base := filepath.Base(dbPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	ts := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_backup_%s%s", name, ts, ext))

	if err := copyFile(dbPath, backupPath); err != nil {
		return "", fmt.Errorf("store: create backup: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		src := dbPath + suffix
		if _, err := os.Stat(src); err == nil {
			_ = copyFile(src, backupPath+suffix)
		}
	}
	return backupPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// MergeResult tallies the rows merged per table.
type MergeResult struct {
	VideosMerged     int64
	ShowsMerged      int64
	CategoriesMerged int64
	ImagesMerged     int64
	FilesMerged      int64
	DownloadsMerged  int64
}

// MergeDatabases merges every row from src into dst that doesn't already
// exist (by primary key), backing up dst first. Mirrors the teacher's
// internal/db/merge.go generic mergeTable approach, applied to this
// domain's tables instead of OF posts/messages/media.
func MergeDatabases(src, dst *DB) (*MergeResult, error) {
	if _, err := Backup(dst.Path); err != nil {
		return nil, fmt.Errorf("store: backup before merge: %w", err)
	}

	tx, err := dst.sql.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &MergeResult{}
	tables := []struct {
		name    string
		counter *int64
	}{
		{"video_shows", &result.ShowsMerged},
		{"video_categories", &result.CategoriesMerged},
		{"images", &result.ImagesMerged},
		{"videos", &result.VideosMerged},
		{"files", &result.FilesMerged},
		{"downloads", &result.DownloadsMerged},
	}
	for _, t := range tables {
		n, err := mergeTable(src.sql, tx, t.name)
		if err != nil {
			return nil, fmt.Errorf("store: merge table %s: %w", t.name, err)
		}
		*t.counter = n
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// mergeTable copies every row of table from srcDB into dstTx via
// INSERT OR IGNORE, relying on each table's primary key / unique
// constraints to skip rows that already exist.
func mergeTable(srcDB *sql.DB, dstTx *sql.Tx, table string) (int64, error) {
	rows, err := srcDB.Query("SELECT * FROM " + table)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	placeholders := ""
	for i := range cols {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
	}
	insertSQL := fmt.Sprintf("INSERT OR IGNORE INTO %s VALUES (%s)", table, placeholders)

	var merged int64
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return merged, err
		}

		res, err := dstTx.Exec(insertSQL, values...)
		if err != nil {
			return merged, err
		}
		n, _ := res.RowsAffected()
		merged += n
	}
	return merged, rows.Err()
}
