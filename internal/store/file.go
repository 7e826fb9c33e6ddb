// =============================================================================
// FILE: internal/store/file.go
// PURPOSE: Deterministic File path computation and find-or-create. Ports
//          original_source's File.__build_destination_path exactly,
//          including its zero-padding-to-5-digits of the numeric id before
//          slicing the nested [0:2]/[0:4] directory levels.
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// urlFilename returns the last path segment of a URL, matching
// original_source's File.__get_url_file_part (`url.split('/').pop()`).
func urlFilename(url string) string {
	url = strings.TrimSuffix(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

// FilePath computes the deterministic on-disk path for a (kind, id, field)
// triple and its source URL, per spec.md §3:
// <root>/<kind>/<id[0:2]>/<id[0:4]>/<id>/<id>_<field>_<url-filename>
//
// The nested directory levels slice the zero-padded-to-5-digits decimal id
// string (original_source zfill(5)), not the raw id — an id of 7 still
// nests under "00/0000/00007", not "7/7/7".
func FilePath(root, kind string, id int64, field, sourceURL string) string {
	dirID := strconv.FormatInt(id, 10)
	if len(dirID) < 5 {
		dirID = strings.Repeat("0", 5-len(dirID)) + dirID
	}
	filename := fmt.Sprintf("%s_%s_%s", dirID, field, urlFilename(sourceURL))
	return path.Join(root, kind, dirID[:2], dirID[:4], dirID, filename)
}

// GetFile returns the File row satisfying (itemName, objID, field), or
// sql.ErrNoRows.
func GetFile(ctx context.Context, s *Session, itemName string, objID int64, field string) (*Row, error) {
	row := s.QueryRow(ctx, `SELECT id, name, obj_item_name, obj_id, obj_url_field, path, size_bytes, content_type
		FROM files WHERE obj_item_name = ? AND obj_id = ? AND obj_url_field = ?`, itemName, objID, field)
	return scanFileRow(row)
}

// Row is the File entity as persisted (named Row to avoid colliding with
// model.File when both are imported under their package names elsewhere).
type Row struct {
	ID          int64
	Name        string
	ObjItemName string
	ObjID       int64
	ObjURLField string
	Path        string
	SizeBytes   int64
	ContentType string
}

func scanFileRow(row *sql.Row) (*Row, error) {
	var f Row
	if err := row.Scan(&f.ID, &f.Name, &f.ObjItemName, &f.ObjID, &f.ObjURLField, &f.Path, &f.SizeBytes, &f.ContentType); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindOrCreateFile returns the existing File row for (itemName, objID,
// field) if present, otherwise inserts one at the given path.
func FindOrCreateFile(ctx context.Context, s *Session, itemName string, objID int64, field, filePath, name string) (*Row, error) {
	if existing, err := GetFile(ctx, s, itemName, objID, field); err == nil {
		return existing, nil
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("store: get file: %w", err)
	}

	_, err := s.Exec(ctx, `INSERT INTO files (name, obj_item_name, obj_id, obj_url_field, path, size_bytes, content_type)
		VALUES (?, ?, ?, ?, ?, 0, '')`, name, itemName, objID, field, filePath)
	if err != nil {
		return nil, fmt.Errorf("store: insert file: %w", err)
	}
	return GetFile(ctx, s, itemName, objID, field)
}

// UpdateFileStats sets the size and content type of a File once known.
func UpdateFileStats(ctx context.Context, s *Session, fileID, sizeBytes int64, contentType string) error {
	_, err := s.Exec(ctx, `UPDATE files SET size_bytes = ?, content_type = ? WHERE id = ?`, sizeBytes, contentType, fileID)
	return err
}
