// =============================================================================
// FILE: internal/store/download.go
// PURPOSE: Download CRUD and state transitions (spec.md §4.A/§4.G), with
//          lifecycle hooks fired on insert/update so the Messenger can be
//          wired in without the store importing it directly (the source's
//          SQLAlchemy event.listens_for pattern, reimplemented as an
//          explicit Go callback since Go has no ORM event system).
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gbmm/internal/model"
)

// EventType mirrors messenger.MessageEventType without importing the
// messenger package, keeping Store dependency-free of Messenger.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
)

// DownloadHook is called after a Download row is created or mutated.
type DownloadHook func(event EventType, downloadID int64)

var downloadHook DownloadHook

// SetDownloadHook registers the callback fired on Download lifecycle
// events. Call once during app wiring, before any Download mutation.
func SetDownloadHook(h DownloadHook) {
	downloadHook = h
}

func fireDownloadHook(event EventType, id int64) {
	if downloadHook != nil {
		downloadHook(event, id)
	}
}

// CreateDownload inserts a new Download row in Queued state.
func CreateDownload(ctx context.Context, s *Session, itemName string, objID int64, field, url, name string) (*model.Download, error) {
	now := time.Now().UTC()
	res, err := s.Exec(ctx, `INSERT INTO downloads (name, obj_item_name, obj_id, obj_url_field, status, created_time, url, downloaded_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		name, itemName, objID, field, int(model.DownloadQueued), now.Format(publishDateLayout), url)
	if err != nil {
		return nil, fmt.Errorf("store: insert download: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	d, err := GetDownload(ctx, s, id)
	if err != nil {
		return nil, err
	}
	fireDownloadHook(EventCreated, id)
	return d, nil
}

// GetDownload returns the download with the given id, or sql.ErrNoRows.
func GetDownload(ctx context.Context, s *Session, id int64) (*model.Download, error) {
	row := s.QueryRow(ctx, `SELECT id, name, obj_item_name, obj_id, obj_url_field, file_id, status, failed_reason,
		created_time, start_time, finish_time, url, size_bytes, downloaded_bytes, content_type, response_headers
		FROM downloads WHERE id = ?`, id)
	return scanDownload(row)
}

func scanDownload(row *sql.Row) (*model.Download, error) {
	var d model.Download
	var fileID sql.NullInt64
	var status int
	var createdTime string
	var startTime, finishTime sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &d.ObjItemName, &d.ObjID, &d.ObjURLField, &fileID, &status, &d.FailedReason,
		&createdTime, &startTime, &finishTime, &d.URL, &d.SizeBytes, &d.DownloadedBytes, &d.ContentType, &d.ResponseHeaders); err != nil {
		return nil, err
	}
	d.Status = model.DownloadStatus(status)
	d.CreatedTime = parsePublishDate(createdTime)
	if fileID.Valid {
		d.FileID = &fileID.Int64
	}
	if startTime.Valid {
		t := parsePublishDate(startTime.String)
		d.StartTime = &t
	}
	if finishTime.Valid {
		t := parsePublishDate(finishTime.String)
		d.FinishTime = &t
	}
	return &d, nil
}

// PeekNextDownload returns the next download the downloader should
// process: any InProgress row first (ordered by created_time ascending, so
// a restart re-enters the oldest in-flight row first), else the oldest
// Queued row. Returns sql.ErrNoRows if nothing is pending.
func PeekNextDownload(ctx context.Context, s *Session) (*model.Download, error) {
	row := s.QueryRow(ctx, `SELECT id, name, obj_item_name, obj_id, obj_url_field, file_id, status, failed_reason,
		created_time, start_time, finish_time, url, size_bytes, downloaded_bytes, content_type, response_headers
		FROM downloads WHERE status = ? ORDER BY created_time ASC LIMIT 1`, int(model.DownloadInProgress))
	d, err := scanDownload(row)
	if err == nil {
		return d, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	row = s.QueryRow(ctx, `SELECT id, name, obj_item_name, obj_id, obj_url_field, file_id, status, failed_reason,
		created_time, start_time, finish_time, url, size_bytes, downloaded_bytes, content_type, response_headers
		FROM downloads WHERE status = ? ORDER BY created_time ASC LIMIT 1`, int(model.DownloadQueued))
	return scanDownload(row)
}

// MarkInProgress transitions a download to InProgress and stamps start_time.
// On restart this also resets downloaded_bytes to 0, since the downloader
// always restarts a partial transfer from byte zero (no Range resume).
func MarkInProgress(ctx context.Context, s *Session, id int64) error {
	now := time.Now().UTC()
	_, err := s.Exec(ctx, `UPDATE downloads SET status = ?, start_time = ?, downloaded_bytes = 0 WHERE id = ?`,
		int(model.DownloadInProgress), now.Format(publishDateLayout), id)
	if err != nil {
		return err
	}
	fireDownloadHook(EventModified, id)
	return nil
}

// SetDownloadResponseMeta records size/content-type/raw headers once the
// upstream response arrives.
func SetDownloadResponseMeta(ctx context.Context, s *Session, id, sizeBytes int64, contentType, rawHeaders string) error {
	_, err := s.Exec(ctx, `UPDATE downloads SET size_bytes = ?, content_type = ?, response_headers = ? WHERE id = ?`,
		sizeBytes, contentType, rawHeaders, id)
	if err != nil {
		return err
	}
	fireDownloadHook(EventModified, id)
	return nil
}

// IncrementDownloadedBytes advances the running byte counter by n and
// commits, called once per streamed chunk.
func IncrementDownloadedBytes(ctx context.Context, s *Session, id, n int64) error {
	_, err := s.Exec(ctx, `UPDATE downloads SET downloaded_bytes = downloaded_bytes + ? WHERE id = ?`, n, id)
	if err != nil {
		return err
	}
	fireDownloadHook(EventModified, id)
	return nil
}

// AttachDownloadFile associates a File with a Download; the downloader
// calls it before streaming starts.
func AttachDownloadFile(ctx context.Context, s *Session, id, fileID int64) error {
	_, err := s.Exec(ctx, `UPDATE downloads SET file_id = ? WHERE id = ?`, fileID, id)
	return err
}

// CompleteDownload marks a download Complete and stamps finish_time.
func CompleteDownload(ctx context.Context, s *Session, id int64) error {
	now := time.Now().UTC()
	_, err := s.Exec(ctx, `UPDATE downloads SET status = ?, finish_time = ? WHERE id = ?`,
		int(model.DownloadComplete), now.Format(publishDateLayout), id)
	if err != nil {
		return err
	}
	fireDownloadHook(EventModified, id)
	return nil
}

// FailDownload marks a download Failed with a human-readable reason,
// per spec.md §4.G's failure taxonomy.
func FailDownload(ctx context.Context, s *Session, id int64, reason string) error {
	now := time.Now().UTC()
	_, err := s.Exec(ctx, `UPDATE downloads SET status = ?, failed_reason = ?, finish_time = ? WHERE id = ?`,
		int(model.DownloadFailed), reason, now.Format(publishDateLayout), id)
	if err != nil {
		return err
	}
	fireDownloadHook(EventModified, id)
	return nil
}

// ListDownloads returns downloads filtered by optional item name / obj id /
// status, newest first, for the /api/downloads/get HTTP handler.
func ListDownloads(ctx context.Context, s *Session, itemName string, objID *int64, status *model.DownloadStatus, limit, offset int) ([]*model.Download, error) {
	query := `SELECT id, name, obj_item_name, obj_id, obj_url_field, file_id, status, failed_reason,
		created_time, start_time, finish_time, url, size_bytes, downloaded_bytes, content_type, response_headers
		FROM downloads WHERE 1=1`
	var args []any
	if itemName != "" {
		query += " AND obj_item_name = ?"
		args = append(args, itemName)
	}
	if objID != nil {
		query += " AND obj_id = ?"
		args = append(args, *objID)
	}
	if status != nil {
		query += " AND status = ?"
		args = append(args, int(*status))
	}
	query += " ORDER BY created_time DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Download
	for rows.Next() {
		var d model.Download
		var fileID sql.NullInt64
		var status int
		var createdTime string
		var startTime, finishTime sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.ObjItemName, &d.ObjID, &d.ObjURLField, &fileID, &status, &d.FailedReason,
			&createdTime, &startTime, &finishTime, &d.URL, &d.SizeBytes, &d.DownloadedBytes, &d.ContentType, &d.ResponseHeaders); err != nil {
			return nil, err
		}
		d.Status = model.DownloadStatus(status)
		d.CreatedTime = parsePublishDate(createdTime)
		if fileID.Valid {
			d.FileID = &fileID.Int64
		}
		if startTime.Valid {
			t := parsePublishDate(startTime.String)
			d.StartTime = &t
		}
		if finishTime.Valid {
			t := parsePublishDate(finishTime.String)
			d.FinishTime = &t
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
