// =============================================================================
// FILE: internal/store/jobs.go
// PURPOSE: Persistence for BackgroundJobRecord / BackgroundJobArchive
//          (spec.md §3), backing internal/job's state machine. The live
//          and archive tables are disjoint per spec: ArchiveJobRecord moves a
//          row atomically inside the caller's transaction.
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"time"
)

// JobState mirrors job.State's integer values without an import cycle
// (internal/job imports internal/store, not the reverse).
type JobState int

const (
	JobNotStarted JobState = iota
	JobRunning
	JobPaused
	JobStopped
	JobComplete
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobNotStarted:
		return "not_started"
	case JobRunning:
		return "running"
	case JobPaused:
		return "paused"
	case JobStopped:
		return "stopped"
	case JobComplete:
		return "complete"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// JobRecord is a persisted background-job handle.
type JobRecord struct {
	UUID                string
	Name                string
	Pauseable           bool
	Recoverable         bool
	State               JobState
	ProgressCurrent     int64
	ProgressDenominator int64
	Data                string
	CreatedTime         time.Time
	UpdatedTime         time.Time
}

// CreateJobRecord inserts a new live job record in NotStarted state.
func CreateJobRecord(ctx context.Context, s *Session, uuid, name string, pauseable, recoverable bool) error {
	now := time.Now().UTC().Format(publishDateLayout)
	_, err := s.Exec(ctx, `INSERT INTO background_jobs (uuid, name, pauseable, recoverable, state, progress_current, progress_denominator, data, created_time, updated_time)
		VALUES (?, ?, ?, ?, ?, 0, 0, '', ?, ?)`, uuid, name, boolToInt(pauseable), boolToInt(recoverable), int(JobNotStarted), now, now)
	return err
}

// GetJobRecord returns the live record for uuid, or sql.ErrNoRows.
func GetJobRecord(ctx context.Context, s *Session, uuid string) (*JobRecord, error) {
	row := s.QueryRow(ctx, `SELECT uuid, name, pauseable, recoverable, state, progress_current, progress_denominator, data, created_time, updated_time
		FROM background_jobs WHERE uuid = ?`, uuid)
	return scanJobRecord(row)
}

// ListJobRecords returns all live records, optionally filtered by name.
func ListJobRecords(ctx context.Context, s *Session, name string) ([]*JobRecord, error) {
	var rows *sql.Rows
	var err error
	if name == "" {
		rows, err = s.Query(ctx, `SELECT uuid, name, pauseable, recoverable, state, progress_current, progress_denominator, data, created_time, updated_time FROM background_jobs`)
	} else {
		rows, err = s.Query(ctx, `SELECT uuid, name, pauseable, recoverable, state, progress_current, progress_denominator, data, created_time, updated_time FROM background_jobs WHERE name = ?`, name)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*JobRecord
	for rows.Next() {
		r, err := scanJobRecordRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanJobRecord(row *sql.Row) (*JobRecord, error) {
	var r JobRecord
	var pauseable, recoverable, state int
	var created, updated string
	if err := row.Scan(&r.UUID, &r.Name, &pauseable, &recoverable, &state, &r.ProgressCurrent, &r.ProgressDenominator, &r.Data, &created, &updated); err != nil {
		return nil, err
	}
	r.Pauseable = pauseable != 0
	r.Recoverable = recoverable != 0
	r.State = JobState(state)
	r.CreatedTime = parsePublishDate(created)
	r.UpdatedTime = parsePublishDate(updated)
	return &r, nil
}

func scanJobRecordRows(rows *sql.Rows) (*JobRecord, error) {
	var r JobRecord
	var pauseable, recoverable, state int
	var created, updated string
	if err := rows.Scan(&r.UUID, &r.Name, &pauseable, &recoverable, &state, &r.ProgressCurrent, &r.ProgressDenominator, &r.Data, &created, &updated); err != nil {
		return nil, err
	}
	r.Pauseable = pauseable != 0
	r.Recoverable = recoverable != 0
	r.State = JobState(state)
	r.CreatedTime = parsePublishDate(created)
	r.UpdatedTime = parsePublishDate(updated)
	return &r, nil
}

// SetJobState updates state and bumps updated_time.
func SetJobState(ctx context.Context, s *Session, uuid string, state JobState) error {
	_, err := s.Exec(ctx, `UPDATE background_jobs SET state = ?, updated_time = ? WHERE uuid = ?`,
		int(state), time.Now().UTC().Format(publishDateLayout), uuid)
	return err
}

// SetJobProgress updates the progress counters and bumps updated_time.
func SetJobProgress(ctx context.Context, s *Session, uuid string, current, denominator int64) error {
	_, err := s.Exec(ctx, `UPDATE background_jobs SET progress_current = ?, progress_denominator = ?, updated_time = ? WHERE uuid = ?`,
		current, denominator, time.Now().UTC().Format(publishDateLayout), uuid)
	return err
}

// SetJobData stores the job's opaque checkpoint data (e.g. a serialized
// ResourceSelect session for the indexer jobs).
func SetJobData(ctx context.Context, s *Session, uuid, data string) error {
	_, err := s.Exec(ctx, `UPDATE background_jobs SET data = ?, updated_time = ? WHERE uuid = ?`,
		data, time.Now().UTC().Format(publishDateLayout), uuid)
	return err
}

// ArchiveJobRecord moves a live record to the archive table atomically
// with its final state, per spec.md §4.E's archival rule. After this
// call, the live row no longer exists.
func ArchiveJobRecord(ctx context.Context, s *Session, uuid string, finalState JobState) error {
	rec, err := GetJobRecord(ctx, s, uuid)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(publishDateLayout)
	if _, err := s.Exec(ctx, `INSERT INTO background_job_archives
		(uuid, name, pauseable, recoverable, state, progress_current, progress_denominator, data, created_time, archived_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UUID, rec.Name, boolToInt(rec.Pauseable), boolToInt(rec.Recoverable), int(finalState),
		rec.ProgressCurrent, rec.ProgressDenominator, rec.Data, rec.CreatedTime.Format(publishDateLayout), now); err != nil {
		return err
	}
	_, err = s.Exec(ctx, `DELETE FROM background_jobs WHERE uuid = ?`, uuid)
	return err
}
