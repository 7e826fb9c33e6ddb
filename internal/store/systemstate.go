// =============================================================================
// FILE: internal/store/systemstate.go
// PURPOSE: SystemState singleton (spec.md §3): schema version, first-time-
//          setup flags, per-indexer last-run timestamps and in-progress
//          counters. Ported from original_source's SystemStateStorage plus
//          the indexer_{full,quick}__* attributes server/indexer.py reads.
// =============================================================================

package store

import (
	"context"
	"time"
)

// SystemState is the singleton row (id=1) tracking indexer state.
type SystemState struct {
	IndexerFullLastUpdate    *time.Time
	IndexerQuickLastUpdate   *time.Time
	IndexerFullInProgress    bool
	IndexerQuickInProgress   bool
	IndexerFullTotalResults  int64
	IndexerFullProcessed     int64
	IndexerQuickTotalResults int64
	IndexerQuickProcessed    int64
	DBVersion                int
	FirstTimeSetupInitiated  bool
	FirstTimeSetupComplete   bool
}

// GetSystemState reads the singleton row.
func GetSystemState(ctx context.Context, s *Session) (*SystemState, error) {
	row := s.QueryRow(ctx, `SELECT indexer_full_last_update, indexer_quick_last_update,
		indexer_full_in_progress, indexer_quick_in_progress,
		indexer_full_total_results, indexer_full_processed_results,
		indexer_quick_total_results, indexer_quick_processed_results,
		db_version, first_time_setup_initiated, first_time_setup_complete
		FROM system_state WHERE id = 1`)

	var fullUpdate, quickUpdate *string
	var ss SystemState
	var fullInProgress, quickInProgress, setupInit, setupComplete int
	if err := row.Scan(&fullUpdate, &quickUpdate, &fullInProgress, &quickInProgress,
		&ss.IndexerFullTotalResults, &ss.IndexerFullProcessed,
		&ss.IndexerQuickTotalResults, &ss.IndexerQuickProcessed,
		&ss.DBVersion, &setupInit, &setupComplete); err != nil {
		return nil, err
	}
	if fullUpdate != nil && *fullUpdate != "" {
		t := parsePublishDate(*fullUpdate)
		ss.IndexerFullLastUpdate = &t
	}
	if quickUpdate != nil && *quickUpdate != "" {
		t := parsePublishDate(*quickUpdate)
		ss.IndexerQuickLastUpdate = &t
	}
	ss.IndexerFullInProgress = fullInProgress != 0
	ss.IndexerQuickInProgress = quickInProgress != 0
	ss.FirstTimeSetupInitiated = setupInit != 0
	ss.FirstTimeSetupComplete = setupComplete != 0
	return &ss, nil
}

// SetIndexerFullState updates the full-indexer progress/state fields.
func SetIndexerFullState(ctx context.Context, s *Session, inProgress bool, total, processed int64) error {
	_, err := s.Exec(ctx, `UPDATE system_state SET indexer_full_in_progress = ?, indexer_full_total_results = ?, indexer_full_processed_results = ? WHERE id = 1`,
		boolToInt(inProgress), total, processed)
	return err
}

// SetIndexerFullLastUpdate stamps the full-indexer completion timestamp.
func SetIndexerFullLastUpdate(ctx context.Context, s *Session, t time.Time) error {
	_, err := s.Exec(ctx, `UPDATE system_state SET indexer_full_last_update = ? WHERE id = 1`, t.UTC().Format(publishDateLayout))
	return err
}

// SetIndexerQuickState updates the quick-indexer progress/state fields.
func SetIndexerQuickState(ctx context.Context, s *Session, inProgress bool, total, processed int64) error {
	_, err := s.Exec(ctx, `UPDATE system_state SET indexer_quick_in_progress = ?, indexer_quick_total_results = ?, indexer_quick_processed_results = ? WHERE id = 1`,
		boolToInt(inProgress), total, processed)
	return err
}

// SetIndexerQuickLastUpdate stamps the quick-indexer completion timestamp.
func SetIndexerQuickLastUpdate(ctx context.Context, s *Session, t time.Time) error {
	_, err := s.Exec(ctx, `UPDATE system_state SET indexer_quick_last_update = ? WHERE id = 1`, t.UTC().Format(publishDateLayout))
	return err
}

// SetFirstTimeSetup updates the first-time-setup flags.
func SetFirstTimeSetup(ctx context.Context, s *Session, initiated, complete bool) error {
	_, err := s.Exec(ctx, `UPDATE system_state SET first_time_setup_initiated = ?, first_time_setup_complete = ? WHERE id = 1`,
		boolToInt(initiated), boolToInt(complete))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
