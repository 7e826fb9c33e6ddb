// =============================================================================
// FILE: internal/indexer/quick.go
// PURPOSE: QuickIndexerJob — indexes videos published since the last
//          quick (or full) index completion, with a 24h lookback
//          margin. Degrades to a full index when no full index has ever
//          completed. Grounded on original_source/server/indexer.py's
//          start_quick_indexer.
// =============================================================================

package indexer

import (
	"context"
	"fmt"
	"time"

	"gbmm/internal/job"
	"gbmm/internal/resource"
	"gbmm/internal/store"
)

// QuickIndexerJob indexes only videos published since the last
// quick-or-full index completion. Implements job.Job, job.Resumer, and
// job.Recoverer.
type QuickIndexerJob struct {
	deps Deps
}

func (j *QuickIndexerJob) Run(ctx context.Context, tok *job.Token) error {
	var degradeToFull bool
	var startTime time.Time

	if err := j.deps.DB.WithSession(ctx, func(s *store.Session) error {
		ss, err := store.GetSystemState(ctx, s)
		if err != nil {
			return err
		}
		if ss.IndexerFullLastUpdate == nil {
			degradeToFull = true
			return nil
		}
		lastUpdate := ss.IndexerFullLastUpdate
		if ss.IndexerQuickLastUpdate != nil && ss.IndexerQuickLastUpdate.After(*lastUpdate) {
			lastUpdate = ss.IndexerQuickLastUpdate
		}
		startTime = lastUpdate.Add(-lookbackMargin)
		return store.SetIndexerQuickState(ctx, s, true, 0, 0)
	}); err != nil {
		return fmt.Errorf("quick_indexer: determine start time: %w", err)
	}

	// Per spec.md §4.F: if a full index has never completed, a quick
	// index run degrades to a full index instead (matches the
	// original's "if state.indexer_full__last_update is None: return
	// Indexer.start_full_indexer(session)").
	if degradeToFull {
		full := &FullIndexerJob{deps: j.deps}
		return full.Run(ctx, tok)
	}

	endTime := time.Now()
	filterValue := startTime.UTC().Format(publishDateFilterLayout) + "|" + endTime.UTC().Format(publishDateFilterLayout)

	r := newVideoSelect(j.deps).Filter("publish_date", filterValue)
	return j.drive(ctx, tok, r)
}

func (j *QuickIndexerJob) Resume(ctx context.Context, tok *job.Token, record *store.JobRecord) error {
	r, err := resource.FromSessionJSON(j.deps.Req, j.deps.BaseURL, j.deps.APIKeyField, j.deps.APIKey, "/videos", record.Data)
	if err != nil {
		return fmt.Errorf("quick_indexer: restore checkpoint: %w", err)
	}
	return j.drive(ctx, tok, r)
}

func (j *QuickIndexerJob) Recover(ctx context.Context, tok *job.Token, record *store.JobRecord) error {
	return j.Resume(ctx, tok, record)
}

func (j *QuickIndexerJob) drive(ctx context.Context, tok *job.Token, r *resource.ResourceSelect) error {
	checkpoint, stopped, err := runPaginatedIndex(ctx, j.deps, r, tok, func(ctx context.Context, pageResults, totalResults int64) error {
		return j.deps.DB.WithSession(ctx, func(s *store.Session) error {
			ss, err := store.GetSystemState(ctx, s)
			if err != nil {
				return err
			}
			return store.SetIndexerQuickState(ctx, s, true, totalResults, ss.IndexerQuickProcessed+pageResults)
		})
	})
	if err != nil {
		_ = j.deps.DB.WithSession(ctx, func(s *store.Session) error {
			ss, ssErr := store.GetSystemState(ctx, s)
			if ssErr != nil {
				return ssErr
			}
			return store.SetIndexerQuickState(ctx, s, false, ss.IndexerQuickTotalResults, ss.IndexerQuickProcessed)
		})
		return err
	}

	if checkpoint != "" {
		return j.deps.Manager.SetData(ctx, tok.UUID(), checkpoint)
	}

	finishedNaturally := !stopped
	return j.deps.DB.WithSession(ctx, func(s *store.Session) error {
		ss, err := store.GetSystemState(ctx, s)
		if err != nil {
			return err
		}
		if err := store.SetIndexerQuickState(ctx, s, false, ss.IndexerQuickTotalResults, ss.IndexerQuickProcessed); err != nil {
			return err
		}
		if finishedNaturally {
			return store.SetIndexerQuickLastUpdate(ctx, s, time.Now())
		}
		return nil
	})
}
