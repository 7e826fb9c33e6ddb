// =============================================================================
// FILE: internal/indexer/full.go
// PURPOSE: FullIndexerJob — crawls every video in id order. Grounded on
//          original_source/server/indexer.py's start_full_indexer /
//          __run_full_index_wrap / __run.
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

// FullIndexerJob crawls the entire video collection, id ascending,
// merging every page into the store. Implements job.Job, job.Resumer,
// and job.Recoverer, so Register derives Pauseable=true,
// Recoverable=true.
type FullIndexerJob struct {
	deps Deps
}

func (j *FullIndexerJob) Run(ctx context.Context, tok *job.Token) error {
	if err := j.deps.DB.WithSession(ctx, func(s *store.Session) error {
		return store.SetIndexerFullState(ctx, s, true, 0, 0)
	}); err != nil {
		return fmt.Errorf("full_indexer: set initial state: %w", err)
	}

	r := newVideoSelect(j.deps)
	return j.drive(ctx, tok, r)
}

func (j *FullIndexerJob) Resume(ctx context.Context, tok *job.Token, record *store.JobRecord) error {
	r, err := resource.FromSessionJSON(j.deps.Req, j.deps.BaseURL, j.deps.APIKeyField, j.deps.APIKey, "/videos", record.Data)
	if err != nil {
		return fmt.Errorf("full_indexer: restore checkpoint: %w", err)
	}
	return j.drive(ctx, tok, r)
}

func (j *FullIndexerJob) Recover(ctx context.Context, tok *job.Token, record *store.JobRecord) error {
	return j.Resume(ctx, tok, record)
}

func (j *FullIndexerJob) drive(ctx context.Context, tok *job.Token, r *resource.ResourceSelect) error {
	checkpoint, stopped, err := runPaginatedIndex(ctx, j.deps, r, tok, func(ctx context.Context, pageResults, totalResults int64) error {
		return j.deps.DB.WithSession(ctx, func(s *store.Session) error {
			ss, err := store.GetSystemState(ctx, s)
			if err != nil {
				return err
			}
			return store.SetIndexerFullState(ctx, s, true, totalResults, ss.IndexerFullProcessed+pageResults)
		})
	})
	if err != nil {
		_ = j.deps.DB.WithSession(ctx, func(s *store.Session) error {
			ss, ssErr := store.GetSystemState(ctx, s)
			if ssErr != nil {
				return ssErr
			}
			return store.SetIndexerFullState(ctx, s, false, ss.IndexerFullTotalResults, ss.IndexerFullProcessed)
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
		if err := store.SetIndexerFullState(ctx, s, false, ss.IndexerFullTotalResults, ss.IndexerFullProcessed); err != nil {
			return err
		}
		if finishedNaturally {
			return store.SetIndexerFullLastUpdate(ctx, s, time.Now())
		}
		return nil
	})
}
