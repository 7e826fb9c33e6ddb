// =============================================================================
// FILE: internal/indexer/indexer.go
// PURPOSE: FullIndexerJob and QuickIndexerJob (spec.md §4.F), both
//          registered with internal/job as Pauseable and Recoverable.
//          Grounded line-for-line on original_source's
//          server/indexer.py's start_full_indexer/start_quick_indexer/
//          __run control flow, redesigned per spec.md §9 onto the
//          job framework's cooperative Token instead of a class-level
//          mutable _active/_refresh_stop_requested pair.
// =============================================================================

package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gbmm/internal/job"
	"gbmm/internal/messenger"
	"gbmm/internal/requester"
	"gbmm/internal/resource"
	"gbmm/internal/store"
)

// SubjectVideo identifies a video entity to internal/messenger subscribers.
const SubjectVideo = messenger.SubjectType("video")

// Tags under which the two indexer jobs are registered with internal/job.
const (
	TagFull  = "full_indexer"
	TagQuick = "quick_indexer"

	// exclusivityGroup is shared by both tags so job.Manager.Start
	// refuses a second indexer while one is Running or Paused,
	// matching the original's Indexer.is_running check.
	exclusivityGroup = "indexer"

	pageLimit = 100

	// lookbackMargin is the 24-hour safety window applied to quick
	// indexing's start time, matching the original's timedelta(days=-1)
	// comment about race conditions between indexing and publish times.
	lookbackMargin = 24 * time.Hour
)

// publishDateFilterLayout matches the catalog API's publish_date filter
// format, the same layout the store package uses to parse publish dates.
const publishDateFilterLayout = "2006-01-02 15:04:05"

// Deps bundles the collaborators both indexer jobs need. Held by value in
// each job instance since Factory produces a fresh instance per run.
type Deps struct {
	DB          *store.DB
	Req         *requester.Requester
	Manager     *job.Manager
	Messenger   *messenger.Messenger
	BaseURL     string
	APIKeyField string
	APIKey      string
	Logger      *slog.Logger
}

// Register registers both indexer job types with internal/job. Call once
// at application startup before job.Manager.Startup runs its recovery
// scan.
func Register(deps Deps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	job.Register(TagFull, func() job.Job { return &FullIndexerJob{deps: deps} }, exclusivityGroup)
	job.Register(TagQuick, func() job.Job { return &QuickIndexerJob{deps: deps} }, exclusivityGroup)
}

func newVideoSelect(deps Deps) *resource.ResourceSelect {
	return resource.New(deps.Req, deps.BaseURL, deps.APIKeyField, deps.APIKey, "video", "/videos").
		Sort("id", resource.Ascending).
		Limit(pageLimit).
		Priority(requester.Low)
}

// runPaginatedIndex drives r to exhaustion (or until the job is asked to
// pause/stop), merging each page of videos into the store and reporting
// progress through manager. onPage lets each concrete job bump the
// correct SystemState counters per page. Returns (pausedCheckpoint,
// stopped, err): at most one of pausedCheckpoint/stopped is set when err
// is nil.
func runPaginatedIndex(ctx context.Context, deps Deps, r *resource.ResourceSelect, tok *job.Token, onPage func(ctx context.Context, pageResults, totalResults int64) error) (checkpoint string, stopped bool, err error) {
	var processed int64
	for {
		if r.IsLastPage() && r.TotalResults() > 0 {
			return "", false, nil
		}
		if tok.ShouldStop() {
			tok.CompleteStop()
			return "", true, nil
		}
		if tok.ShouldPause() {
			data, jsonErr := r.ToSessionJSON()
			if jsonErr != nil {
				return "", false, fmt.Errorf("indexer: checkpoint: %w", jsonErr)
			}
			tok.CompletePause()
			return data, false, nil
		}

		raw, nextErr := r.Next(ctx)
		if nextErr == resource.ErrEndOfResults {
			return "", false, nil
		}
		if nextErr != nil {
			return "", false, fmt.Errorf("indexer: fetch page: %w", nextErr)
		}

		nodes, decodeErr := store.DecodeVideoList(raw)
		if decodeErr != nil {
			return "", false, fmt.Errorf("indexer: decode page: %w", decodeErr)
		}

		var created []int64
		if err := deps.DB.WithSession(ctx, func(s *store.Session) error {
			var err error
			_, created, err = store.MergeVideoBatchCreated(ctx, s, nodes)
			return err
		}); err != nil {
			return "", false, fmt.Errorf("indexer: merge page: %w", err)
		}
		if deps.Messenger != nil {
			for _, id := range created {
				deps.Messenger.Publish(messenger.Created, SubjectVideo, id)
			}
		}

		processed += int64(r.PageResults())
		if err := onPage(ctx, int64(r.PageResults()), int64(r.TotalResults())); err != nil {
			return "", false, err
		}
		if err := deps.Manager.SetProgress(ctx, tok.UUID(), processed, int64(r.TotalResults())); err != nil {
			deps.Logger.Warn("indexer: failed to persist progress", "error", err)
		}
	}
}
