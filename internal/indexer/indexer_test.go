// =============================================================================
// FILE: internal/indexer/indexer_test.go
// PURPOSE: Exercises the full-index crawl and quick-indexer's
//          degrade-to-full rule (spec.md §8).
// =============================================================================

package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"gbmm/internal/job"
	"gbmm/internal/requester"
	"gbmm/internal/store"
)

func videoPageXML(startID, count, totalResults int) string {
	var items string
	for i := 0; i < count; i++ {
		id := startID + i
		items += fmt.Sprintf(`<video><id>%d</id><name>Video %d</name><publish_date>2024-01-01 00:00:00</publish_date></video>`, id, id)
	}
	return `<?xml version="1.0"?><response><error>OK</error><limit>100</limit><offset>` + strconv.Itoa(startID-1) + `</offset>` +
		`<number_of_page_results>` + strconv.Itoa(count) + `</number_of_page_results>` +
		`<number_of_total_results>` + strconv.Itoa(totalResults) + `</number_of_total_results>` +
		`<status_code>1</status_code><version>1.0</version><results>` + items + `</results></response>`
}

func newTestDeps(t *testing.T, handler http.HandlerFunc) Deps {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	req := requester.New(srv.Client(), "gbmm-test/1.0", nil)
	mgr := job.NewManager(db, nil)

	return Deps{DB: db, Req: req, Manager: mgr, BaseURL: srv.URL, APIKeyField: "api_key", APIKey: "testkey"}
}

func TestFullIndexerCrawlsAllPages(t *testing.T) {
	var calls atomic.Int32
	deps := newTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.Write([]byte(videoPageXML(1, 2, 3)))
		} else {
			w.Write([]byte(videoPageXML(3, 1, 3)))
		}
	})
	Register(deps)

	id, err := deps.Manager.Start(context.Background(), TagFull)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		rec, err := deps.Manager.Get(context.Background(), id)
		if err == nil && (rec.State == job.Complete || rec.State == job.Failed) {
			if rec.State == job.Failed {
				t.Fatalf("full indexer job failed")
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("full indexer job never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ctx := context.Background()
	err = deps.DB.WithSession(ctx, func(s *store.Session) error {
		for _, id := range []int64{1, 2, 3} {
			if _, err := store.GetVideo(ctx, s, id); err != nil {
				return fmt.Errorf("video %d not merged: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify merged videos: %v", err)
	}
}

func TestQuickIndexerDegradesToFullWithoutPriorFullRun(t *testing.T) {
	var sawFilter atomic.Bool
	deps := newTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("publish_date") != "" {
			sawFilter.Store(true)
		}
		w.Write([]byte(videoPageXML(1, 1, 1)))
	})
	Register(deps)

	id, err := deps.Manager.Start(context.Background(), TagQuick)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		rec, err := deps.Manager.Get(context.Background(), id)
		if err == nil && (rec.State == job.Complete || rec.State == job.Failed) {
			if rec.State == job.Failed {
				t.Fatalf("quick indexer job failed")
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("quick indexer job never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if sawFilter.Load() {
		t.Fatalf("expected quick indexer to degrade to a full (unfiltered) crawl when no prior full run exists")
	}

	ctx := context.Background()
	var ss *store.SystemState
	err = deps.DB.WithSession(ctx, func(s *store.Session) error {
		var err error
		ss, err = store.GetSystemState(ctx, s)
		return err
	})
	if err != nil {
		t.Fatalf("GetSystemState: %v", err)
	}
	if ss.IndexerFullLastUpdate == nil {
		t.Fatalf("expected degraded run to stamp indexer_full_last_update")
	}
}
