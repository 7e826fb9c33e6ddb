// =============================================================================
// FILE: internal/downloader/downloader_test.go
// PURPOSE: Exercises the peek-and-stream daemon end to end: enqueue,
//          chunked transfer to disk, byte-counter progress, completion,
//          failure-taxonomy mapping, and the InProgress-restarts-from-
//          zero invariant (spec.md §8).
// =============================================================================

package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gbmm/internal/model"
	"gbmm/internal/requester"
	"gbmm/internal/store"
)

func newTestDownloader(t *testing.T, handler http.HandlerFunc) (*Downloader, *store.DB, string, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	filesRoot := t.TempDir()
	d := New(db, srv.Client(), filesRoot, "api_key", "testkey", nil)
	return d, db, filesRoot, srv.URL
}

func seedVideo(t *testing.T, db *store.DB, id int64, hdURL string) {
	t.Helper()
	ctx := context.Background()
	err := db.WithSession(ctx, func(s *store.Session) error {
		_, err := s.Exec(ctx, `INSERT INTO videos (id, guid, title, deck, publish_date, hd_url, high_url, low_url, site_detail_url, last_full_refresh)
			VALUES (?, ?, ?, '', '2024-01-01 00:00:00', ?, '', '', '', '2024-01-01 00:00:00')`,
			id, fmt.Sprintf("2300-%d", id), "Test Video", hdURL)
		return err
	})
	if err != nil {
		t.Fatalf("seed video: %v", err)
	}
}

func waitForStatus(t *testing.T, db *store.DB, downloadID int64, want model.DownloadStatus) *model.Download {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(5 * time.Second)
	for {
		var dl *model.Download
		err := db.WithSession(ctx, func(s *store.Session) error {
			var err error
			dl, err = store.GetDownload(ctx, s, downloadID)
			return err
		})
		if err != nil {
			t.Fatalf("GetDownload: %v", err)
		}
		if dl.Status == want {
			return dl
		}
		if dl.Status == model.DownloadFailed && want != model.DownloadFailed {
			t.Fatalf("download failed unexpectedly: %s", dl.FailedReason)
		}
		select {
		case <-deadline:
			t.Fatalf("download never reached status %v, last status %v", want, dl.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEnqueueAndDownloadCompletes(t *testing.T) {
	const payload = "hello world, this is the video content"
	d, db, filesRoot, base := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "testkey" {
			t.Errorf("expected api_key query param, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte(payload))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	seedVideo(t, db, 1, "")
	dl, err := d.Enqueue(ctx, "video", 1, "hd_url")
	if err == nil {
		t.Fatalf("expected enqueue of empty field to fail")
	}
	_ = dl

	// Video 1's hd_url is empty in this fixture; seed a second video,
	// point its hd_url at the test server, and exercise Enqueue against
	// that populated field instead.
	seedVideo(t, db, 2, "")
	err = db.WithSession(ctx, func(s *store.Session) error {
		_, err := s.Exec(ctx, `UPDATE videos SET hd_url = ? WHERE id = ?`, base+"/video.mp4", 2)
		return err
	})
	if err != nil {
		t.Fatalf("update video url: %v", err)
	}

	dl, err = d.Enqueue(ctx, "video", 2, "hd_url")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	done := waitForStatus(t, db, dl.ID, model.DownloadComplete)
	if done.DownloadedBytes != int64(len(payload)) {
		t.Fatalf("downloaded_bytes = %d, want %d", done.DownloadedBytes, len(payload))
	}

	want := store.FilePath(filesRoot, "video", 2, "hd_url", base+"/video.mp4")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("file contents = %q, want %q", data, payload)
	}
}

func TestDownloadFailureRecordsReason(t *testing.T) {
	d, db, _, base := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	seedVideo(t, db, 3, base+"/broken.mp4")

	dl, err := d.Enqueue(ctx, "video", 3, "hd_url")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	failed := waitForStatus(t, db, dl.ID, model.DownloadFailed)
	if !strings.Contains(failed.FailedReason, "HTTP Error.") {
		t.Fatalf("failed_reason = %q, want it to contain %q", failed.FailedReason, "HTTP Error.")
	}
}

func TestRestartedInProgressDownloadStartsFromZero(t *testing.T) {
	d, db, _, base := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh content"))
	})

	ctx := context.Background()
	seedVideo(t, db, 4, base+"/restart.mp4")

	dl, err := d.Enqueue(ctx, "video", 4, "hd_url")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Simulate a prior run that crashed mid-transfer: InProgress with a
	// nonzero downloaded_bytes counter.
	if err := db.WithSession(ctx, func(s *store.Session) error {
		return store.MarkInProgress(ctx, s, dl.ID)
	}); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	if err := db.WithSession(ctx, func(s *store.Session) error {
		return store.IncrementDownloadedBytes(ctx, s, dl.ID, 999)
	}); err != nil {
		t.Fatalf("IncrementDownloadedBytes: %v", err)
	}

	// A fresh MarkInProgress (what the daemon does when it re-peeks this
	// row on startup) must reset the counter to zero.
	if err := db.WithSession(ctx, func(s *store.Session) error {
		return store.MarkInProgress(ctx, s, dl.ID)
	}); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}

	restarted, err := func() (*model.Download, error) {
		var out *model.Download
		err := db.WithSession(ctx, func(s *store.Session) error {
			var err error
			out, err = store.GetDownload(ctx, s, dl.ID)
			return err
		})
		return out, err
	}()
	if err != nil {
		t.Fatalf("GetDownload: %v", err)
	}
	if restarted.DownloadedBytes != 0 {
		t.Fatalf("downloaded_bytes after restart = %d, want 0", restarted.DownloadedBytes)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(runCtx)

	waitForStatus(t, db, dl.ID, model.DownloadComplete)
}

// TestEnqueueVideoWithImagesResolvesMissingVideo exercises the resolve-
// before-enqueue fallback (spec.md §4.G): with no upstream wired, a video
// that was never indexed locally fails clearly instead of surfacing a
// bare sql.ErrNoRows.
func TestEnqueueVideoWithImagesResolvesMissingVideo(t *testing.T) {
	d, _, _, _ := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := d.EnqueueVideoWithImages(context.Background(), 999)
	if err == nil {
		t.Fatal("expected an error enqueueing an unindexed video with no upstream wired")
	}
	if !strings.Contains(err.Error(), "not indexed locally") {
		t.Fatalf("error = %q, want it to mention the video is not indexed locally", err.Error())
	}
}

// TestEnqueueVideoWithImagesFetchesMissingVideo exercises the same path
// with an upstream wired: the video doesn't exist locally yet, so it must
// be fetched from the catalog API and merged in before being enqueued.
func TestEnqueueVideoWithImagesFetchesMissingVideo(t *testing.T) {
	const videoXML = `<?xml version="1.0" encoding="UTF-8"?>
<response>
  <status_code>1</status_code>
  <results>
    <video>
      <id>42</id>
      <name>Fetched Video</name>
      <deck></deck>
      <publish_date>2024-01-01 00:00:00</publish_date>
      <hd_url>/fetched.mp4</hd_url>
      <high_url></high_url>
      <low_url></low_url>
      <site_detail_url></site_detail_url>
    </video>
  </results>
  <number_of_page_results>1</number_of_page_results>
  <number_of_total_results>1</number_of_total_results>
  <limit>100</limit>
  <offset>0</offset>
</response>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "42" {
			t.Errorf("expected id=42 filter in the upstream fetch, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(videoXML))
	}))
	t.Cleanup(srv.Close)

	db, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	d := New(db, srv.Client(), t.TempDir(), "api_key", "testkey", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := requester.New(srv.Client(), "gbmm-test", nil)
	go req.Start(ctx)
	d.SetUpstream(req, srv.URL)

	dl, err := d.EnqueueVideoWithImages(ctx, 42)
	if err != nil {
		t.Fatalf("EnqueueVideoWithImages: %v", err)
	}
	if dl.ObjID != 42 {
		t.Fatalf("download obj_id = %d, want 42", dl.ObjID)
	}
}
