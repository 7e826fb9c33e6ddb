// =============================================================================
// FILE: internal/downloader/downloader.go
// PURPOSE: Single background downloader daemon (spec.md §4.G). One worker
//          goroutine pulls the next queued download (In_Progress rows
//          before Queued rows, FIFO within each), streams it to disk in
//          10 MiB chunks, and records byte/status progress after every
//          chunk. Grounded line-for-line on original_source's
//          server/downloader.py (Downloader.__peek_download/__processor/
//          __download), redesigned per spec.md §9 onto a buffered signal
//          channel instead of Python's threading.Condition so the daemon
//          can also stop cleanly on context cancellation.
// =============================================================================

package downloader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"gbmm/internal/download/progress"
	"gbmm/internal/model"
	"gbmm/internal/paths"
	"gbmm/internal/requester"
	"gbmm/internal/store"
	dusystem "gbmm/internal/utils/system"
)

// chunkSize matches the original's Downloader.chunk_size (10 MB, read as
// MiB here since Go's io.Reader deals in bytes either way).
const chunkSize = 10 * 1024 * 1024

// Downloader is the background daemon that drains the Download queue one
// row at a time. There is exactly one worker goroutine, matching the
// original's single daemon thread — downloads never run concurrently.
type Downloader struct {
	db          *store.DB
	client      *http.Client
	logger      *slog.Logger
	filesRoot   string
	apiKeyField string
	apiKey      string

	// req and baseURL are set by SetUpstream once the app's Requester is
	// available, letting EnqueueVideoWithImages resolve a video that
	// isn't indexed locally yet by fetching and merging it first. Both
	// stay nil/empty in tests that only enqueue already-seeded rows.
	req     *requester.Requester
	baseURL string

	tracker *progress.Tracker

	// pushed signals the worker that a new row may be waiting. Buffered
	// to 1 so a notification sent while the worker is busy isn't lost,
	// and coalesces into a single wakeup (the worker re-peeks the queue
	// anyway, so more than one pending signal is never needed).
	pushed chan struct{}
}

// New constructs a Downloader. filesRoot is the directory File paths are
// computed under (spec.md §3). Call Start to begin processing.
func New(db *store.DB, client *http.Client, filesRoot, apiKeyField, apiKey string, logger *slog.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		db:          db,
		client:      client,
		logger:      logger.With("component", "downloader"),
		filesRoot:   filesRoot,
		apiKeyField: apiKeyField,
		apiKey:      apiKey,
		tracker:     progress.NewTracker(0),
		pushed:      make(chan struct{}, 1),
	}
}

// SetUpstream wires a Requester and the catalog API base URL so
// EnqueueVideoWithImages can fetch and merge a video that isn't indexed
// locally yet instead of failing outright (spec.md §4.G). Optional: a
// Downloader with no upstream set still enqueues already-indexed videos.
func (d *Downloader) SetUpstream(req *requester.Requester, baseURL string) {
	d.req = req
	d.baseURL = baseURL
}

// Tracker exposes the lifetime completed/failed counters and the current
// download's byte progress, for the CLI's bubbletea progress view.
func (d *Downloader) Tracker() *progress.Tracker {
	return d.tracker
}

// Start launches the worker goroutine. It runs until ctx is cancelled.
func (d *Downloader) Start(ctx context.Context) {
	go d.run(ctx)
}

// notify wakes the worker if it is currently waiting for work.
func (d *Downloader) notify() {
	select {
	case d.pushed <- struct{}{}:
	default:
	}
}

func (d *Downloader) run(ctx context.Context) {
	d.logger.Debug("downloader: daemon started")
	for {
		dl, err := d.peek(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("downloader: peek failed", "error", err)
		}
		if dl == nil {
			select {
			case <-ctx.Done():
				return
			case <-d.pushed:
			}
			continue
		}
		d.process(ctx, dl)
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Downloader) peek(ctx context.Context) (*model.Download, error) {
	var dl *model.Download
	err := d.db.WithSession(ctx, func(s *store.Session) error {
		var err error
		dl, err = store.PeekNextDownload(ctx, s)
		if errors.Is(err, sql.ErrNoRows) {
			dl = nil
			return nil
		}
		return err
	})
	return dl, err
}

func (d *Downloader) process(ctx context.Context, dl *model.Download) {
	logger := d.logger.With("download_id", dl.ID, "kind", dl.ObjItemName, "url_field", dl.ObjURLField)

	if err := d.db.WithSession(ctx, func(s *store.Session) error {
		return store.MarkInProgress(ctx, s, dl.ID)
	}); err != nil {
		logger.Error("downloader: mark in-progress failed", "error", err)
		return
	}

	d.tracker.ResetBytes(dl.SizeBytes)
	logger.Info("downloader: starting download", "name", dl.Name)

	if err := d.download(ctx, logger, dl); err != nil {
		if ctx.Err() != nil {
			// Context cancelled mid-transfer: leave the row In_Progress.
			// The next Startup peek restarts it from byte zero.
			logger.Warn("downloader: download interrupted by shutdown")
			return
		}
		message := err.Error()
		logger.Error("downloader: download failed", "reason", message)
		if failErr := d.db.WithSession(ctx, func(s *store.Session) error {
			return store.FailDownload(ctx, s, dl.ID, message)
		}); failErr != nil {
			logger.Error("downloader: failed to persist failure", "error", failErr)
		}
		d.tracker.AddFailed()
		return
	}

	d.tracker.AddCompleted(dl.SizeBytes)
	logger.Info("downloader: download complete")
}

// failure carries a human-readable reason plus a captured stack, the Go
// equivalent of the original's traceback.format_exception dump.
type failure struct {
	reason string
	cause  error
	stack  string
}

func (f *failure) Error() string {
	return fmt.Sprintf("%s %v\n%s", f.reason, f.cause, f.stack)
}

func (f *failure) Unwrap() error { return f.cause }

func fail(reason string, cause error) error {
	return &failure{reason: reason, cause: cause, stack: string(debug.Stack())}
}

// classifyTransportError maps a client.Do/Read error to the original's
// requests.ConnectionError/Timeout/TooManyRedirects taxonomy.
func classifyTransportError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "Timeout reached."
		}
		if strings.Contains(urlErr.Error(), "stopped after") {
			return "Too many redirects."
		}
	}
	return "Connection error."
}

// apiKeyURL appends the catalog API key as a query parameter (never a
// header — spec.md §6), preserving any query parameters the upstream URL
// already carries.
func apiKeyURL(rawURL, field, key string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(field, key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func dumpHeaders(h http.Header) string {
	var b strings.Builder
	for k, vals := range h {
		fmt.Fprintf(&b, "%s: %s\n", k, strings.Join(vals, ", "))
	}
	return b.String()
}

func (d *Downloader) download(ctx context.Context, logger *slog.Logger, dl *model.Download) error {
	if dl.URL == "" {
		return fail("Unexpected value.", fmt.Errorf("download %d has no source URL", dl.ID))
	}

	reqURL, err := apiKeyURL(dl.URL, d.apiKeyField, d.apiKey)
	if err != nil {
		return fail("Unexpected value.", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fail("Unexpected value.", err)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return fail(classifyTransportError(err), err)
	}
	defer resp.Body.Close()

	logger.Debug("downloader: response received", "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail("HTTP Error.", fmt.Errorf("bad response from download URL: %d", resp.StatusCode))
	}

	sizeBytes := resp.ContentLength
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	d.tracker.ResetBytes(sizeBytes)

	if err := d.db.WithSession(ctx, func(s *store.Session) error {
		return store.SetDownloadResponseMeta(ctx, s, dl.ID, sizeBytes, resp.Header.Get("Content-Type"), dumpHeaders(resp.Header))
	}); err != nil {
		return fail("Database error.", err)
	}

	filePath := store.FilePath(d.filesRoot, dl.ObjItemName, dl.ObjID, dl.ObjURLField, dl.URL)
	if err := paths.EnsureParentDir(filePath); err != nil {
		return fail("Error saving file.", err)
	}
	if sizeBytes > 0 {
		if ok, err := dusystem.HasMinFreeSpace(filepath.Dir(filePath), uint64(sizeBytes)); err == nil && !ok {
			return fail("Error saving file.", fmt.Errorf("insufficient free disk space for %d bytes at %s", sizeBytes, filePath))
		}
	}

	var file *store.Row
	if err := d.db.WithSession(ctx, func(s *store.Session) error {
		var err error
		file, err = store.FindOrCreateFile(ctx, s, dl.ObjItemName, dl.ObjID, dl.ObjURLField, filePath, dl.Name)
		if err != nil {
			return err
		}
		return store.AttachDownloadFile(ctx, s, dl.ID, file.ID)
	}); err != nil {
		return fail("Database error.", err)
	}

	// Every transfer restarts from byte zero — the original never sends
	// a Range header, and neither do we (spec.md §9 Open Question).
	out, err := os.Create(filePath)
	if err != nil {
		return fail("Error saving file.", err)
	}
	defer out.Close()

	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fail("Error saving file.", writeErr)
			}
			if err := d.db.WithSession(ctx, func(s *store.Session) error {
				return store.IncrementDownloadedBytes(ctx, s, dl.ID, int64(n))
			}); err != nil {
				return fail("Database error.", err)
			}
			d.tracker.AddBytes(int64(n))
			logger.Debug("downloader: chunk written", "bytes", humanize.Bytes(uint64(n)))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fail(classifyTransportError(readErr), readErr)
		}
	}

	if err := d.db.WithSession(ctx, func(s *store.Session) error {
		if err := store.UpdateFileStats(ctx, s, file.ID, sizeBytes, resp.Header.Get("Content-Type")); err != nil {
			return err
		}
		return store.CompleteDownload(ctx, s, dl.ID)
	}); err != nil {
		return fail("Database error.", err)
	}

	logger.Debug("downloader: transfer time", "elapsed", time.Since(start))
	return nil
}
