// =============================================================================
// FILE: internal/httpapi/httpapi_test.go
// PURPOSE: Exercises the route table end to end against an in-memory
//          store: the definitions dictionary, the API-key-required 400 on
//          a mutating route, an enqueue/list downloads round trip, and the
//          range-capable local media route.
// =============================================================================

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gbmm/internal/downloader"
	"gbmm/internal/model"
	"gbmm/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestDeps(t *testing.T, apiKey string) *Deps {
	t.Helper()
	db := openTestDB(t)
	dl := downloader.New(db, http.DefaultClient, t.TempDir(), "api_key", apiKey, nil)
	return &Deps{
		DB:          db,
		Downloader:  dl,
		BaseURL:     "http://unused.invalid/api/",
		APIKeyField: "api_key",
		APIKey:      apiKey,
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDefinitionsRoute(t *testing.T) {
	deps := newTestDeps(t, "")
	h := Routes(deps)

	rec := doJSON(t, h, http.MethodGet, "/api/definitions/get", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["download_statuses"]["Complete"] != int(model.DownloadComplete) {
		t.Fatalf("download_statuses[Complete] = %v, want %d", body["download_statuses"]["Complete"], model.DownloadComplete)
	}
}

func TestMutatingRouteRequiresAPIKey(t *testing.T) {
	deps := newTestDeps(t, "")
	h := Routes(deps)

	rec := doJSON(t, h, http.MethodPost, "/api/videos/browse", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}

	var aerr apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &aerr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if aerr.Message == "" {
		t.Fatalf("expected a non-empty error message")
	}
}

func TestEnqueueAndListDownloads(t *testing.T) {
	deps := newTestDeps(t, "test-key-0000000000000000000000000000000000")
	h := Routes(deps)

	ctx := context.Background()
	if err := deps.DB.WithSession(ctx, func(s *store.Session) error {
		_, err := s.Exec(ctx, `INSERT INTO videos (id, guid, title, deck, publish_date, hd_url, high_url, low_url, site_detail_url, last_full_refresh)
			VALUES (1, 'gb-video-1', 'Test Video', '', '2024-01-01 00:00:00', 'https://cdn.example.com/v.mp4', '', '', '', '2024-01-01 00:00:00')`)
		return err
	}); err != nil {
		t.Fatalf("seed video: %v", err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/downloads/enqueue", map[string]any{
		"obj_item_name": "video",
		"obj_id":        1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("enqueue status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/downloads/get", map[string]any{
		"obj_item_name": "video",
		"obj_id":        1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}

	var listed struct {
		Results []*model.Download `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Results) == 0 {
		t.Fatalf("expected at least one download, got none")
	}
	if listed.Results[0].ObjID != 1 || listed.Results[0].ObjItemName != "video" {
		t.Fatalf("unexpected download row: %+v", listed.Results[0])
	}
}

func TestServeVideoFileRange(t *testing.T) {
	deps := newTestDeps(t, "")
	h := Routes(deps)

	content := []byte("0123456789abcdef")
	filePath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	ctx := context.Background()
	if err := deps.DB.WithSession(ctx, func(s *store.Session) error {
		_, err := store.FindOrCreateFile(ctx, s, "video", 7, "hd_url", filePath, "clip.mp4")
		return err
	}); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/media/video/7/file", nil)
	req.Header.Set("Range", "bytes=0-3")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "0123" {
		t.Fatalf("range body = %q, want %q", got, "0123")
	}
}
