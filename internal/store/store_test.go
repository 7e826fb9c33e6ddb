// =============================================================================
// FILE: internal/store/store_test.go
// PURPOSE: Exercises the spec's core store invariants: deterministic File
//          paths, guid format, idempotent merge, and image dedup within a
//          batch (spec.md §8 invariants and end-to-end scenario 5).
// =============================================================================

package store

import (
	"context"
	"path/filepath"
	"testing"

	"gbmm/internal/model"
)

func TestFilePathDeterministic(t *testing.T) {
	got := FilePath("/files", "video", 7, "hd_url", "https://cdn.example.com/clip.mp4")
	want := filepath.Join("/files", "video", "00", "0000", "00007", "00007_hd_url_clip.mp4")
	if got != want {
		t.Fatalf("FilePath = %q, want %q", got, want)
	}
}

func TestFilePathPureFunction(t *testing.T) {
	a := FilePath("/files", "video", 123456, "low_url", "http://x/y/z.mp4")
	b := FilePath("/files", "video", 123456, "low_url", "http://x/y/z.mp4")
	if a != b {
		t.Fatalf("FilePath not pure: %q != %q", a, b)
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMergeVideoIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	node := videoNode{ID: 42, Name: "Quick Look", Deck: "A look.", PublishDate: "2024-01-02 03:04:05"}

	var first, second *model.Video
	err := db.WithSession(ctx, func(s *Session) error {
		v, err := MergeVideo(ctx, s, node)
		first = v
		return err
	})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	err = db.WithSession(ctx, func(s *Session) error {
		v, err := MergeVideo(ctx, s, node)
		second = v
		return err
	})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	if first.ID != second.ID || first.Guid != second.Guid {
		t.Fatalf("merge not idempotent: %+v vs %+v", first, second)
	}
	wantGuid := model.Guid(model.TypeIDVideo, 42)
	if first.Guid != wantGuid {
		t.Fatalf("guid = %q, want %q", first.Guid, wantGuid)
	}
}

func TestMergeVideoBatchDedupesSharedImage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	img := imageNode{OriginalURL: "https://cdn.example.com/thumb.jpg"}
	nodes := []videoNode{
		{ID: 1, Name: "First", Image: img},
		{ID: 2, Name: "Second", Image: img},
	}

	var merged []*model.Video
	err := db.WithSession(ctx, func(s *Session) error {
		var err error
		merged, err = MergeVideoBatch(ctx, s, nodes)
		return err
	})
	if err != nil {
		t.Fatalf("merge batch: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(merged))
	}
	if merged[0].ImageID == nil || merged[1].ImageID == nil {
		t.Fatalf("expected both videos to have an image")
	}
	if *merged[0].ImageID != *merged[1].ImageID {
		t.Fatalf("expected shared image row, got ids %d and %d", *merged[0].ImageID, *merged[1].ImageID)
	}
}

func TestDownloadPeekOrdersInProgressBeforeQueued(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var queuedID, inProgressID int64
	err := db.WithSession(ctx, func(s *Session) error {
		q, err := CreateDownload(ctx, s, "video", 1, "hd_url", "http://x/a.mp4", "a")
		if err != nil {
			return err
		}
		queuedID = q.ID

		ip, err := CreateDownload(ctx, s, "video", 2, "hd_url", "http://x/b.mp4", "b")
		if err != nil {
			return err
		}
		inProgressID = ip.ID
		return MarkInProgress(ctx, s, ip.ID)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = db.WithSession(ctx, func(s *Session) error {
		next, err := PeekNextDownload(ctx, s)
		if err != nil {
			return err
		}
		if next.ID != inProgressID {
			t.Fatalf("expected in-progress download %d first, got %d (queued was %d)", inProgressID, next.ID, queuedID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
}
