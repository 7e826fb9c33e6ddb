package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureParentDirCreatesMissingDirs(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "video", "00", "0007", "7", "7_hd_url_clip.mp4")

	if err := EnsureParentDir(target); err != nil {
		t.Fatalf("EnsureParentDir: %v", err)
	}

	info, err := os.Stat(filepath.Dir(target))
	if err != nil {
		t.Fatalf("stat parent dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("parent of %s is not a directory", target)
	}
}

func TestEnsureParentDirIdempotent(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "video", "file.mp4")

	if err := EnsureParentDir(target); err != nil {
		t.Fatalf("first EnsureParentDir: %v", err)
	}
	if err := EnsureParentDir(target); err != nil {
		t.Fatalf("second EnsureParentDir: %v", err)
	}
}
