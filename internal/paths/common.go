// =============================================================================
// FILE: internal/paths/common.go
// PURPOSE: Filesystem helper backing internal/downloader's write path: make
//          sure a download's destination directory exists before the file
//          itself is created.
// =============================================================================

package paths

import (
	"os"
	"path/filepath"
)

// EnsureParentDir creates the parent directory of the given file path.
//
// Parameters:
//   - filePath: The file whose parent directory should exist.
//
// Returns:
//   - Error if creation fails.
func EnsureParentDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0755)
}
