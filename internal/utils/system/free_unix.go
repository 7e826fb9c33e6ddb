// =============================================================================
// FILE: internal/utils/system/free_unix.go
// PURPOSE: Unix free-space query via syscall.Statfs, backing
//          HasMinFreeSpace. Build-tagged for every non-Windows platform.
// =============================================================================

//go:build !windows

package system

import (
	"fmt"
	"syscall"
)

// freeBytes returns the number of bytes free on the filesystem containing
// path.
func freeBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
