// =============================================================================
// FILE: internal/utils/system/free_windows.go
// PURPOSE: Windows free-space query via GetDiskFreeSpaceExW, backing
//          HasMinFreeSpace. Build-tagged for windows only.
// =============================================================================

//go:build windows

package system

import (
	"fmt"
	"syscall"
	"unsafe"
)

// freeBytes returns the number of bytes free on the filesystem containing
// path.
func freeBytes(path string) (uint64, error) {
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	getDiskFreeSpaceEx := kernel32.NewProc("GetDiskFreeSpaceExW")

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64

	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path %s: %w", path, err)
	}

	ret, _, callErr := getDiskFreeSpaceEx.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		uintptr(unsafe.Pointer(&totalBytes)),
		uintptr(unsafe.Pointer(&totalFreeBytes)),
	)
	if ret == 0 {
		return 0, fmt.Errorf("GetDiskFreeSpaceExW failed for %s: %w", path, callErr)
	}

	return freeBytesAvailable, nil
}
