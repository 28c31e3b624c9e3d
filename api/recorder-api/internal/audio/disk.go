// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_audio

import "golang.org/x/sys/unix"

// HasSufficientDiskSpace reports whether the filesystem holding dir has more
// than minFreeMB megabytes available. Capture refuses to start below the
// floor.
func HasSufficientDiskSpace(dir string, minFreeMB uint64) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return false
	}
	freeMB := st.Bavail * uint64(st.Bsize) / (1024 * 1024)
	return freeMB > minFreeMB
}
