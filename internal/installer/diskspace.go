package installer

import "golang.org/x/sys/unix"

// lowDiskThreshold is the free-space floor below which Install logs a
// warning before attempting a download/build; it does not abort the
// install, since the actual archive size isn't known ahead of the fetch.
const lowDiskThreshold = 100 * 1024 * 1024 // 100MiB

// availableBytes returns free space on the filesystem containing path
// via statfs, or -1 when that can't be determined (path doesn't exist
// yet, or the platform's statfs call fails for any reason).
func availableBytes(path string) int64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return -1
	}
	return int64(stat.Bavail) * int64(stat.Bsize)
}
