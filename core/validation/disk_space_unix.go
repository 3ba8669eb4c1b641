//go:build !windows

package validation

import (
	"syscall"
)

// getDiskSpace reports total and caller-available bytes via statfs.
func getDiskSpace(path string) (total int64, free int64, err error) {
	var stat syscall.Statfs_t
	err = syscall.Statfs(path, &stat)
	if err != nil {
		return 0, 0, err
	}

	total = int64(stat.Blocks) * int64(stat.Bsize)
	// Bavail, not Bfree: space usable without root.
	free = int64(stat.Bavail) * int64(stat.Bsize)

	return total, free, nil
}
