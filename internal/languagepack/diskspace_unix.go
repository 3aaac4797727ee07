//go:build linux || darwin

package languagepack

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func (StatfsDiskSpace) Available(path string) (int64, error) {
	dir := existingParent(path)
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("unix.Statfs(%s) > %w", dir, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
