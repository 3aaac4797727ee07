package languagepack

import (
	"errors"
	"os"
	"path/filepath"
)

// DiskSpace reports the bytes available to an unprivileged user on the volume
// holding path.
type DiskSpace interface {
	Available(path string) (int64, error)
}

// StatfsDiskSpace queries the filesystem with statfs where the platform has it.
type StatfsDiskSpace struct{}

// existingParent returns path or its nearest ancestor that exists.
func existingParent(path string) string {
	path = filepath.Clean(path)
	for {
		if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
