package translation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileCache stores one JSON document per key under rootDir.
type FileCache struct {
	rootDir string
}

func NewFileCache(cacheDirectory string) *FileCache {
	return &FileCache{
		rootDir: cacheDirectory,
	}
}

// filePath hashes key so that any text can be used as a file name.
func (f *FileCache) filePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.rootDir, hex.EncodeToString(sum[:])+".json")
}

// cache returns the stored document for key, or stores what f returns. The
// contents are returned even when they could not be written.
func (cache *FileCache) cache(key string, f func() ([]byte, error)) ([]byte, error) {
	localFilePath := cache.filePath(key)
	if _, err := os.Stat(localFilePath); err == nil {
		contents, err := cache.read(key)
		if err != nil {
			return nil, fmt.Errorf("cache.read > %w", err)
		}
		return contents, nil
	}

	contents, err := f()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cache.rootDir, 0755); err != nil {
		return contents, fmt.Errorf("os.MkdirAll > %w", err)
	}
	file, err := os.Create(localFilePath)
	if err != nil {
		return contents, fmt.Errorf("os.Create > %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := file.Write(contents); err != nil {
		return contents, fmt.Errorf("file.Write > %w", err)
	}
	return contents, nil
}

func (cache *FileCache) read(key string) ([]byte, error) {
	file, err := os.Open(cache.filePath(key))
	if err != nil {
		return nil, fmt.Errorf("os.Open > %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	contents, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll > %w", err)
	}
	return contents, nil
}
