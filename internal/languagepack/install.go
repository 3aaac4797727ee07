package languagepack

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var zipMagic = []byte("PK\x03\x04")

// fileChecksum returns the hex SHA-256 of the file at path.
func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("io.Copy(%s) > %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func isZip(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	header := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(file, header); err != nil {
		return false, nil
	}
	return bytes.Equal(header, zipMagic), nil
}

// extractDictionary copies the dictionary member of the zip at archivePath to
// destination. The member is the only regular file in the archive or the one
// ending in .sqlite or .db. Member names never become paths.
func extractDictionary(archivePath, destination string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("zip.OpenReader(%s) > %w", archivePath, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	var member *zip.File
	var regular []*zip.File
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		regular = append(regular, file)
		name := strings.ToLower(filepath.Base(file.Name))
		if member == nil && (strings.HasSuffix(name, ".sqlite") || strings.HasSuffix(name, ".db")) {
			member = file
		}
	}
	if member == nil && len(regular) == 1 {
		member = regular[0]
	}
	if member == nil {
		return fmt.Errorf("%w: archive %s has no dictionary file", ErrVerificationFailed, filepath.Base(archivePath))
	}

	src, err := member.Open()
	if err != nil {
		return fmt.Errorf("member.Open(%s) > %w", member.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("os.OpenFile(%s) > %w", destination, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("io.Copy(%s) > %w", member.Name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("dst.Close > %w", err)
	}
	return nil
}
