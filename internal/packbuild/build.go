package packbuild

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
	"github.com/at-ishikawa/lexipack/internal/manifest"
)

// Options is a pack to build.
type Options struct {
	ID             string
	Name           string
	SourceLanguage string
	TargetLanguage string
	Version        string
	Source         string
	Description    string
	Entries        []dictionary.Entry
	// OutputDirectory receives <id>.sqlite.zip and the <id>.json metadata.
	OutputDirectory string
}

// Metadata is written next to each archive and read back by GenerateCatalog.
type Metadata struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Entries        int64  `json:"entries"`
	TotalSize      int64  `json:"total_size"`
	Version        string `json:"version,omitempty"`
	Source         string `json:"source,omitempty"`
	Description    string `json:"description,omitempty"`
}

func ArchiveName(id string) string {
	return id + ".sqlite.zip"
}

// Build writes the dictionary index of opts, archives it and returns the
// manifest of the archive. The manifest URL is the archive file name.
func Build(ctx context.Context, opts Options) (manifest.PackManifest, error) {
	if opts.ID == "" || opts.SourceLanguage == "" || opts.TargetLanguage == "" {
		return manifest.PackManifest{}, fmt.Errorf("pack id and languages are required")
	}
	if err := os.MkdirAll(opts.OutputDirectory, 0755); err != nil {
		return manifest.PackManifest{}, fmt.Errorf("os.MkdirAll(%s) > %w", opts.OutputDirectory, err)
	}

	workDirectory, err := os.MkdirTemp(opts.OutputDirectory, ".build-"+opts.ID+"-")
	if err != nil {
		return manifest.PackManifest{}, fmt.Errorf("os.MkdirTemp > %w", err)
	}
	defer func() {
		_ = os.RemoveAll(workDirectory)
	}()

	indexName := opts.ID + ".sqlite"
	indexPath := filepath.Join(workDirectory, indexName)
	if err := dictionary.CreateIndex(ctx, indexPath, dictionary.Metadata{
		PackID:         opts.ID,
		SourceLanguage: opts.SourceLanguage,
		TargetLanguage: opts.TargetLanguage,
	}, opts.Entries); err != nil {
		return manifest.PackManifest{}, fmt.Errorf("dictionary.CreateIndex > %w", err)
	}
	if _, err := dictionary.VerifyIndex(ctx, indexPath, opts.SourceLanguage); err != nil {
		return manifest.PackManifest{}, fmt.Errorf("dictionary.VerifyIndex > %w", err)
	}
	indexInfo, err := os.Stat(indexPath)
	if err != nil {
		return manifest.PackManifest{}, fmt.Errorf("os.Stat(%s) > %w", indexPath, err)
	}

	archivePath := filepath.Join(opts.OutputDirectory, ArchiveName(opts.ID))
	stagedArchive := filepath.Join(workDirectory, ArchiveName(opts.ID))
	if err := writeArchive(stagedArchive, indexPath, indexName); err != nil {
		return manifest.PackManifest{}, fmt.Errorf("writeArchive > %w", err)
	}
	checksum, size, err := checksumFile(stagedArchive)
	if err != nil {
		return manifest.PackManifest{}, fmt.Errorf("checksumFile > %w", err)
	}

	metadata := Metadata{
		ID:             opts.ID,
		Name:           opts.Name,
		SourceLanguage: opts.SourceLanguage,
		TargetLanguage: opts.TargetLanguage,
		Entries:        int64(len(opts.Entries)),
		TotalSize:      indexInfo.Size(),
		Version:        opts.Version,
		Source:         opts.Source,
		Description:    opts.Description,
	}
	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return manifest.PackManifest{}, fmt.Errorf("json.MarshalIndent > %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.OutputDirectory, opts.ID+".json"), encoded, 0644); err != nil {
		return manifest.PackManifest{}, fmt.Errorf("os.WriteFile(metadata) > %w", err)
	}
	if err := os.Rename(stagedArchive, archivePath); err != nil {
		return manifest.PackManifest{}, fmt.Errorf("os.Rename(%s) > %w", archivePath, err)
	}

	return packManifest(metadata, ArchiveName(opts.ID), checksum, size), nil
}

func packManifest(metadata Metadata, url, checksum string, size int64) manifest.PackManifest {
	name := metadata.Name
	if name == "" {
		name = fmt.Sprintf("%s → %s", metadata.SourceLanguage, metadata.TargetLanguage)
	}
	version := metadata.Version
	if version == "" {
		version = "1.0"
	}
	return manifest.PackManifest{
		ID:             metadata.ID,
		Name:           name,
		SourceLanguage: metadata.SourceLanguage,
		TargetLanguage: metadata.TargetLanguage,
		Dictionary: manifest.DictionaryAsset{
			Filename:  ArchiveName(metadata.ID),
			URL:       url,
			Checksum:  checksum,
			Entries:   metadata.Entries,
			SizeBytes: size,
		},
		TotalSize:   metadata.TotalSize,
		Version:     version,
		Source:      metadata.Source,
		Description: metadata.Description,
	}
}

func writeArchive(archivePath, filePath, name string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("os.Create(%s) > %w", archivePath, err)
	}
	defer func() {
		_ = out.Close()
	}()

	in, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("os.Open(%s) > %w", filePath, err)
	}
	defer func() {
		_ = in.Close()
	}()

	writer := zip.NewWriter(out)
	w, err := writer.Create(name)
	if err != nil {
		return fmt.Errorf("zip.Create(%s) > %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("io.Copy > %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("zip.Close > %w", err)
	}
	return out.Close()
}

func checksumFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	hash := sha256.New()
	size, err := io.Copy(hash, f)
	if err != nil {
		return "", 0, fmt.Errorf("io.Copy(%s) > %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), size, nil
}
