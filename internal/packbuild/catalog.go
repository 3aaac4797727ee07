package packbuild

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/at-ishikawa/lexipack/internal/manifest"
)

const catalogVersion = "1.0"

// GenerateCatalog lists the pack archives in directory. Packs whose language
// pairs are the reverse of each other are linked as companions. When baseURL
// is empty the dictionary URLs are the bare archive names.
func GenerateCatalog(directory, baseURL string, now time.Time) (manifest.Catalog, error) {
	archives, err := filepath.Glob(filepath.Join(directory, "*.sqlite.zip"))
	if err != nil {
		return manifest.Catalog{}, fmt.Errorf("filepath.Glob > %w", err)
	}
	sort.Strings(archives)

	packs := make([]manifest.PackManifest, 0, len(archives))
	for _, archive := range archives {
		id := strings.TrimSuffix(filepath.Base(archive), ".sqlite.zip")
		metadata, err := readMetadata(directory, id)
		if err != nil {
			return manifest.Catalog{}, fmt.Errorf("readMetadata(%s) > %w", id, err)
		}
		checksum, size, err := checksumFile(archive)
		if err != nil {
			return manifest.Catalog{}, fmt.Errorf("checksumFile > %w", err)
		}
		archiveURL, err := dictionaryURL(baseURL, filepath.Base(archive))
		if err != nil {
			return manifest.Catalog{}, err
		}
		packs = append(packs, packManifest(metadata, archiveURL, checksum, size))
	}
	linkCompanions(packs)

	catalog := manifest.Catalog{
		Version:   catalogVersion,
		Timestamp: now.UTC().Format(time.RFC3339),
		Packs:     packs,
	}
	if _, err := manifest.NewRegistry(catalog); err != nil {
		return manifest.Catalog{}, fmt.Errorf("manifest.NewRegistry > %w", err)
	}
	return catalog, nil
}

// WriteCatalog writes catalog as indented JSON.
func WriteCatalog(path string, catalog manifest.Catalog) error {
	encoded, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent > %w", err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0644); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return nil
}

// readMetadata reads <id>.json. Without it the languages come from an id of
// the form "<source>-<target>".
func readMetadata(directory, id string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(directory, id+".json"))
	if err == nil {
		var metadata Metadata
		if err := json.Unmarshal(data, &metadata); err != nil {
			return Metadata{}, fmt.Errorf("json.Unmarshal > %w", err)
		}
		metadata.ID = id
		return metadata, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, fmt.Errorf("os.ReadFile > %w", err)
	}

	source, target, ok := strings.Cut(id, "-")
	if !ok || source == "" || target == "" {
		return Metadata{}, fmt.Errorf("no metadata and %q is not a <source>-<target> id", id)
	}
	return Metadata{ID: id, SourceLanguage: source, TargetLanguage: target}, nil
}

func dictionaryURL(baseURL, filename string) (string, error) {
	if baseURL == "" {
		return filename, nil
	}
	joined, err := url.JoinPath(baseURL, filename)
	if err != nil {
		return "", fmt.Errorf("url.JoinPath(%s) > %w", baseURL, err)
	}
	return joined, nil
}

// linkCompanions pairs each pack with the first pack of the reverse language
// pair that is not paired yet.
func linkCompanions(packs []manifest.PackManifest) {
	for i := range packs {
		if packs[i].HasCompanion() {
			continue
		}
		for j := range packs {
			if i == j || packs[j].HasCompanion() {
				continue
			}
			if packs[j].SourceLanguage == packs[i].TargetLanguage && packs[j].TargetLanguage == packs[i].SourceLanguage {
				packs[i].CompanionPackID = packs[j].ID
				packs[j].CompanionPackID = packs[i].ID
				break
			}
		}
	}
}
