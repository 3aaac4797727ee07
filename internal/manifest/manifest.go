package manifest

// DictionaryAsset describes the downloadable dictionary file of a pack.
type DictionaryAsset struct {
	Filename string `json:"filename" yaml:"filename" validate:"required"`
	URL      string `json:"url" yaml:"url" validate:"required"`
	// Checksum is the hex encoded SHA-256 of the downloaded asset.
	Checksum  string `json:"checksum" yaml:"checksum" validate:"required,len=64,hexadecimal"`
	Entries   int64  `json:"entries" yaml:"entries" validate:"gte=0"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes" validate:"gt=0"`
}

// PackManifest describes a language pack available from the registry.
type PackManifest struct {
	ID              string          `json:"id" yaml:"id" validate:"required"`
	Name            string          `json:"name" yaml:"name"`
	SourceLanguage  string          `json:"source_language" yaml:"source_language" validate:"required,langcode"`
	TargetLanguage  string          `json:"target_language" yaml:"target_language" validate:"required,langcode,nefield=SourceLanguage"`
	Dictionary      DictionaryAsset `json:"dictionary" yaml:"dictionary"`
	CompanionPackID string          `json:"companion_pack_id,omitempty" yaml:"companion_pack_id,omitempty"`
	// TotalSize is the installed size in bytes.
	TotalSize   int64  `json:"total_size" yaml:"total_size" validate:"gte=0"`
	Version     string `json:"version" yaml:"version"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// HasCompanion reports whether the pack is one half of a bidirectional pair.
func (m PackManifest) HasCompanion() bool {
	return m.CompanionPackID != ""
}

// Catalog is the registry document listing every available pack.
type Catalog struct {
	Version   string         `json:"version" yaml:"version"`
	Timestamp string         `json:"timestamp" yaml:"timestamp"`
	Packs     []PackManifest `json:"packs" yaml:"packs" validate:"dive"`
}
