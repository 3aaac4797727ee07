package languagepack

import (
	"time"

	"github.com/at-ishikawa/lexipack/internal/manifest"
)

// InstalledLanguagePack is the record of a pack whose dictionary file is in
// the packs directory.
type InstalledLanguagePack struct {
	ID                string                `json:"id" yaml:"id"`
	Manifest          manifest.PackManifest `json:"manifest" yaml:"manifest"`
	DictionaryPath    string                `json:"dictionary_path" yaml:"dictionary_path"`
	InstalledAt       time.Time             `json:"installed_at" yaml:"installed_at"`
	DictionaryLookups int64                 `json:"dictionary_lookups" yaml:"dictionary_lookups"`
}

type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusExtracting  DownloadStatus = "extracting"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusCancelled   DownloadStatus = "cancelled"
)

// IsTerminal reports whether no further transition can happen.
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// LanguagePackDownload is a snapshot of an in-flight or finished download.
type LanguagePackDownload struct {
	ID              string         `json:"id"`
	PackID          string         `json:"pack_id"`
	Status          DownloadStatus `json:"status"`
	Progress        int            `json:"progress"`
	DownloadedBytes int64          `json:"downloaded_bytes"`
	TotalBytes      int64          `json:"total_bytes"`
	RetryCount      int            `json:"retry_count"`
	StartedAt       time.Time      `json:"started_at"`
	Error           string         `json:"error,omitempty"`
}

// ProgressFunc receives a snapshot on every byte count update and state
// transition. It is called from the download goroutine.
type ProgressFunc func(LanguagePackDownload)

type InstallState string

const (
	InstallStateNotInstalled       InstallState = "not_installed"
	InstallStateDownloading        InstallState = "downloading"
	InstallStatePartiallyInstalled InstallState = "partially_installed"
	InstallStateInstalled          InstallState = "installed"
)

type StorageStats struct {
	TotalInstalled         int   `json:"total_installed"`
	TotalSize              int64 `json:"total_size"`
	TotalDictionaryLookups int64 `json:"total_dictionary_lookups"`
	TotalTranslations      int64 `json:"total_translations"`
}

type SpaceCheck struct {
	HasSpace       bool  `json:"has_space"`
	AvailableBytes int64 `json:"available_bytes"`
	RequiredBytes  int64 `json:"required_bytes"`
}

type DeleteOptions struct {
	IncludeCompanion bool
}

// DeleteResult lists what a DeletePack call removed. Partial is set when the
// companion had to be kept.
type DeleteResult struct {
	Deleted   []string `json:"deleted"`
	Surviving []string `json:"surviving,omitempty"`
	Partial   bool     `json:"partial"`
}
