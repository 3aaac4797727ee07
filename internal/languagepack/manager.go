package languagepack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
	"github.com/at-ishikawa/lexipack/internal/download"
	"github.com/at-ishikawa/lexipack/internal/manifest"
)

const (
	dictionaryExtension = ".sqlite"
	lookupFlushInterval = 50
)

// LanguageUsage reports the languages the user currently reads or speaks.
type LanguageUsage interface {
	LanguagesInUse(ctx context.Context) ([]string, error)
}

// ChangeListener is called after the set of installed packs changed.
type ChangeListener func(ctx context.Context)

type Options struct {
	PacksDirectory   string
	StagingDirectory string
	ReserveBytes     int64
	MaxRetries       uint
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

// Manager downloads, verifies, installs and removes language packs.
type Manager struct {
	registry  *manifest.Registry
	repo      Repository
	transport download.Transport
	disk      DiskSpace
	usage     LanguageUsage
	options   Options
	logger    *slog.Logger

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu        sync.Mutex
	active    map[string]*DownloadHandle
	listeners []ChangeListener
	lookups   map[string]int64
	pending   int64
	closed    bool
}

func NewManager(
	registry *manifest.Registry,
	repo Repository,
	transport download.Transport,
	disk DiskSpace,
	usage LanguageUsage,
	options Options,
	logger *slog.Logger,
) *Manager {
	if options.InitialBackoff <= 0 {
		options.InitialBackoff = time.Second
	}
	if options.MaxBackoff < options.InitialBackoff {
		options.MaxBackoff = options.InitialBackoff
	}
	if disk == nil {
		disk = StatfsDiskSpace{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry:  registry,
		repo:      repo,
		transport: transport,
		disk:      disk,
		usage:     usage,
		options:   options,
		logger:    logger.With("component", "languagepack"),
		baseCtx:   baseCtx,
		cancelAll: cancel,
		active:    make(map[string]*DownloadHandle),
		lookups:   make(map[string]int64),
	}
}

// SetRegistry replaces the catalog used for new downloads.
func (m *Manager) SetRegistry(registry *manifest.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = registry
}

func (m *Manager) getRegistry() *manifest.Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry
}

func (m *Manager) AddChangeListener(listener ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) notifyChange(ctx context.Context) {
	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, listener := range listeners {
		listener(ctx)
	}
}

func (m *Manager) ListAvailable() []manifest.PackManifest {
	registry := m.getRegistry()
	if registry == nil {
		return nil
	}
	return registry.List()
}

// ListInstalled returns installed records with lookups not yet flushed
// included in their counters.
func (m *Manager) ListInstalled(ctx context.Context) ([]InstalledLanguagePack, error) {
	packs, err := m.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.FindAll > %w", err)
	}
	m.mu.Lock()
	for i := range packs {
		packs[i].DictionaryLookups += m.lookups[packs[i].ID]
	}
	m.mu.Unlock()
	return packs, nil
}

// InstalledPacks lists installed packs for the dictionary store.
func (m *Manager) InstalledPacks(ctx context.Context) ([]dictionary.InstalledPack, error) {
	packs, err := m.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.FindAll > %w", err)
	}
	result := make([]dictionary.InstalledPack, 0, len(packs))
	for _, pack := range packs {
		result = append(result, dictionary.InstalledPack{
			ID:             pack.ID,
			SourceLanguage: pack.Manifest.SourceLanguage,
			TargetLanguage: pack.Manifest.TargetLanguage,
			Path:           pack.DictionaryPath,
			InstalledAt:    pack.InstalledAt,
		})
	}
	return result, nil
}

func (m *Manager) StorageStats(ctx context.Context) (StorageStats, error) {
	packs, err := m.ListInstalled(ctx)
	if err != nil {
		return StorageStats{}, err
	}
	stats := StorageStats{TotalInstalled: len(packs)}
	for _, pack := range packs {
		stats.TotalSize += pack.Manifest.TotalSize
		stats.TotalDictionaryLookups += pack.DictionaryLookups
		stats.TotalTranslations += pack.Manifest.Dictionary.Entries
	}
	return stats, nil
}

func requiredBytes(pack manifest.PackManifest) int64 {
	return pack.Dictionary.SizeBytes + pack.TotalSize
}

// CheckStorageSpace compares the free space of the packs volume, minus the
// configured reserve, with what installing packID needs. A companion that is
// not installed yet is included.
func (m *Manager) CheckStorageSpace(ctx context.Context, packID string) (SpaceCheck, error) {
	registry := m.getRegistry()
	if registry == nil {
		return SpaceCheck{}, fmt.Errorf("%w: %s", ErrPackNotFound, packID)
	}
	pack, ok := registry.Get(packID)
	if !ok {
		return SpaceCheck{}, fmt.Errorf("%w: %s", ErrPackNotFound, packID)
	}

	var required int64
	installed, err := m.repo.FindByID(ctx, pack.ID)
	if err != nil {
		return SpaceCheck{}, fmt.Errorf("repo.FindByID > %w", err)
	}
	if installed == nil {
		required += requiredBytes(pack)
	}
	if companion, ok := registry.Companion(pack.ID); ok {
		installed, err := m.repo.FindByID(ctx, companion.ID)
		if err != nil {
			return SpaceCheck{}, fmt.Errorf("repo.FindByID > %w", err)
		}
		if installed == nil {
			required += requiredBytes(companion)
		}
	}

	available, err := m.disk.Available(m.options.PacksDirectory)
	if err != nil {
		return SpaceCheck{}, fmt.Errorf("disk.Available > %w", err)
	}
	return SpaceCheck{
		HasSpace:       available-m.options.ReserveBytes >= required,
		AvailableBytes: available,
		RequiredBytes:  required,
	}, nil
}

// InstallState reports how much of packID, and of its companion, is installed.
func (m *Manager) InstallState(ctx context.Context, packID string) (InstallState, error) {
	installed, err := m.repo.FindByID(ctx, packID)
	if err != nil {
		return "", fmt.Errorf("repo.FindByID > %w", err)
	}

	var pack manifest.PackManifest
	registry := m.getRegistry()
	switch {
	case installed != nil:
		pack = installed.Manifest
	case registry != nil:
		p, ok := registry.Get(packID)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrPackNotFound, packID)
		}
		pack = p
	default:
		return "", fmt.Errorf("%w: %s", ErrPackNotFound, packID)
	}

	ids := []string{pack.ID}
	if pack.HasCompanion() {
		ids = append(ids, pack.CompanionPackID)
	}

	installedCount := 0
	downloading := false
	for _, id := range ids {
		record := installed
		if id != packID {
			record, err = m.repo.FindByID(ctx, id)
			if err != nil {
				return "", fmt.Errorf("repo.FindByID > %w", err)
			}
		}
		if record != nil {
			installedCount++
		}
		if m.Download(id) != nil {
			downloading = true
		}
	}

	switch {
	case installedCount == len(ids):
		return InstallStateInstalled, nil
	case installedCount > 0:
		return InstallStatePartiallyInstalled, nil
	case downloading:
		return InstallStateDownloading, nil
	default:
		return InstallStateNotInstalled, nil
	}
}

// Download returns the in-flight handle for packID, or nil.
func (m *Manager) Download(packID string) *DownloadHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[packID]
}

// ActiveDownloads returns snapshots of every in-flight download ordered by
// pack id.
func (m *Manager) ActiveDownloads() []LanguagePackDownload {
	m.mu.Lock()
	handles := make([]*DownloadHandle, 0, len(m.active))
	for _, h := range m.active {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	downloads := make([]LanguagePackDownload, 0, len(handles))
	for _, h := range handles {
		downloads = append(downloads, h.Snapshot())
	}
	slices.SortFunc(downloads, func(a, b LanguagePackDownload) int {
		return strings.Compare(a.PackID, b.PackID)
	})
	return downloads
}

// StartDownload starts installing packID in the background. A second call for
// a pack that is already downloading returns the same handle and subscribes
// onProgress to it.
func (m *Manager) StartDownload(ctx context.Context, packID string, onProgress ProgressFunc) (*DownloadHandle, error) {
	registry := m.getRegistry()
	if registry == nil {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, packID)
	}
	pack, ok := registry.Get(packID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, packID)
	}

	if h := m.Download(packID); h != nil {
		h.subscribe(onProgress)
		return h, nil
	}

	installed, err := m.repo.FindByID(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("repo.FindByID > %w", err)
	}
	if installed != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInstalled, packID)
	}

	space, err := m.CheckStorageSpace(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("CheckStorageSpace > %w", err)
	}
	if !space.HasSpace {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d available with %d reserved",
			ErrInsufficientStorage, packID, space.RequiredBytes, space.AvailableBytes, m.options.ReserveBytes)
	}

	return m.start(pack, []ProgressFunc{onProgress})
}

func (m *Manager) start(pack manifest.PackManifest, listeners []ProgressFunc) (*DownloadHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if h, ok := m.active[pack.ID]; ok {
		for _, listener := range listeners {
			h.subscribe(listener)
		}
		return h, nil
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	h := newDownloadHandle(uuid.NewString(), pack.ID, cancel, nil)
	for _, listener := range listeners {
		h.subscribe(listener)
	}
	m.active[pack.ID] = h
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(ctx, h, pack)
	}()
	return h, nil
}

// CancelDownload cancels the in-flight download of packID and waits until its
// staged bytes are removed. It is a no-op when nothing is in flight.
func (m *Manager) CancelDownload(packID string) error {
	h := m.Download(packID)
	if h == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

func (m *Manager) run(ctx context.Context, h *DownloadHandle, pack manifest.PackManifest) {
	logger := m.logger.With("pack_id", pack.ID, "download_id", h.ID())
	logger.Info("download started")

	err := m.install(ctx, h, pack, logger)

	m.mu.Lock()
	delete(m.active, pack.ID)
	m.mu.Unlock()

	switch {
	case err == nil:
		h.finish(StatusCompleted, nil)
		logger.Info("language pack installed")
		m.notifyChange(context.Background())
		m.startCompanion(h, pack, logger)
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		h.finish(StatusCancelled, err)
		logger.Info("download cancelled")
	default:
		h.finish(StatusFailed, err)
		logger.Warn("download failed", "error", err)
	}
	close(h.done)
}

func (m *Manager) startCompanion(h *DownloadHandle, pack manifest.PackManifest, logger *slog.Logger) {
	if !pack.HasCompanion() {
		return
	}
	registry := m.getRegistry()
	if registry == nil {
		return
	}
	companion, ok := registry.Get(pack.CompanionPackID)
	if !ok {
		logger.Warn("companion pack is not in the registry", "companion_pack_id", pack.CompanionPackID)
		return
	}

	installed, err := m.repo.FindByID(m.baseCtx, companion.ID)
	if err != nil {
		logger.Warn("failed to look up companion pack", "companion_pack_id", companion.ID, "error", err)
		return
	}
	if installed != nil {
		return
	}

	companionHandle, err := m.start(companion, h.progressListeners())
	if err != nil {
		logger.Warn("failed to start companion download", "companion_pack_id", companion.ID, "error", err)
		return
	}
	h.setCompanion(companionHandle)
}

func (m *Manager) stagingDirectory(h *DownloadHandle) string {
	return filepath.Join(m.options.StagingDirectory, h.PackID()+"-"+h.ID())
}

// DictionaryPath is where the installed dictionary of packID lives.
func (m *Manager) DictionaryPath(packID string) string {
	return filepath.Join(m.options.PacksDirectory, packID+dictionaryExtension)
}

// install stages, verifies and commits pack. Nothing outside the staging
// directory is touched until verification has passed.
func (m *Manager) install(ctx context.Context, h *DownloadHandle, pack manifest.PackManifest, logger *slog.Logger) error {
	stagingDir := m.stagingDirectory(h)
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", stagingDir, err)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			logger.Warn("failed to remove staging directory", "path", stagingDir, "error", err)
		}
	}()

	filename := filepath.Base(pack.Dictionary.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		filename = pack.ID + ".download"
	}
	assetPath := filepath.Join(stagingDir, filename)

	h.setStatus(StatusDownloading, 0)
	h.setBytes(0, pack.Dictionary.SizeBytes)
	if err := m.fetchWithRetry(ctx, h, pack, assetPath, logger); err != nil {
		return err
	}

	h.setStatus(StatusExtracting, downloadProgressMax)
	checksum, err := fileChecksum(assetPath)
	if err != nil {
		return fmt.Errorf("fileChecksum > %w", err)
	}
	if !strings.EqualFold(checksum, pack.Dictionary.Checksum) {
		return fmt.Errorf("%w: checksum of %s is %s, expected %s", ErrVerificationFailed, filename, checksum, pack.Dictionary.Checksum)
	}
	h.setStatus(StatusExtracting, 93)

	dictionaryPath := assetPath
	zipped, err := isZip(assetPath)
	if err != nil {
		return fmt.Errorf("isZip > %w", err)
	}
	if zipped {
		dictionaryPath = filepath.Join(stagingDir, pack.ID+dictionaryExtension)
		if err := extractDictionary(assetPath, dictionaryPath); err != nil {
			return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
	}
	h.setStatus(StatusExtracting, 96)

	if _, err := dictionary.VerifyIndex(ctx, dictionaryPath, pack.SourceLanguage); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	h.setStatus(StatusExtracting, verifyProgressMax)

	if err := ctx.Err(); err != nil {
		return err
	}
	return m.commit(pack, dictionaryPath)
}

// commit moves a verified dictionary into the packs directory and records it.
// The moved file is removed again if the record cannot be saved.
func (m *Manager) commit(pack manifest.PackManifest, stagedPath string) error {
	if err := os.MkdirAll(m.options.PacksDirectory, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", m.options.PacksDirectory, err)
	}
	finalPath := m.DictionaryPath(pack.ID)
	if err := os.Rename(stagedPath, finalPath); err != nil {
		return fmt.Errorf("os.Rename(%s) > %w", finalPath, err)
	}

	record := &InstalledLanguagePack{
		ID:             pack.ID,
		Manifest:       pack,
		DictionaryPath: finalPath,
		InstalledAt:    time.Now().UTC(),
	}
	// The commit must not be abandoned halfway, so it ignores cancellation.
	if err := m.repo.Save(context.Background(), record); err != nil {
		if removeErr := os.Remove(finalPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			m.logger.Error("failed to roll back installed dictionary", "path", finalPath, "error", removeErr)
		}
		return fmt.Errorf("repo.Save > %w", err)
	}
	return nil
}

func (m *Manager) fetchWithRetry(ctx context.Context, h *DownloadHandle, pack manifest.PackManifest, assetPath string, logger *slog.Logger) error {
	err := retry.Do(
		func() error {
			return m.fetch(ctx, h, pack, assetPath)
		},
		retry.Context(ctx),
		retry.Attempts(m.options.MaxRetries+1),
		retry.Delay(m.options.InitialBackoff),
		retry.MaxDelay(m.options.MaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(download.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			// Also called after the last attempt, which is not retried.
			if n >= m.options.MaxRetries {
				return
			}
			h.incrementRetry()
			logger.Info("retrying download", "attempt", n+1, "error", err)
		}),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
}

// fetch appends the remainder of the asset to assetPath, resuming from the
// bytes already staged. If the source restarts from an earlier offset the
// staged file is truncated to match.
func (m *Manager) fetch(ctx context.Context, h *DownloadHandle, pack manifest.PackManifest, assetPath string) error {
	var offset int64
	if info, err := os.Stat(assetPath); err == nil {
		offset = info.Size()
	}
	if offset > 0 && offset >= pack.Dictionary.SizeBytes {
		return nil
	}

	body, err := m.transport.Fetch(ctx, pack.Dictionary.URL, offset)
	if err != nil {
		return fmt.Errorf("transport.Fetch > %w", err)
	}
	defer func() {
		_ = body.Close()
	}()

	file, err := os.OpenFile(assetPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("os.OpenFile(%s) > %w", assetPath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if body.Offset != offset {
		offset = body.Offset
		if err := file.Truncate(offset); err != nil {
			return fmt.Errorf("file.Truncate > %w", err)
		}
	}
	if _, err := file.Seek(offset, 0); err != nil {
		return fmt.Errorf("file.Seek > %w", err)
	}

	total := body.Total
	if total <= 0 {
		total = pack.Dictionary.SizeBytes
	}
	h.setBytes(offset, total)

	buf := make([]byte, 32*1024)
	downloaded := offset
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return fmt.Errorf("file.Write > %w", err)
			}
			downloaded += int64(n)
			h.setBytes(downloaded, total)
		}
		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("body.Read > %w", readErr)
	}

	if total > 0 && downloaded < total {
		return fmt.Errorf("download %s: got %d of %d bytes > %w", pack.ID, downloaded, total, io.ErrUnexpectedEOF)
	}
	return nil
}

// RecordLookup counts a dictionary hit served by packID. Counts are flushed
// to the repository periodically and on Close.
func (m *Manager) RecordLookup(ctx context.Context, packID string) error {
	m.mu.Lock()
	m.lookups[packID]++
	m.pending++
	flush := m.pending >= lookupFlushInterval
	m.mu.Unlock()

	if flush {
		return m.FlushLookups(ctx)
	}
	return nil
}

// FlushLookups writes counted lookups to the repository.
func (m *Manager) FlushLookups(ctx context.Context) error {
	m.mu.Lock()
	if len(m.lookups) == 0 {
		m.mu.Unlock()
		return nil
	}
	counts := m.lookups
	m.lookups = make(map[string]int64)
	m.pending = 0
	m.mu.Unlock()

	if err := m.repo.AddLookups(ctx, counts); err != nil {
		m.mu.Lock()
		for id, count := range counts {
			m.lookups[id] += count
			m.pending += count
		}
		m.mu.Unlock()
		return fmt.Errorf("repo.AddLookups > %w", err)
	}
	return nil
}

// DeletePack removes an installed pack, and its companion when requested.
// Packs whose source language the user reads or speaks are refused with
// ErrPackInUse; a refused companion makes the result partial.
func (m *Manager) DeletePack(ctx context.Context, packID string, options DeleteOptions) (DeleteResult, error) {
	record, err := m.repo.FindByID(ctx, packID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("repo.FindByID > %w", err)
	}
	if record == nil {
		return DeleteResult{}, fmt.Errorf("%w: %s", ErrPackNotInstalled, packID)
	}

	inUse, err := m.languagesInUse(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	if slices.Contains(inUse, record.Manifest.SourceLanguage) {
		return DeleteResult{}, fmt.Errorf("%w: %s reads %s", ErrPackInUse, packID, record.Manifest.SourceLanguage)
	}

	var result DeleteResult
	if err := m.remove(ctx, record); err != nil {
		return DeleteResult{}, err
	}
	result.Deleted = append(result.Deleted, record.ID)

	if !options.IncludeCompanion || !record.Manifest.HasCompanion() {
		return result, nil
	}
	companion, err := m.repo.FindByID(ctx, record.Manifest.CompanionPackID)
	if err != nil {
		return result, fmt.Errorf("repo.FindByID > %w", err)
	}
	if companion == nil {
		return result, nil
	}
	if slices.Contains(inUse, companion.Manifest.SourceLanguage) {
		result.Surviving = append(result.Surviving, companion.ID)
		result.Partial = true
		return result, nil
	}
	if err := m.remove(ctx, companion); err != nil {
		result.Surviving = append(result.Surviving, companion.ID)
		result.Partial = true
		m.logger.Warn("failed to delete companion pack", "pack_id", companion.ID, "error", err)
		return result, nil
	}
	result.Deleted = append(result.Deleted, companion.ID)
	return result, nil
}

func (m *Manager) languagesInUse(ctx context.Context) ([]string, error) {
	if m.usage == nil {
		return nil, nil
	}
	languages, err := m.usage.LanguagesInUse(ctx)
	if err != nil {
		return nil, fmt.Errorf("usage.LanguagesInUse > %w", err)
	}
	return languages, nil
}

// remove deletes the record first, lets listeners drop their handles, and
// only then removes the file.
func (m *Manager) remove(ctx context.Context, record *InstalledLanguagePack) error {
	if err := m.repo.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("repo.Delete > %w", err)
	}
	m.mu.Lock()
	if count := m.lookups[record.ID]; count > 0 {
		m.pending -= count
		delete(m.lookups, record.ID)
	}
	m.mu.Unlock()

	m.notifyChange(ctx)

	if err := os.Remove(record.DictionaryPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove(%s) > %w", record.DictionaryPath, err)
	}
	m.logger.Info("language pack deleted", "pack_id", record.ID)
	return nil
}

// MissingLanguages returns the languages without an installed pack. The
// error wraps ErrMissingLanguagePacks when any is missing.
func (m *Manager) MissingLanguages(ctx context.Context, languages []string) ([]string, error) {
	packs, err := m.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.FindAll > %w", err)
	}
	var missing []string
	for _, language := range languages {
		found := slices.ContainsFunc(packs, func(pack InstalledLanguagePack) bool {
			return pack.Manifest.SourceLanguage == language
		})
		if !found && !slices.Contains(missing, language) {
			missing = append(missing, language)
		}
	}
	if len(missing) > 0 {
		return missing, fmt.Errorf("%w: %s", ErrMissingLanguagePacks, strings.Join(missing, ", "))
	}
	return nil, nil
}

// Reconcile makes records and files agree: records whose dictionary fails the
// structural check are dropped, dictionaries without a record are removed,
// and staging directories of downloads that are not running are cleared.
func (m *Manager) Reconcile(ctx context.Context) error {
	records, err := m.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("repo.FindAll > %w", err)
	}

	changed := false
	kept := make(map[string]bool)
	for _, record := range records {
		if _, err := dictionary.VerifyIndex(ctx, record.DictionaryPath, record.Manifest.SourceLanguage); err != nil {
			m.logger.Warn("dropping installed pack with an invalid dictionary", "pack_id", record.ID, "error", err)
			if err := m.repo.Delete(ctx, record.ID); err != nil {
				return fmt.Errorf("repo.Delete > %w", err)
			}
			if err := os.Remove(record.DictionaryPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				m.logger.Warn("failed to remove invalid dictionary", "pack_id", record.ID, "path", record.DictionaryPath, "error", err)
			}
			changed = true
			continue
		}
		kept[filepath.Clean(record.DictionaryPath)] = true
	}

	entries, err := os.ReadDir(m.options.PacksDirectory)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.ReadDir(%s) > %w", m.options.PacksDirectory, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != dictionaryExtension {
			continue
		}
		path := filepath.Join(m.options.PacksDirectory, entry.Name())
		if kept[filepath.Clean(path)] {
			continue
		}
		m.logger.Warn("removing orphaned dictionary", "path", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("os.Remove(%s) > %w", path, err)
		}
	}

	m.mu.Lock()
	running := make(map[string]bool, len(m.active))
	for _, h := range m.active {
		running[filepath.Base(m.stagingDirectory(h))] = true
	}
	m.mu.Unlock()

	staged, err := os.ReadDir(m.options.StagingDirectory)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.ReadDir(%s) > %w", m.options.StagingDirectory, err)
	}
	for _, entry := range staged {
		if running[entry.Name()] {
			continue
		}
		path := filepath.Join(m.options.StagingDirectory, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("os.RemoveAll(%s) > %w", path, err)
		}
	}

	if changed {
		m.notifyChange(ctx)
	}
	return nil
}

// Close cancels in-flight downloads, waits for them and flushes lookup
// counters.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancelAll()
	m.wg.Wait()
	return m.FlushLookups(context.Background())
}
