package dictionary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// PackSource lists the language packs that are installed.
type PackSource interface {
	InstalledPacks(ctx context.Context) ([]InstalledPack, error)
}

type Options struct {
	FuzzyMaxDistance   int
	FuzzyMaxCandidates int
	FuzzyScanLimit     int
	// OpenConcurrency bounds how many index files are opened at once.
	OpenConcurrency int
}

type index struct {
	pack InstalledPack
	db   *sqlx.DB
}

// Store answers lookups from the sqlite indexes of installed language packs.
// Lookups share open handles; Initialize swaps them under the write lock so
// removed handles are only closed after in-flight lookups finish.
type Store struct {
	source  PackSource
	options Options
	logger  *slog.Logger

	initMu    sync.Mutex
	requested []string

	mu      sync.RWMutex
	indexes map[string][]*index
}

func NewStore(source PackSource, options Options, logger *slog.Logger) *Store {
	if options.FuzzyMaxDistance <= 0 {
		options.FuzzyMaxDistance = 2
	}
	if options.FuzzyMaxCandidates <= 0 {
		options.FuzzyMaxCandidates = 10
	}
	if options.FuzzyScanLimit <= 0 {
		options.FuzzyScanLimit = 20000
	}
	if options.OpenConcurrency <= 0 {
		options.OpenConcurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source:  source,
		options: options,
		logger:  logger.With("component", "dictionary"),
		indexes: make(map[string][]*index),
	}
}

// Initialize opens the indexes of installed packs whose source language is in
// languages, or of every installed pack when languages is empty. Packs that
// fail the structural check are logged and left out. Handles of packs that
// did not change since the previous call are kept.
func (s *Store) Initialize(ctx context.Context, languages []string) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	packs, err := s.source.InstalledPacks(ctx)
	if err != nil {
		return fmt.Errorf("source.InstalledPacks > %w", err)
	}
	s.requested = slices.Clone(languages)

	s.mu.RLock()
	current := make(map[string]*index)
	for _, indexes := range s.indexes {
		for _, idx := range indexes {
			current[idx.pack.ID] = idx
		}
	}
	s.mu.RUnlock()

	var selected []InstalledPack
	for _, pack := range packs {
		if len(languages) == 0 || slices.Contains(languages, pack.SourceLanguage) {
			selected = append(selected, pack)
		}
	}

	opened := make([]*index, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.OpenConcurrency)
	for i, pack := range selected {
		if existing, ok := current[pack.ID]; ok && existing.pack.sameInstall(pack) {
			opened[i] = existing
			continue
		}
		g.Go(func() error {
			db, err := openIndex(gctx, pack.Path)
			if err != nil {
				s.logger.Warn("skipping language pack", "pack_id", pack.ID, "path", pack.Path, "error", err)
				return nil
			}
			if _, err := verifyIndex(gctx, db, pack.SourceLanguage); err != nil {
				_ = db.Close()
				s.logger.Warn("skipping language pack", "pack_id", pack.ID, "path", pack.Path, "error", err)
				return nil
			}
			opened[i] = &index{pack: pack, db: db}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("open indexes > %w", err)
	}

	next := make(map[string][]*index)
	kept := make(map[*index]bool)
	for _, idx := range opened {
		if idx == nil {
			continue
		}
		kept[idx] = true
		next[idx.pack.SourceLanguage] = append(next[idx.pack.SourceLanguage], idx)
	}

	s.mu.Lock()
	s.indexes = next
	s.mu.Unlock()

	for _, idx := range current {
		if kept[idx] {
			continue
		}
		if err := idx.db.Close(); err != nil {
			s.logger.Warn("failed to close index", "pack_id", idx.pack.ID, "error", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.Debug("dictionary store initialized", "languages", languages, "packs", len(kept))
	return nil
}

// Reload re-runs Initialize with the languages of the last call.
func (s *Store) Reload(ctx context.Context) error {
	s.initMu.Lock()
	languages := slices.Clone(s.requested)
	s.initMu.Unlock()
	return s.Initialize(ctx, languages)
}

// Lookup returns the entries whose lemma matches word exactly after
// normalization, in pack order and then index order.
func (s *Store) Lookup(ctx context.Context, word string, language string) ([]Entry, error) {
	normalized := Normalize(word)
	if normalized == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	for _, idx := range s.indexes[language] {
		var rows []entryRow
		if err := idx.db.SelectContext(ctx, &rows, `SELECT id, lemma, headword, language, definitions, translations, frequency, pronunciation
			FROM entries WHERE lemma = ? COLLATE NOCASE ORDER BY id`, normalized); err != nil {
			return nil, fmt.Errorf("db.SelectContext(entries of %s) > %w", idx.pack.ID, err)
		}
		for _, row := range rows {
			if Normalize(row.Lemma) != normalized {
				continue
			}
			entry, err := row.toEntry(idx.pack.ID)
			if err != nil {
				return nil, fmt.Errorf("row.toEntry > %w", err)
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type suggestion struct {
	lemma     string
	distance  int
	frequency int64
}

// Suggest returns up to limit lemmas within the configured edit distance of
// word, closest first, then most frequent, then alphabetical.
func (s *Store) Suggest(ctx context.Context, word string, language string, limit int) ([]string, error) {
	normalized := Normalize(word)
	if normalized == "" || limit <= 0 {
		return nil, nil
	}
	if limit > s.options.FuzzyMaxCandidates {
		limit = s.options.FuzzyMaxCandidates
	}
	length := utf8.RuneCountInString(normalized)
	maxDistance := s.options.FuzzyMaxDistance

	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[string]suggestion)
	for _, idx := range s.indexes[language] {
		var rows []struct {
			Lemma     string `db:"lemma"`
			Frequency int64  `db:"frequency"`
		}
		if err := idx.db.SelectContext(ctx, &rows, `SELECT lemma, COALESCE(frequency, 0) AS frequency
			FROM entries WHERE length(lemma) BETWEEN ? AND ? LIMIT ?`,
			max(length-maxDistance, 1), length+maxDistance, s.options.FuzzyScanLimit); err != nil {
			return nil, fmt.Errorf("db.SelectContext(fuzzy scan of %s) > %w", idx.pack.ID, err)
		}
		for _, row := range rows {
			lemma := Normalize(row.Lemma)
			if lemma == normalized || lemma == "" {
				continue
			}
			distance := levenshtein.ComputeDistance(normalized, lemma)
			if distance > maxDistance {
				continue
			}
			if prev, ok := best[lemma]; ok && (prev.distance < distance || (prev.distance == distance && prev.frequency >= row.Frequency)) {
				continue
			}
			best[lemma] = suggestion{lemma: lemma, distance: distance, frequency: row.Frequency}
		}
	}

	candidates := make([]suggestion, 0, len(best))
	for _, candidate := range best {
		candidates = append(candidates, candidate)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.frequency != b.frequency {
			return a.frequency > b.frequency
		}
		return a.lemma < b.lemma
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	var result []string
	for _, candidate := range candidates {
		result = append(result, candidate.lemma)
	}
	return result, nil
}

// Prefix returns up to limit distinct lemmas starting with prefix, in
// alphabetical order.
func (s *Store) Prefix(ctx context.Context, prefix string, language string, limit int) ([]string, error) {
	normalized := Normalize(prefix)
	if normalized == "" || limit <= 0 {
		return nil, nil
	}
	pattern := likeEscaper.Replace(normalized) + "%"

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var lemmas []string
	for _, idx := range s.indexes[language] {
		var rows []string
		if err := idx.db.SelectContext(ctx, &rows, `SELECT DISTINCT lemma FROM entries
			WHERE lemma LIKE ? ESCAPE '\' ORDER BY lemma LIMIT ?`, pattern, limit); err != nil {
			return nil, fmt.Errorf("db.SelectContext(prefix scan of %s) > %w", idx.pack.ID, err)
		}
		for _, lemma := range rows {
			if seen[lemma] || !strings.HasPrefix(lemma, normalized) {
				continue
			}
			seen[lemma] = true
			lemmas = append(lemmas, lemma)
		}
	}
	sort.Strings(lemmas)
	if len(lemmas) > limit {
		lemmas = lemmas[:limit]
	}
	return lemmas, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// IsLanguageAvailable reports whether at least one verified index for
// language is open.
func (s *Store) IsLanguageAvailable(language string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indexes[language]) > 0
}

// CheckMissingLanguages returns the languages with no open index, in the
// order given and without duplicates.
func (s *Store) CheckMissingLanguages(languages []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, language := range languages {
		if len(s.indexes[language]) > 0 || slices.Contains(missing, language) {
			continue
		}
		missing = append(missing, language)
	}
	return missing
}

// Packs returns the packs currently open for language.
func (s *Store) Packs(language string) []InstalledPack {
	s.mu.RLock()
	defer s.mu.RUnlock()

	packs := make([]InstalledPack, 0, len(s.indexes[language]))
	for _, idx := range s.indexes[language] {
		packs = append(packs, idx.pack)
	}
	return packs
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, indexes := range s.indexes {
		for _, idx := range indexes {
			if err := idx.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close index %s > %w", idx.pack.ID, err))
			}
		}
	}
	s.indexes = make(map[string][]*index)
	return errors.Join(errs...)
}
