package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/at-ishikawa/lexipack/internal/langtag"
)

// Defaults seeds the profile created on first use.
type Defaults struct {
	UserID         string
	NativeLanguage string
	// TargetLanguages maps a native language to the targets a new profile
	// with that native language starts with.
	TargetLanguages map[string][]string
}

// Service reads and updates the profile. Reads return copies.
type Service struct {
	repo      Repository
	defaults  Defaults
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
}

func NewService(repo Repository, defaults Defaults, logger *slog.Logger) *Service {
	if defaults.NativeLanguage == "" {
		defaults.NativeLanguage = "en"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		defaults:  defaults,
		validator: newValidator(),
		logger:    logger.With("component", "profile"),
		now:       time.Now,
	}
}

// DefaultTargetLanguages returns the configured targets for native, or
// English for non-English speakers and Spanish for English speakers.
func (s *Service) DefaultTargetLanguages(native string) []string {
	if targets, ok := s.defaults.TargetLanguages[native]; ok && len(targets) > 0 {
		return normalizeTargets(targets, native)
	}
	if native == "en" {
		return []string{"es"}
	}
	return []string{"en"}
}

func (s *Service) newProfile() Profile {
	native := normalizeLanguage(s.defaults.NativeLanguage)
	return Profile{
		UserID:                      s.defaults.UserID,
		NativeLanguage:              native,
		TargetLanguages:             s.DefaultTargetLanguages(native),
		PreferredDefinitionLanguage: native,
		ShowPronunciation:           true,
		ShowExamples:                true,
		UpdatedAt:                   s.now().UTC(),
	}
}

// load returns the stored profile, creating and saving the default one on
// first use. s.mu must be held.
func (s *Service) load(ctx context.Context) (Profile, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("repo.Load > %w", err)
	}
	if stored != nil {
		return *stored, nil
	}

	profile := s.newProfile()
	if err := validateProfile(s.validator, profile); err != nil {
		return Profile{}, err
	}
	if err := s.repo.Save(ctx, &profile); err != nil {
		return Profile{}, fmt.Errorf("repo.Save > %w", err)
	}
	s.logger.Info("created default profile",
		"native_language", profile.NativeLanguage,
		"target_languages", profile.TargetLanguages)
	return profile, nil
}

func (s *Service) Get(ctx context.Context) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.load(ctx)
	if err != nil {
		return Profile{}, err
	}
	return profile.clone(), nil
}

// Update merges update into the profile. A new native language without
// explicit targets resets the targets to its defaults and, unless given,
// the preferred definition language to the new native language.
func (s *Service) Update(ctx context.Context, update Update) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return Profile{}, err
	}
	profile := current.clone()

	nativeChanged := false
	if update.NativeLanguage != nil {
		native := normalizeLanguage(*update.NativeLanguage)
		nativeChanged = native != profile.NativeLanguage
		profile.NativeLanguage = native
	}

	switch {
	case update.TargetLanguages != nil:
		profile.TargetLanguages = update.TargetLanguages
	case nativeChanged:
		profile.TargetLanguages = s.DefaultTargetLanguages(profile.NativeLanguage)
	}
	for _, target := range profile.TargetLanguages {
		if !langtag.Valid(normalizeLanguage(target)) {
			return Profile{}, fmt.Errorf("%w: target_languages: invalid value %q", ErrInvalidProfile, target)
		}
	}
	profile.TargetLanguages = normalizeTargets(profile.TargetLanguages, profile.NativeLanguage)

	switch {
	case update.PreferredDefinitionLanguage != nil:
		profile.PreferredDefinitionLanguage = normalizeLanguage(*update.PreferredDefinitionLanguage)
	case nativeChanged:
		profile.PreferredDefinitionLanguage = profile.NativeLanguage
	}

	if update.ProficiencyLevels != nil {
		if profile.ProficiencyLevels == nil {
			profile.ProficiencyLevels = make(map[string]ProficiencyLevel, len(update.ProficiencyLevels))
		}
		for language, level := range update.ProficiencyLevels {
			profile.ProficiencyLevels[normalizeLanguage(language)] = level
		}
	}
	if update.ShowPronunciation != nil {
		profile.ShowPronunciation = *update.ShowPronunciation
	}
	if update.ShowExamples != nil {
		profile.ShowExamples = *update.ShowExamples
	}
	if update.ShowEtymology != nil {
		profile.ShowEtymology = *update.ShowEtymology
	}

	if err := validateProfile(s.validator, profile); err != nil {
		return Profile{}, err
	}
	profile.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, &profile); err != nil {
		return Profile{}, fmt.Errorf("repo.Save > %w", err)
	}
	return profile.clone(), nil
}

// RecordLookup counts a successful lookup in language.
func (s *Service) RecordLookup(ctx context.Context, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.load(ctx)
	if err != nil {
		return err
	}
	profile.TotalLookups++
	if profile.LanguageLookupCounts == nil {
		profile.LanguageLookupCounts = make(map[string]int64)
	}
	profile.LanguageLookupCounts[language]++
	profile.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, &profile); err != nil {
		return fmt.Errorf("repo.Save > %w", err)
	}
	return nil
}

// LanguagesInUse returns the native and target languages. Packs whose source
// language is listed cannot be deleted.
func (s *Service) LanguagesInUse(ctx context.Context) ([]string, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return profile.LanguagesInUse(), nil
}
