// Package profile keeps the user's language profile: the native language,
// the languages being read, display preferences and lookup counters.
package profile

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/at-ishikawa/lexipack/internal/langtag"
)

var ErrInvalidProfile = errors.New("invalid profile")

type ProficiencyLevel string

const (
	ProficiencyBeginner     ProficiencyLevel = "beginner"
	ProficiencyIntermediate ProficiencyLevel = "intermediate"
	ProficiencyAdvanced     ProficiencyLevel = "advanced"
	ProficiencyNative       ProficiencyLevel = "native"
)

// Profile is the user's language profile. TargetLanguages is ordered and the
// first entry is the default source language of lookups.
type Profile struct {
	UserID                      string                      `json:"user_id" yaml:"user_id"`
	NativeLanguage              string                      `json:"native_language" yaml:"native_language" validate:"langcode"`
	TargetLanguages             []string                    `json:"target_languages" yaml:"target_languages" validate:"dive,langcode"`
	PreferredDefinitionLanguage string                      `json:"preferred_definition_language" yaml:"preferred_definition_language" validate:"langcode"`
	ProficiencyLevels           map[string]ProficiencyLevel `json:"proficiency_levels,omitempty" yaml:"proficiency_levels,omitempty" validate:"dive,keys,langcode,endkeys,oneof=beginner intermediate advanced native"`
	ShowPronunciation           bool                        `json:"show_pronunciation" yaml:"show_pronunciation"`
	ShowExamples                bool                        `json:"show_examples" yaml:"show_examples"`
	ShowEtymology               bool                        `json:"show_etymology" yaml:"show_etymology"`
	TotalLookups                int64                       `json:"total_lookups" yaml:"total_lookups"`
	LanguageLookupCounts        map[string]int64            `json:"language_lookup_counts,omitempty" yaml:"language_lookup_counts,omitempty"`
	UpdatedAt                   time.Time                   `json:"updated_at" yaml:"updated_at"`
}

// PrimaryTargetLanguage returns the first target language, or "" if none.
func (p Profile) PrimaryTargetLanguage() string {
	if len(p.TargetLanguages) == 0 {
		return ""
	}
	return p.TargetLanguages[0]
}

// LanguagesInUse returns the native language followed by the targets.
func (p Profile) LanguagesInUse() []string {
	languages := make([]string, 0, len(p.TargetLanguages)+1)
	if p.NativeLanguage != "" {
		languages = append(languages, p.NativeLanguage)
	}
	for _, language := range p.TargetLanguages {
		if !slices.Contains(languages, language) {
			languages = append(languages, language)
		}
	}
	return languages
}

func (p Profile) clone() Profile {
	cloned := p
	cloned.TargetLanguages = slices.Clone(p.TargetLanguages)
	if p.ProficiencyLevels != nil {
		cloned.ProficiencyLevels = make(map[string]ProficiencyLevel, len(p.ProficiencyLevels))
		for k, v := range p.ProficiencyLevels {
			cloned.ProficiencyLevels[k] = v
		}
	}
	if p.LanguageLookupCounts != nil {
		cloned.LanguageLookupCounts = make(map[string]int64, len(p.LanguageLookupCounts))
		for k, v := range p.LanguageLookupCounts {
			cloned.LanguageLookupCounts[k] = v
		}
	}
	return cloned
}

// Update lists the fields to change. Nil fields are left as they are.
type Update struct {
	NativeLanguage              *string                     `json:"native_language,omitempty"`
	TargetLanguages             []string                    `json:"target_languages,omitempty"`
	PreferredDefinitionLanguage *string                     `json:"preferred_definition_language,omitempty"`
	ProficiencyLevels           map[string]ProficiencyLevel `json:"proficiency_levels,omitempty"`
	ShowPronunciation           *bool                       `json:"show_pronunciation,omitempty"`
	ShowExamples                *bool                       `json:"show_examples,omitempty"`
	ShowEtymology               *bool                       `json:"show_etymology,omitempty"`
}

// normalizeTargets lowercases the primary subtag, drops duplicates and the
// native language, and keeps the order.
func normalizeTargets(targets []string, native string) []string {
	result := make([]string, 0, len(targets))
	for _, target := range targets {
		target = normalizeLanguage(target)
		if target == "" || target == native || slices.Contains(result, target) {
			continue
		}
		result = append(result, target)
	}
	return result
}

func normalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	primary, rest, found := strings.Cut(code, "-")
	primary = strings.ToLower(primary)
	if !found {
		return primary
	}
	return primary + "-" + rest
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	_ = validate.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return langtag.Valid(fl.Field().String())
	})
	return validate
}

func validateProfile(v *validator.Validate, p Profile) error {
	if err := v.Struct(p); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				messages = append(messages, fmt.Sprintf("%s: invalid value %q", fe.Namespace(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(messages, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return nil
}
