package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/at-ishikawa/lexipack/internal/config"
	"github.com/at-ishikawa/lexipack/internal/dictionary"
	"github.com/at-ishikawa/lexipack/internal/profile"
	"github.com/at-ishikawa/lexipack/internal/translation"
)

//go:generate mockgen -source=resolver.go -destination=../mocks/lookup/mock_resolver.go -package=mock_lookup

// Dictionary is the part of dictionary.Store the resolver reads from.
type Dictionary interface {
	Lookup(ctx context.Context, word string, language string) ([]dictionary.Entry, error)
	Suggest(ctx context.Context, word string, language string, limit int) ([]string, error)
	Prefix(ctx context.Context, prefix string, language string, limit int) ([]string, error)
	CheckMissingLanguages(languages []string) []string
}

type ProfileService interface {
	Get(ctx context.Context) (profile.Profile, error)
	RecordLookup(ctx context.Context, language string) error
}

// PackLookupRecorder counts lookups answered by an installed pack.
type PackLookupRecorder interface {
	RecordLookup(ctx context.Context, packID string) error
}

// Request is a single word to resolve. SourceLanguage defaults to the
// profile's first target language and Timeout bounds the fallback pass.
type Request struct {
	Word           string
	SourceLanguage string
	Timeout        time.Duration
}

type Resolver struct {
	dictionary Dictionary
	profiles   ProfileService
	translator translation.Translator
	recorder   PackLookupRecorder
	config     config.LookupConfig
	logger     *slog.Logger
}

func NewResolver(
	store Dictionary,
	profiles ProfileService,
	translator translation.Translator,
	recorder PackLookupRecorder,
	cfg config.LookupConfig,
	logger *slog.Logger,
) *Resolver {
	if translator == nil {
		translator = translation.Offline{}
	}
	if cfg.MaxSynonyms <= 0 {
		cfg.MaxSynonyms = 5
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 5 * time.Second
	}
	if cfg.FallbackConfidence <= 0 {
		cfg.FallbackConfidence = 0.6
	}
	if cfg.ContextMaxLength <= 0 {
		cfg.ContextMaxLength = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dictionary: store,
		profiles:   profiles,
		translator: translator,
		recorder:   recorder,
		config:     cfg,
		logger:     logger.With("component", "lookup"),
	}
}

// LookupWord resolves a word from the installed packs and falls back to the
// translator only when no pack has an answer.
func (r *Resolver) LookupWord(ctx context.Context, request Request) Response {
	word := strings.TrimSpace(request.Word)
	response := Response{Word: word}

	query := dictionary.Normalize(word)
	if !dictionary.HasLetter(query) {
		response.Error = ErrorInvalidWord
		return response
	}

	userProfile, err := r.profiles.Get(ctx)
	if err != nil {
		return r.failure(ctx, response, "profiles.Get", err)
	}
	source := request.SourceLanguage
	if source == "" {
		source = userProfile.PrimaryTargetLanguage()
	}
	if source == "" {
		response.Error = ErrorNoSourceLanguage
		return response
	}
	response.SourceLanguage = source

	if missing := r.dictionary.CheckMissingLanguages([]string{source}); len(missing) > 0 {
		response.Error = ErrorMissingLanguagePacks
		response.MissingLanguages = missing
		return response
	}

	entries, err := r.dictionary.Lookup(ctx, word, source)
	if err != nil {
		return r.failure(ctx, response, "dictionary.Lookup", err)
	}

	definitions := r.resolveEntries(entries, query, userProfile)
	if len(definitions) > 0 {
		if ctx.Err() != nil {
			return cancelled(response)
		}
		r.recordLookup(ctx, source, definitions)

		response.Success = true
		response.Source = SourceDictionary
		response.PrimaryDefinition = &definitions[0]
		if len(definitions) > 1 {
			response.Alternatives = definitions[1:]
		}
		return response
	}

	definition, err := r.fallback(ctx, word, query, source, userProfile.NativeLanguage, request.Timeout)
	if ctx.Err() != nil {
		return cancelled(response)
	}
	if definition != nil {
		r.recordLookup(ctx, source, nil)

		response.Success = true
		response.Source = SourceMLFallback
		response.PrimaryDefinition = definition
		return response
	}

	response.Error = ErrorLookupNotFound
	if errors.Is(err, translation.ErrTimeout) {
		response.Error = ErrorTranslationTimeout
	}
	if r.config.MaxSuggestions > 0 {
		suggestions, err := r.dictionary.Suggest(ctx, word, source, r.config.MaxSuggestions)
		if err != nil {
			r.logger.Warn("failed to build suggestions", "word", word, "language", source, "error", err)
		}
		response.Suggestions = suggestions
	}
	if ctx.Err() != nil {
		return cancelled(response)
	}
	return response
}

func cancelled(response Response) Response {
	return Response{
		Word:           response.Word,
		SourceLanguage: response.SourceLanguage,
		Error:          ErrorCancelled,
	}
}

func (r *Resolver) failure(ctx context.Context, response Response, call string, err error) Response {
	if ctx.Err() != nil {
		return cancelled(response)
	}
	r.logger.Error("lookup failed", "call", call, "word", response.Word, "error", err)
	response.Error = ErrorLookupFailed
	return response
}

func (r *Resolver) resolveEntries(entries []dictionary.Entry, query string, userProfile profile.Profile) []Definition {
	definitions := make([]Definition, 0, len(entries))
	for _, entry := range entries {
		groups := buildMeaningGroups(entry, query, userProfile.NativeLanguage, r.config.MaxSynonyms)
		if !userProfile.ShowExamples {
			for i := range groups {
				groups[i].Example = ""
			}
		}
		word := entry.Headword
		if word == "" {
			word = entry.Lemma
		}
		definition := Definition{
			Word:          word,
			Lemma:         entry.Lemma,
			Language:      entry.Language,
			PackID:        entry.PackID,
			MeaningGroups: groups,
			Translations:  sortTranslations(entry.Translations, userProfile.NativeLanguage),
			Confidence:    dictionaryConfidence,
		}
		if userProfile.ShowPronunciation {
			definition.Pronunciation = entry.Pronunciation
		}
		definitions = append(definitions, definition)
	}
	return deduplicate(definitions)
}

func (r *Resolver) fallback(ctx context.Context, word, query, source, native string, timeout time.Duration) (*Definition, error) {
	if native == "" || source == native || !r.translator.IsAvailable(ctx) {
		return nil, nil
	}
	if timeout <= 0 {
		timeout = r.config.FallbackTimeout
	}

	result, err := translation.WithTimeout(ctx, r.translator, word, translation.Options{
		From:    source,
		To:      native,
		Timeout: timeout,
	})
	if err != nil {
		r.logger.Warn("fallback translation failed", "word", word, "from", source, "to", native, "error", err)
		return nil, err
	}
	text := strings.TrimSpace(result.Text)
	if text == "" || dictionary.Normalize(text) == query {
		return nil, nil
	}
	return &Definition{
		Word:     word,
		Lemma:    query,
		Language: source,
		Translations: []dictionary.Translation{
			{Word: text, Language: native, Confidence: r.config.FallbackConfidence},
		},
		Confidence: r.config.FallbackConfidence,
	}, nil
}

func (r *Resolver) recordLookup(ctx context.Context, source string, definitions []Definition) {
	if err := r.profiles.RecordLookup(ctx, source); err != nil {
		r.logger.Warn("failed to record lookup", "language", source, "error", err)
	}
	if r.recorder == nil {
		return
	}
	recorded := make(map[string]bool)
	for _, definition := range definitions {
		if definition.PackID == "" || recorded[definition.PackID] {
			continue
		}
		recorded[definition.PackID] = true
		if err := r.recorder.RecordLookup(ctx, definition.PackID); err != nil {
			r.logger.Warn("failed to record pack lookup", "pack_id", definition.PackID, "error", err)
		}
	}
}

// Suggest returns lemmas starting with prefix for autocompletion.
func (r *Resolver) Suggest(ctx context.Context, prefix string, language string, limit int) ([]string, error) {
	if language == "" {
		userProfile, err := r.profiles.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("profiles.Get > %w", err)
		}
		language = userProfile.PrimaryTargetLanguage()
	}
	if limit <= 0 {
		limit = r.config.MaxSuggestions
	}
	return r.dictionary.Prefix(ctx, prefix, language, limit)
}
