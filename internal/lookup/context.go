package lookup

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/at-ishikawa/lexipack/internal/translation"
)

// ContextRequest is a passage around a looked-up word. Languages default to
// the profile's first target language and its preferred definition language.
type ContextRequest struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	Timeout        time.Duration
}

// SkipReason tells why a passage was not sent to the translator.
type SkipReason string

const (
	SkipEmpty        SkipReason = "empty"
	SkipTooLong      SkipReason = "too_long"
	SkipMetadata     SkipReason = "document_metadata"
	SkipSameLanguage SkipReason = "same_language"
)

type ContextResponse struct {
	Success        bool       `json:"success"`
	Text           string     `json:"text"`
	Translation    string     `json:"translation,omitempty"`
	SourceLanguage string     `json:"source_language,omitempty"`
	TargetLanguage string     `json:"target_language,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	Skipped        bool       `json:"skipped,omitempty"`
	Reason         SkipReason `json:"reason,omitempty"`
	Error          ErrorCode  `json:"error,omitempty"`
}

var boilerplatePattern = regexp.MustCompile(`(?i)copyright|©|\(c\)\s*\d{4}|all rights reserved|licen[cs]ed?\b|creative commons|\bisbn\b|project gutenberg|https?://|www\.`)

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "cite": true, "code": true, "em": true,
	"i": true, "mark": true, "q": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "u": true,
}

// plainText strips markup from s and folds runs of whitespace into one space.
func plainText(s string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	var builder strings.Builder
	skipping := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(builder.String()), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipping++
			}
			if !inlineTags[tag] {
				builder.WriteString(" ")
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skipping > 0 {
				skipping--
			}
			if !inlineTags[tag] {
				builder.WriteString(" ")
			}
		case html.SelfClosingTagToken:
			builder.WriteString(" ")
		case html.TextToken:
			if skipping == 0 {
				builder.Write(tokenizer.Text())
			}
		}
	}
}

// skipReason reports whether text is not worth a translation call.
func (r *Resolver) skipReason(text string) (SkipReason, bool) {
	switch {
	case text == "":
		return SkipEmpty, true
	case utf8.RuneCountInString(text) > r.config.ContextMaxLength:
		return SkipTooLong, true
	case boilerplatePattern.MatchString(text):
		return SkipMetadata, true
	}
	return "", false
}

// TranslateContext translates a passage with the translator. The local
// dictionary is never consulted.
func (r *Resolver) TranslateContext(ctx context.Context, request ContextRequest) ContextResponse {
	text := plainText(request.Text)
	response := ContextResponse{Text: text}

	if reason, skip := r.skipReason(text); skip {
		response.Skipped = true
		response.Reason = reason
		return response
	}

	source, target := request.SourceLanguage, request.TargetLanguage
	if source == "" || target == "" {
		userProfile, err := r.profiles.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				response.Error = ErrorCancelled
				return response
			}
			r.logger.Error("context translation failed", "call", "profiles.Get", "error", err)
			response.Error = ErrorTranslationFailed
			return response
		}
		if source == "" {
			source = userProfile.PrimaryTargetLanguage()
		}
		if target == "" {
			target = userProfile.PreferredDefinitionLanguage
		}
		if target == "" {
			target = userProfile.NativeLanguage
		}
	}
	response.SourceLanguage = source
	response.TargetLanguage = target
	if source == "" {
		response.Error = ErrorNoSourceLanguage
		return response
	}
	if source == target {
		response.Skipped = true
		response.Reason = SkipSameLanguage
		return response
	}

	if !r.translator.IsAvailable(ctx) {
		response.Error = ErrorTranslationUnavailable
		return response
	}

	timeout := request.Timeout
	if timeout <= 0 {
		timeout = r.config.FallbackTimeout
	}
	result, err := translation.WithTimeout(ctx, r.translator, text, translation.Options{
		From:    source,
		To:      target,
		Timeout: timeout,
	})
	if ctx.Err() != nil {
		response.Error = ErrorCancelled
		return response
	}
	if err != nil {
		r.logger.Warn("context translation failed", "from", source, "to", target, "error", err)
		switch {
		case errors.Is(err, translation.ErrTimeout):
			response.Error = ErrorTranslationTimeout
		case errors.Is(err, translation.ErrUnavailable):
			response.Error = ErrorTranslationUnavailable
		default:
			response.Error = ErrorTranslationFailed
		}
		return response
	}

	translated := strings.TrimSpace(result.Text)
	if translated == "" {
		response.Error = ErrorTranslationFailed
		return response
	}
	response.Success = true
	response.Translation = translated
	response.Confidence = result.Confidence
	return response
}
