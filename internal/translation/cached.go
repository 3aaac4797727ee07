package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Cached remembers successful translations in a FileCache.
type Cached struct {
	next   Translator
	cache  *FileCache
	logger *slog.Logger
}

func NewCached(next Translator, cache *FileCache, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: cache, logger: logger.With("component", "translation_cache")}
}

func (c *Cached) IsAvailable(ctx context.Context) bool {
	return c.next.IsAvailable(ctx)
}

func cacheKey(text string, options Options) string {
	return strings.Join([]string{options.From, options.To, text}, "\x00")
}

func (c *Cached) Translate(ctx context.Context, text string, options Options) (Result, error) {
	contents, err := c.cache.cache(cacheKey(text, options), func() ([]byte, error) {
		result, err := c.next.Translate(ctx, text, options)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("json.Marshal > %w", err)
		}
		return encoded, nil
	})
	if err != nil && contents == nil {
		return Result{}, err
	}
	if err != nil {
		c.logger.Warn("failed to cache translation", "error", err)
	}

	var result Result
	if err := json.Unmarshal(contents, &result); err != nil {
		return Result{}, fmt.Errorf("json.Unmarshal(cached translation) > %w", err)
	}
	return result, nil
}
