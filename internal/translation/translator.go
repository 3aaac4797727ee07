// Package translation provides the machine translation used when the local
// dictionary has no answer and for translating context passages.
package translation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

//go:generate mockgen -source=translator.go -destination=../mocks/translation/mock_translator.go -package=mock_translation

var (
	ErrUnavailable = errors.New("translation unavailable")
	ErrTimeout     = errors.New("translation timed out")
)

// Options describes a single translation request. From and To are language
// codes. A zero Timeout leaves the deadline to the caller's context.
type Options struct {
	From    string
	To      string
	Timeout time.Duration
}

type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Translator translates text between languages.
type Translator interface {
	IsAvailable(ctx context.Context) bool
	Translate(ctx context.Context, text string, options Options) (Result, error)
}

// Offline is the translator used when no provider is configured.
type Offline struct{}

func (Offline) IsAvailable(context.Context) bool {
	return false
}

func (Offline) Translate(context.Context, string, Options) (Result, error) {
	return Result{}, ErrUnavailable
}

// WithTimeout calls translator with options.Timeout applied. It returns when
// the deadline passes even if the translator does not honour its context,
// and reports the expiry as ErrTimeout.
func WithTimeout(ctx context.Context, translator Translator, text string, options Options) (Result, error) {
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := translator.Translate(ctx, text, options)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %w", ErrTimeout, o.err)
		}
		return o.result, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w after %s", ErrTimeout, options.Timeout)
		}
		return Result{}, ctx.Err()
	}
}
