// Package server provides Connect RPC handlers for lookups, language packs
// and the user profile.
package server

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/at-ishikawa/lexipack/internal/lookup"
)

// Lookup is the part of lookup.Resolver the server exposes.
type Lookup interface {
	LookupWord(ctx context.Context, request lookup.Request) lookup.Response
	TranslateContext(ctx context.Context, request lookup.ContextRequest) lookup.ContextResponse
	Suggest(ctx context.Context, prefix string, language string, limit int) ([]string, error)
}

type LookupWordRequest struct {
	Word           string `json:"word"`
	SourceLanguage string `json:"source_language,omitempty"`
	TimeoutMS      int64  `json:"timeout_ms,omitempty"`
}

type TranslateContextRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	TimeoutMS      int64  `json:"timeout_ms,omitempty"`
}

type SuggestRequest struct {
	Prefix   string `json:"prefix"`
	Language string `json:"language,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// LookupHandler serves lexipack.v1.LookupService. Lookup failures are part
// of the response body, not RPC errors.
type LookupHandler struct {
	resolver Lookup
}

func NewLookupHandler(resolver Lookup) *LookupHandler {
	return &LookupHandler{resolver: resolver}
}

func (h *LookupHandler) LookupWord(
	ctx context.Context,
	req *connect.Request[LookupWordRequest],
) (*connect.Response[lookup.Response], error) {
	response := h.resolver.LookupWord(ctx, lookup.Request{
		Word:           req.Msg.Word,
		SourceLanguage: req.Msg.SourceLanguage,
		Timeout:        time.Duration(req.Msg.TimeoutMS) * time.Millisecond,
	})
	return connect.NewResponse(&response), nil
}

func (h *LookupHandler) TranslateContext(
	ctx context.Context,
	req *connect.Request[TranslateContextRequest],
) (*connect.Response[lookup.ContextResponse], error) {
	response := h.resolver.TranslateContext(ctx, lookup.ContextRequest{
		Text:           req.Msg.Text,
		SourceLanguage: req.Msg.SourceLanguage,
		TargetLanguage: req.Msg.TargetLanguage,
		Timeout:        time.Duration(req.Msg.TimeoutMS) * time.Millisecond,
	})
	return connect.NewResponse(&response), nil
}

func (h *LookupHandler) Suggest(
	ctx context.Context,
	req *connect.Request[SuggestRequest],
) (*connect.Response[SuggestResponse], error) {
	if strings.TrimSpace(req.Msg.Prefix) == "" {
		return nil, invalidArgument("prefix", "must not be empty")
	}
	suggestions, err := h.resolver.Suggest(ctx, req.Msg.Prefix, req.Msg.Language, req.Msg.Limit)
	if err != nil {
		return nil, connectError(err)
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return connect.NewResponse(&SuggestResponse{Suggestions: suggestions}), nil
}
