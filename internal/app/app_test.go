package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/lexipack/internal/config"
	"github.com/at-ishikawa/lexipack/internal/languagepack"
	"github.com/at-ishikawa/lexipack/internal/lookup"
	"github.com/at-ishikawa/lexipack/internal/testutil"
	"github.com/at-ishikawa/lexipack/internal/translation"
)

func testConfig(t *testing.T, stateStore string) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Log: config.LogConfig{Level: "debug", Format: "text"},
		Storage: config.StorageConfig{
			PacksDirectory:   filepath.Join(root, "packs"),
			StagingDirectory: filepath.Join(root, "staging"),
			CacheDirectory:   filepath.Join(root, "cache"),
			StateDirectory:   filepath.Join(root, "state"),
			StateStore:       stateStore,
		},
		Download: config.DownloadConfig{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		Lookup: config.LookupConfig{
			MaxSynonyms:        5,
			MaxSuggestions:     5,
			FuzzyMaxDistance:   2,
			FuzzyMaxCandidates: 10,
			FuzzyScanLimit:     1000,
			FallbackTimeout:    time.Second,
			FallbackConfidence: 0.6,
			ContextMaxLength:   500,
		},
		Translation: config.TranslationConfig{Provider: "none", Timeout: time.Second},
		Profile:     config.ProfileConfig{Store: stateStore, UserID: "default", DefaultNativeLanguage: "es"},
		Database:    config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(root, "state", "state.db")},
	}
}

func TestApp_InstallAndLookup(t *testing.T) {
	for _, stateStore := range []string{"yaml", "database"} {
		t.Run(stateStore, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, stateStore)
			cfg.Registry.File = testutil.BuildTestCatalog(t, t.TempDir())

			a, err := New(ctx, cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, a.Close())
			}()
			assert.IsType(t, translation.Offline{}, a.Translator)
			assert.Len(t, a.Packs.ListAvailable(), 3)

			missing := a.Resolver.LookupWord(ctx, lookup.Request{Word: "house"})
			assert.Equal(t, lookup.ErrorMissingLanguagePacks, missing.Error)
			assert.Equal(t, []string{"en"}, missing.MissingLanguages)

			handle, err := a.Packs.StartDownload(ctx, "en-es", nil)
			require.NoError(t, err)
			state, err := handle.Wait(ctx)
			require.NoError(t, err)
			assert.Equal(t, languagepack.StatusCompleted, state.Status)
			require.NotNil(t, handle.Companion())
			_, err = handle.Companion().Wait(ctx)
			require.NoError(t, err)

			installState, err := a.Packs.InstallState(ctx, "en-es")
			require.NoError(t, err)
			assert.Equal(t, languagepack.InstallStateInstalled, installState)

			got := a.Resolver.LookupWord(ctx, lookup.Request{Word: "House"})
			require.True(t, got.Success, "error = %s", got.Error)
			assert.Equal(t, lookup.SourceDictionary, got.Source)
			require.NotNil(t, got.PrimaryDefinition)
			require.Len(t, got.PrimaryDefinition.MeaningGroups, 2)
			assert.Equal(t, []string{"casa", "home", "dwelling", "hogar"}, got.PrimaryDefinition.MeaningGroups[0].Synonyms)
			assert.Equal(t, []string{"casa", "shelter", "hogar"}, got.PrimaryDefinition.MeaningGroups[1].Synonyms)

			reverse := a.Resolver.LookupWord(ctx, lookup.Request{Word: "casa", SourceLanguage: "es"})
			assert.True(t, reverse.Success)

			stats, err := a.Packs.StorageStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, stats.TotalInstalled)
		})
	}
}

// holdingRegistry serves a catalog directory over HTTP. Pack archives stop
// after half of their bytes until release is called.
type holdingRegistry struct {
	server    *httptest.Server
	requested chan struct{}
	release   func()
}

func newHoldingRegistry(t *testing.T, dir string) *holdingRegistry {
	t.Helper()
	requested := make(chan struct{})
	released := make(chan struct{})
	var requestedOnce, releaseOnce sync.Once

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(filepath.Join(dir, path.Base(r.URL.Path)))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if !strings.HasSuffix(r.URL.Path, ".zip") {
			_, _ = w.Write(data)
			return
		}

		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data[:len(data)/2])
		w.(http.Flusher).Flush()
		requestedOnce.Do(func() {
			close(requested)
		})
		select {
		case <-released:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write(data[len(data)/2:])
	}))
	registry := &holdingRegistry{
		server:    server,
		requested: requested,
		release: func() {
			releaseOnce.Do(func() {
				close(released)
			})
		},
	}
	t.Cleanup(server.Close)
	t.Cleanup(registry.release)
	return registry
}

func TestApp_LookupWhileDownloading(t *testing.T) {
	ctx := context.Background()
	catalogDir := t.TempDir()
	testutil.BuildTestCatalog(t, catalogDir)
	registry := newHoldingRegistry(t, catalogDir)

	cfg := testConfig(t, "yaml")
	cfg.Registry.URL = registry.server.URL + "/catalog.json"
	a, err := New(ctx, cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, a.Close())
	}()
	require.Len(t, a.Packs.ListAvailable(), 3)

	handle, err := a.Packs.StartDownload(ctx, "en-es", nil)
	require.NoError(t, err)
	select {
	case <-registry.requested:
	case <-time.After(10 * time.Second):
		t.Fatal("the pack archive was never requested")
	}

	installState, err := a.Packs.InstallState(ctx, "en-es")
	require.NoError(t, err)
	assert.Equal(t, languagepack.InstallStateDownloading, installState)
	assert.Equal(t, languagepack.StatusDownloading, handle.Snapshot().Status)

	missing := a.Resolver.LookupWord(ctx, lookup.Request{Word: "house"})
	assert.False(t, missing.Success)
	assert.Equal(t, lookup.ErrorMissingLanguagePacks, missing.Error)
	assert.Equal(t, []string{"en"}, missing.MissingLanguages)

	registry.release()
	state, err := handle.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, languagepack.StatusCompleted, state.Status)
	require.NotNil(t, handle.Companion())
	_, err = handle.Companion().Wait(ctx)
	require.NoError(t, err)

	got := a.Resolver.LookupWord(ctx, lookup.Request{Word: "house"})
	assert.True(t, got.Success, "error = %s", got.Error)
}

func TestApp_UnreachableRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "yaml")
	cfg.Registry.URL = "http://127.0.0.1:1/catalog.json"

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Empty(t, a.Packs.ListAvailable())
}

func TestNewTranslator(t *testing.T) {
	cfg := testConfig(t, "yaml")

	cfg.Translation.Provider = "openai"
	cfg.Translation.OpenAI.APIKey = "test"
	cfg.Translation.Cache = true
	got, err := newTranslator(cfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &closingTranslator{}, got)
	assert.NoError(t, got.(*closingTranslator).Close())

	cfg.Translation.Provider = "deepl"
	_, err = newTranslator(cfg, slog.Default())
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		debug     bool
		wantDebug bool
		wantJSON  bool
	}{
		{name: "info text", cfg: config.LogConfig{Level: "info", Format: "text"}},
		{name: "debug flag wins", cfg: config.LogConfig{Level: "error", Format: "text"}, debug: true, wantDebug: true},
		{name: "json", cfg: config.LogConfig{Level: "debug", Format: "json"}, wantDebug: true, wantJSON: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.cfg, tt.debug, &buf)
			logger.Debug("debug message", "component", "test")
			if !tt.wantDebug {
				assert.Empty(t, buf.String())
				return
			}
			if tt.wantJSON {
				var record map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
				assert.Equal(t, "debug message", record["msg"])
				return
			}
			assert.Contains(t, buf.String(), "msg=\"debug message\"")
		})
	}
}
