// Package app wires the components of lexipack from a configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/lexipack/internal/config"
	"github.com/at-ishikawa/lexipack/internal/database"
	"github.com/at-ishikawa/lexipack/internal/dictionary"
	"github.com/at-ishikawa/lexipack/internal/download"
	"github.com/at-ishikawa/lexipack/internal/languagepack"
	"github.com/at-ishikawa/lexipack/internal/lookup"
	"github.com/at-ishikawa/lexipack/internal/manifest"
	"github.com/at-ishikawa/lexipack/internal/profile"
	"github.com/at-ishikawa/lexipack/internal/translation"
	"github.com/at-ishikawa/lexipack/internal/translation/openai"
)

const (
	installedPacksFile = "installed.yml"
	profileFile        = "profile.yml"
)

// App holds the long lived components. Close releases them.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Packs      *languagepack.Manager
	Store      *dictionary.Store
	Profiles   *profile.Service
	Translator translation.Translator
	Resolver   *lookup.Resolver

	db      *sqlx.DB
	closers []func() error
}

// New builds every component from cfg. The catalog is read from
// registry.file, else fetched from registry.url. A catalog that cannot be
// fetched leaves the available list empty; installed packs keep working.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	for _, directory := range []string{
		cfg.Storage.PacksDirectory,
		cfg.Storage.StagingDirectory,
		cfg.Storage.CacheDirectory,
		cfg.Storage.StateDirectory,
	} {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return fmt.Errorf("os.MkdirAll(%s) > %w", directory, err)
		}
	}

	if cfg.Storage.StateStore == "database" || cfg.Profile.Store == "database" {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("database.Open > %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("database.Migrate > %w", err)
		}
	}

	var profileRepository profile.Repository = profile.NewYAMLRepository(filepath.Join(cfg.Storage.StateDirectory, profileFile))
	if cfg.Profile.Store == "database" {
		profileRepository = profile.NewDBRepository(a.db, cfg.Profile.UserID)
	}
	a.Profiles = profile.NewService(profileRepository, profile.Defaults{
		UserID:          cfg.Profile.UserID,
		NativeLanguage:  cfg.Profile.DefaultNativeLanguage,
		TargetLanguages: cfg.Profile.DefaultTargetLanguages,
	}, a.Logger)

	var packRepository languagepack.Repository = languagepack.NewYAMLRepository(filepath.Join(cfg.Storage.StateDirectory, installedPacksFile))
	if cfg.Storage.StateStore == "database" {
		packRepository = languagepack.NewDBRepository(a.db)
	}

	httpClient := resty.New()
	if cfg.Download.Timeout > 0 {
		httpClient.SetTimeout(cfg.Download.Timeout)
	}
	registry, err := loadRegistry(ctx, cfg.Registry, httpClient, a.Logger)
	if err != nil {
		return fmt.Errorf("loadRegistry > %w", err)
	}

	a.Packs = languagepack.NewManager(
		registry,
		packRepository,
		download.NewHTTPTransport(httpClient),
		languagepack.StatfsDiskSpace{},
		a.Profiles,
		languagepack.Options{
			PacksDirectory:   cfg.Storage.PacksDirectory,
			StagingDirectory: cfg.Storage.StagingDirectory,
			ReserveBytes:     cfg.Storage.ReserveBytes,
			MaxRetries:       cfg.Download.MaxRetries,
			InitialBackoff:   cfg.Download.InitialBackoff,
			MaxBackoff:       cfg.Download.MaxBackoff,
		},
		a.Logger,
	)
	a.closers = append(a.closers, a.Packs.Close)
	if err := a.Packs.Reconcile(ctx); err != nil {
		return fmt.Errorf("Packs.Reconcile > %w", err)
	}

	a.Store = dictionary.NewStore(a.Packs, dictionary.Options{
		FuzzyMaxDistance:   cfg.Lookup.FuzzyMaxDistance,
		FuzzyMaxCandidates: cfg.Lookup.FuzzyMaxCandidates,
		FuzzyScanLimit:     cfg.Lookup.FuzzyScanLimit,
	}, a.Logger)
	a.closers = append(a.closers, a.Store.Close)
	if err := a.Store.Initialize(ctx, nil); err != nil {
		return fmt.Errorf("Store.Initialize > %w", err)
	}
	a.Packs.AddChangeListener(func(ctx context.Context) {
		if err := a.Store.Reload(ctx); err != nil {
			a.Logger.Error("failed to reload dictionaries", "error", err)
		}
	})

	translator, err := newTranslator(cfg, a.Logger)
	if err != nil {
		return fmt.Errorf("newTranslator > %w", err)
	}
	a.Translator = translator
	if client, ok := translator.(interface{ Close() error }); ok {
		a.closers = append(a.closers, client.Close)
	}

	a.Resolver = lookup.NewResolver(a.Store, a.Profiles, a.Translator, a.Packs, cfg.Lookup, a.Logger)
	return nil
}

func loadRegistry(ctx context.Context, cfg config.RegistryConfig, client *resty.Client, logger *slog.Logger) (*manifest.Registry, error) {
	if cfg.File != "" {
		registry, err := manifest.LoadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("manifest.LoadFile > %w", err)
		}
		return registry, nil
	}
	if cfg.URL != "" {
		registry, err := manifest.Fetch(ctx, client, cfg.URL)
		if err == nil {
			return registry, nil
		}
		logger.Warn("failed to fetch the pack catalog", "url", cfg.URL, "error", err)
	}
	return manifest.NewRegistry(manifest.Catalog{})
}

func newTranslator(cfg *config.Config, logger *slog.Logger) (translation.Translator, error) {
	switch cfg.Translation.Provider {
	case "", "none":
		return translation.Offline{}, nil
	case "openai":
		openaiConfig := cfg.Translation.OpenAI
		client := openai.NewClient(openaiConfig.APIKey, openaiConfig.Model, openaiConfig.BaseURL, openaiConfig.MaxRetryAttempts)
		if !cfg.Translation.Cache {
			return client, nil
		}
		cache := translation.NewFileCache(filepath.Join(cfg.Storage.CacheDirectory, "translations"))
		return &closingTranslator{Translator: translation.NewCached(client, cache, logger), close: client.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported translation provider %q", cfg.Translation.Provider)
	}
}

type closingTranslator struct {
	translation.Translator
	close func() error
}

func (t *closingTranslator) Close() error {
	return t.close()
}

// Close releases the components in reverse construction order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
