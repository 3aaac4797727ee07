package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Download    DownloadConfig    `mapstructure:"download"`
	Lookup      LookupConfig      `mapstructure:"lookup"`
	Translation TranslationConfig `mapstructure:"translation"`
	Profile     ProfileConfig     `mapstructure:"profile"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Server      ServerConfig      `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// StorageConfig is the on-disk layout of language packs and state.
type StorageConfig struct {
	PacksDirectory   string `mapstructure:"packs_directory" validate:"required"`
	StagingDirectory string `mapstructure:"staging_directory" validate:"required"`
	CacheDirectory   string `mapstructure:"cache_directory" validate:"required"`
	StateDirectory   string `mapstructure:"state_directory" validate:"required"`
	// ReserveBytes is kept free on the packs volume when checking space for a download.
	ReserveBytes int64 `mapstructure:"reserve_bytes" validate:"gte=0"`
	// StateStore selects where installed pack records are kept.
	StateStore string `mapstructure:"state_store" validate:"oneof=yaml database"`
}

type RegistryConfig struct {
	URL  string `mapstructure:"url" validate:"omitempty,url"`
	File string `mapstructure:"file" validate:"omitempty,file"`
}

type DownloadConfig struct {
	MaxRetries     uint          `mapstructure:"max_retries" validate:"lte=20"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" validate:"gtefield=InitialBackoff"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// LookupConfig enumerates every tunable of word resolution.
type LookupConfig struct {
	MaxSynonyms        int           `mapstructure:"max_synonyms" validate:"gte=1"`
	MaxSuggestions     int           `mapstructure:"max_suggestions" validate:"gte=0"`
	FuzzyMaxDistance   int           `mapstructure:"fuzzy_max_distance" validate:"gte=0,lte=2"`
	FuzzyMaxCandidates int           `mapstructure:"fuzzy_max_candidates" validate:"gte=1"`
	FuzzyScanLimit     int           `mapstructure:"fuzzy_scan_limit" validate:"gte=1"`
	FallbackTimeout    time.Duration `mapstructure:"fallback_timeout" validate:"gt=0"`
	FallbackConfidence float64       `mapstructure:"fallback_confidence" validate:"gte=0,lte=1"`
	ContextMaxLength   int           `mapstructure:"context_max_length" validate:"gte=1"`
}

type TranslationConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=none openai"`
	Cache    bool          `mapstructure:"cache"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type OpenAIConfig struct {
	APIKey           string `mapstructure:"api_key"`
	Model            string `mapstructure:"model"`
	BaseURL          string `mapstructure:"base_url" validate:"omitempty,url"`
	MaxRetryAttempts uint   `mapstructure:"max_retry_attempts"`
}

type ProfileConfig struct {
	Store                  string              `mapstructure:"store" validate:"oneof=yaml database"`
	UserID                 string              `mapstructure:"user_id" validate:"required"`
	DefaultNativeLanguage  string              `mapstructure:"default_native_language" validate:"langcode"`
	DefaultTargetLanguages map[string][]string `mapstructure:"default_target_languages"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=sqlite mysql"`
	Path            string            `mapstructure:"path"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	CORS            CORSConfig    `mapstructure:"cors"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/lexipack")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("storage.packs_directory", filepath.Join("lexipack", "packs"))
	v.SetDefault("storage.staging_directory", filepath.Join("lexipack", "staging"))
	v.SetDefault("storage.cache_directory", filepath.Join("lexipack", "cache"))
	v.SetDefault("storage.state_directory", filepath.Join("lexipack", "state"))
	v.SetDefault("storage.reserve_bytes", 0)
	v.SetDefault("storage.state_store", "yaml")
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.initial_backoff", time.Second)
	v.SetDefault("download.max_backoff", 30*time.Second)
	v.SetDefault("download.timeout", 0)
	v.SetDefault("lookup.max_synonyms", 5)
	v.SetDefault("lookup.max_suggestions", 5)
	v.SetDefault("lookup.fuzzy_max_distance", 2)
	v.SetDefault("lookup.fuzzy_max_candidates", 10)
	v.SetDefault("lookup.fuzzy_scan_limit", 20000)
	v.SetDefault("lookup.fallback_timeout", 5*time.Second)
	v.SetDefault("lookup.fallback_confidence", 0.6)
	v.SetDefault("lookup.context_max_length", 500)
	v.SetDefault("translation.provider", "none")
	v.SetDefault("translation.cache", true)
	v.SetDefault("translation.timeout", 10*time.Second)
	v.SetDefault("translation.openai.model", "gpt-4o-mini")
	v.SetDefault("translation.openai.max_retry_attempts", 2)
	v.SetDefault("profile.store", "yaml")
	v.SetDefault("profile.user_id", "default")
	v.SetDefault("profile.default_native_language", "en")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join("lexipack", "state", "state.db"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "lexipack")
	v.SetDefault("database.username", "user")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Secrets are bound to environment variables only (not from config file)
	if err := v.BindEnv("translation.openai.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("translation.openai.model", "OPENAI_MODEL"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_MODEL environment variable: %w", err)
	}
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("registry.url", "LEXIPACK_REGISTRY_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind LEXIPACK_REGISTRY_URL environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}
	if cfg.Translation.Provider == "openai" && cfg.Translation.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("invalid configuration: translation.openai.api_key is required when translation.provider is openai (set OPENAI_API_KEY)")
	}

	return &cfg, nil
}

// Load reads configuration from configFile, or from config.yml in the
// working directory or $HOME/.config/lexipack when configFile is empty.
func Load(configFile string) (*Config, error) {
	loader, err := NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("NewConfigLoader > %w", err)
	}
	return loader.Load()
}
