package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{
			PacksDirectory:   filepath.Join("lexipack", "packs"),
			StagingDirectory: filepath.Join("lexipack", "staging"),
			CacheDirectory:   filepath.Join("lexipack", "cache"),
			StateDirectory:   filepath.Join("lexipack", "state"),
			StateStore:       "yaml",
		},
		Download: DownloadConfig{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Lookup: LookupConfig{
			MaxSynonyms:        5,
			MaxSuggestions:     5,
			FuzzyMaxDistance:   2,
			FuzzyMaxCandidates: 10,
			FuzzyScanLimit:     20000,
			FallbackTimeout:    5 * time.Second,
			FallbackConfidence: 0.6,
			ContextMaxLength:   500,
		},
		Translation: TranslationConfig{
			Provider: "none",
			Cache:    true,
			Timeout:  10 * time.Second,
			OpenAI: OpenAIConfig{
				Model:            "gpt-4o-mini",
				MaxRetryAttempts: 2,
			},
		},
		Profile: ProfileConfig{
			Store:                 "yaml",
			UserID:                "default",
			DefaultNativeLanguage: "en",
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     filepath.Join("lexipack", "state", "state.db"),
			Host:     "localhost",
			Port:     3306,
			Database: "lexipack",
			Username: "user",
		},
		Server: ServerConfig{
			Port:            8080,
			CORS:            CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("LEXIPACK_REGISTRY_URL", "")

	tests := []struct {
		name              string
		configContent     string
		useExplicitPath   bool
		wantErr           bool
		want              func() *Config
		wantErrorContains []string
	}{
		{
			name: "valid config file with custom values",
			configContent: `storage:
  packs_directory: custom/packs
  staging_directory: custom/staging
  reserve_bytes: 1048576
registry:
  url: https://packs.example.com/registry.json
lookup:
  max_synonyms: 3
  fallback_timeout: 2s
profile:
  default_native_language: ja
  default_target_languages:
    ja: [en, es]
`,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Storage.PacksDirectory = "custom/packs"
				cfg.Storage.StagingDirectory = "custom/staging"
				cfg.Storage.ReserveBytes = 1048576
				cfg.Registry.URL = "https://packs.example.com/registry.json"
				cfg.Lookup.MaxSynonyms = 3
				cfg.Lookup.FallbackTimeout = 2 * time.Second
				cfg.Profile.DefaultNativeLanguage = "ja"
				cfg.Profile.DefaultTargetLanguages = map[string][]string{"ja": {"en", "es"}}
				return cfg
			},
		},
		{
			name: "invalid YAML format",
			configContent: `storage:
  packs_directory: custom/packs
  invalid yaml format here [[[
`,
			wantErr: true,
			wantErrorContains: []string{
				"configuration file found but could not be read",
				"Please check the file format and permissions",
			},
		},
		{
			name: "unknown keys use defaults",
			configContent: `wrong_key:
  some_value: test
`,
			want: defaultConfig,
		},
		{
			name:    "no config file uses defaults",
			want:    defaultConfig,
			wantErr: false,
		},
		{
			name: "explicit config file path",
			configContent: `server:
  port: 9090
log:
  format: json
  level: debug
`,
			useExplicitPath: true,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Server.Port = 9090
				cfg.Log.Format = "json"
				cfg.Log.Level = "debug"
				return cfg
			},
		},
		{
			name: "unsupported translation provider",
			configContent: `translation:
  provider: deepl
`,
			wantErr:           true,
			wantErrorContains: []string{"invalid configuration", "provider"},
		},
		{
			name: "openai provider requires api key",
			configContent: `translation:
  provider: openai
`,
			wantErr:           true,
			wantErrorContains: []string{"OPENAI_API_KEY"},
		},
		{
			name: "native language must be a language code",
			configContent: `profile:
  default_native_language: "not a language!"
`,
			wantErr:           true,
			wantErrorContains: []string{"default_native_language must be a BCP 47 language code"},
		},
		{
			name: "native language must not be undetermined",
			configContent: `profile:
  default_native_language: und
`,
			wantErr:           true,
			wantErrorContains: []string{"default_native_language must be a BCP 47 language code"},
		},
		{
			name: "registry file must exist",
			configContent: `registry:
  file: does/not/exist.json
`,
			wantErr:           true,
			wantErrorContains: []string{"must be an existing and readable file"},
		},
		{
			name: "fuzzy distance is bounded",
			configContent: `lookup:
  fuzzy_max_distance: 3
`,
			wantErr:           true,
			wantErrorContains: []string{"fuzzy_max_distance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()

			var configPath string
			if tt.useExplicitPath {
				configPath = filepath.Join(tempDir, "config.yml")
				err := os.WriteFile(configPath, []byte(tt.configContent), 0644)
				require.NoError(t, err)
			} else {
				if tt.configContent != "" {
					err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(tt.configContent), 0644)
					require.NoError(t, err)
				}

				originalDir, err := os.Getwd()
				require.NoError(t, err)
				defer func() {
					err := os.Chdir(originalDir)
					require.NoError(t, err)
				}()

				err = os.Chdir(tempDir)
				require.NoError(t, err)
				t.Setenv("HOME", tempDir)
				configPath = ""
			}

			got, err := Load(configPath)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				for _, wantMsg := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), wantMsg)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("LEXIPACK_REGISTRY_URL", "https://mirror.example.com/registry.json")

	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("translation:\n  provider: openai\n"), 0644))

	got, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got.Translation.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", got.Translation.OpenAI.Model)
	assert.Equal(t, "secret", got.Database.Password)
	assert.Equal(t, "https://mirror.example.com/registry.json", got.Registry.URL)
}
