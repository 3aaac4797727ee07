package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/lexipack/internal/config"
	"github.com/at-ishikawa/lexipack/internal/manifest"
)

func TestSetupTestConfig(t *testing.T) {
	tmpDir := t.TempDir()
	catalogPath := BuildTestCatalog(t, t.TempDir())
	got := SetupTestConfig(t, tmpDir, catalogPath)

	assert.Equal(t, filepath.Join(tmpDir, "config.yml"), got)
	content, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Contains(t, string(content), "packs_directory")

	cfg, err := config.Load(got)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "packs"), cfg.Storage.PacksDirectory)
	assert.Equal(t, catalogPath, cfg.Registry.File)
	assert.Equal(t, "es", cfg.Profile.DefaultNativeLanguage)
}

func TestBuildTestCatalog(t *testing.T) {
	path := BuildTestCatalog(t, t.TempDir())

	registry, err := manifest.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, registry.List(), 3)

	companion, ok := registry.Companion("en-es")
	require.True(t, ok)
	assert.Equal(t, "es-en", companion.ID)
	_, ok = registry.Companion("en-fr")
	assert.False(t, ok)
}
