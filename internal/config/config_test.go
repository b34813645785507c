package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, ".veil", filepath.Base(cfg.DataDir))
	assert.Equal(t, DefaultDetectorBaseURL, cfg.DetectorBaseURL)
	assert.Equal(t, DefaultDetectorModel, cfg.DetectorModel)
	assert.Zero(t, cfg.MinScore)
	assert.False(t, cfg.DetectorEnabled)
}

func TestLoadExplicitValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(KeyDataDir, "/var/lib/veil")
	viper.Set(KeyVaultKey, "0123456789abcdef0123456789abcdef")
	viper.Set(KeyMinScore, 0.6)
	viper.Set(KeyDetectorEnabled, true)
	viper.Set(KeyDetectorBaseURL, "https://api.openai.example/v1")
	viper.Set(KeyDetectorModel, "gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/veil", cfg.DataDir)
	assert.Equal(t, filepath.Join("/var/lib/veil", "mappings.db"), cfg.VaultPath())
	assert.Equal(t, 0.6, cfg.MinScore)
	assert.True(t, cfg.DetectorEnabled)
	assert.Equal(t, "https://api.openai.example/v1", cfg.DetectorBaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.DetectorModel)
	assert.False(t, cfg.UsingDerivedVaultKey())
}

func TestLoadMinScoreOutOfRange(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, v := range []float64{-0.1, 1.5} {
		viper.Set(KeyMinScore, v)
		_, err := Load()
		assert.Error(t, err, "min_score %v", v)
	}
}

func TestDerivedVaultKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.UsingDerivedVaultKey())
	assert.Len(t, cfg.VaultKey, 64, "derived key is hex-encoded SHA-256")
	assert.Equal(t, cfg.VaultKey, derivedVaultKey(), "derivation is deterministic")
}

func TestEnsureDataDir(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := filepath.Join(t.TempDir(), "nested", "veil")
	viper.Set(KeyDataDir, dir)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDataDir())
	assert.DirExists(t, dir)
}
