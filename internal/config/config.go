// Package config holds operator-level configuration for a Veil installation:
// data directory, vault encryption key, detector endpoint, global pattern
// file. Set via env vars (VEIL_*) or a veil.config.yaml file. Document text
// and mappings never pass through this package.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the VEIL_ prefix
// (e.g. "vault_key" → VEIL_VAULT_KEY) and to a YAML field in
// veil.config.yaml.
const (
	KeyDataDir         = "data_dir"
	KeyVaultKey        = "vault_key"
	KeyPatternFile     = "pattern_file"
	KeyMinScore        = "min_score"
	KeyDetectorEnabled = "detector_enabled"
	KeyDetectorBaseURL = "detector_base_url"
	KeyDetectorAPIKey  = "detector_api_key"
	KeyDetectorModel   = "detector_model"
)

// Defaults that do not involve crypto material. The vault key intentionally
// has no baked-in default; when unset we derive a per-machine fallback and
// warn loudly.
const (
	DefaultDetectorBaseURL = "http://localhost:11434/v1"
	DefaultDetectorModel   = "llama3.1"
)

// Config holds resolved operator-level configuration for a Veil process.
type Config struct {
	DataDir         string  // base directory for all state (~/.veil)
	VaultKey        string  // AES-256 key for the mapping vault (32 bytes or 64 hex chars)
	PatternFile     string  // optional global recognizer YAML
	MinScore        float64 // minimum candidate confidence; 0 accepts all
	DetectorEnabled bool    // run the LLM statistical detector
	DetectorBaseURL string  // OpenAI-compatible endpoint
	DetectorAPIKey  string  // endpoint API key (empty for local Ollama)
	DetectorModel   string  // model name for detection

	usingDerivedVaultKey bool
}

// UsingDerivedVaultKey reports whether the vault key fell back to the
// per-machine derived default.
func (c *Config) UsingDerivedVaultKey() bool { return c.usingDerivedVaultKey }

// WarnIfDerivedKey logs a loud warning when the vault key was derived
// rather than configured. Commands touching the vault should call this.
func (c *Config) WarnIfDerivedKey() {
	if c.usingDerivedVaultKey {
		log.Warn().Msg("VEIL_VAULT_KEY not set; using a key derived from this machine's identity. Stored mappings will not be restorable elsewhere. Set a 64-hex-char key for production.")
	}
}

// Load resolves configuration from viper (env + config file already
// initialized by the CLI root).
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:         viper.GetString(KeyDataDir),
		VaultKey:        viper.GetString(KeyVaultKey),
		PatternFile:     viper.GetString(KeyPatternFile),
		MinScore:        viper.GetFloat64(KeyMinScore),
		DetectorEnabled: viper.GetBool(KeyDetectorEnabled),
		DetectorBaseURL: viper.GetString(KeyDetectorBaseURL),
		DetectorAPIKey:  viper.GetString(KeyDetectorAPIKey),
		DetectorModel:   viper.GetString(KeyDetectorModel),
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".veil")
	}
	if cfg.DetectorBaseURL == "" {
		cfg.DetectorBaseURL = DefaultDetectorBaseURL
	}
	if cfg.DetectorModel == "" {
		cfg.DetectorModel = DefaultDetectorModel
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return nil, fmt.Errorf("min_score must be in [0, 1], got %v", cfg.MinScore)
	}

	if cfg.VaultKey == "" {
		cfg.VaultKey = derivedVaultKey()
		cfg.usingDerivedVaultKey = true
	}

	return cfg, nil
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// VaultPath returns the mapping vault database path.
func (c *Config) VaultPath() string {
	return filepath.Join(c.DataDir, "mappings.db")
}

// derivedVaultKey produces a deterministic per-machine fallback key from
// the hostname and home directory. Good enough for local development; not
// for shared deployments.
func derivedVaultKey() string {
	hostname, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	sum := sha256.Sum256([]byte("veil-vault:" + hostname + ":" + home))
	return hex.EncodeToString(sum[:])
}
