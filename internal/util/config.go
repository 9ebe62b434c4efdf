// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/apvault/internal/fsutil"
)

// Ledger backends accepted in config.yaml
const (
	LedgerMemory = "memory"
	LedgerSQLite = "sqlite"
)

// RentConfig holds the rent parameters of the local ledger.
type RentConfig struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year" description:"Rent rate in lamports per byte-year" default:"3480"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold" description:"Years of rent that make an account exempt" default:"2.0"`
}

// Config holds apvault configuration settings
type Config struct {
	Ledger               string     `yaml:"ledger" description:"Ledger backend (memory, sqlite)" default:"sqlite"`
	LedgerPath           string     `yaml:"ledger_path" description:"SQLite ledger file (relative to data dir)" default:"ledger.db"`
	KeysDir              string     `yaml:"keys_dir" description:"Keypair directory (relative to data dir)" default:"keys"`
	LamportsPerSignature uint64     `yaml:"lamports_per_signature" description:"Fee charged per transaction signature" default:"5000"`
	Rent                 RentConfig `yaml:"rent" description:"Rent parameters"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		Ledger:               LedgerSQLite,
		LedgerPath:           "ledger.db",
		KeysDir:              "keys",
		LamportsPerSignature: 5000,
		Rent: RentConfig{
			LamportsPerByteYear: 3480,
			ExemptionThreshold:  2.0,
		},
	}
}

// DefaultDataDir is the default data directory for apvault
const DefaultDataDir = "~/.apvault"

// GetDataDir returns the apvault data directory.
// Resolution order: -d flag > APVAULT_DATA env var > ~/.apvault
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv("APVAULT_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "" // Can't determine default
	}
	return filepath.Join(home, ".apvault")
}

// RequireDataDir resolves the data directory from the flag value,
// APVAULT_DATA environment variable, or ~/.apvault default. Exits if unresolvable.
func RequireDataDir(flagValue string) string {
	dir := GetDataDir(flagValue)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Error: Could not determine data directory")
		fmt.Fprintln(os.Stderr, "Use -d <path> or set APVAULT_DATA environment variable")
		os.Exit(1)
	}
	return dir
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// ResolvePath joins a relative path onto baseDir. Absolute and empty paths
// are returned unchanged.
func ResolvePath(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from config.yaml in the data directory.
// Relative ledger and keys paths are resolved against the data directory.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}

	config.LedgerPath = ResolvePath(config.LedgerPath, dataDir)
	config.KeysDir = ResolvePath(config.KeysDir, dataDir)
	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path.
// If path is empty or the file doesn't exist, returns default config.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate rejects settings the ledger cannot run with.
func (c *Config) Validate() error {
	switch c.Ledger {
	case LedgerMemory:
	case LedgerSQLite:
		if c.LedgerPath == "" {
			return fmt.Errorf("ledger_path is required for the sqlite ledger")
		}
	default:
		return fmt.Errorf("invalid ledger '%s' in config (must be memory or sqlite)", c.Ledger)
	}
	if c.KeysDir == "" {
		return fmt.Errorf("keys_dir must not be empty")
	}
	if c.Rent.ExemptionThreshold < 0 {
		return fmt.Errorf("rent.exemption_threshold must not be negative")
	}
	return nil
}

// SaveConfig writes config to config.yaml in the data directory.
func SaveConfig(dataDir string, config Config) error {
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := fsutil.MkdirAll(dataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := fsutil.WriteFile(GetConfigPath(dataDir), data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
