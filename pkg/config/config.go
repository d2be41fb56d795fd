// Package config builds the immutable run configuration for iceflow.
//
// Configuration is resolved once at process start and passed explicitly
// to the components that need it (API client, renderer) instead of
// being read ambiently from the environment.
//
// Sources, lowest to highest precedence:
//  1. Optional TOML file (~/.config/iceflow/config.toml)
//  2. .env file in the working directory (via godotenv)
//  3. Process environment variables
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/icetools/iceflow/pkg/errors"
)

// Environment variable names recognized by Load.
const (
	EnvAPIKey    = "API_KEY"
	EnvLandscape = "LANDSCAPE_ID"
	EnvVersion   = "LANDSCAPE_VERSION"
	EnvMmdcCmd   = "MMDC_CMD"
	EnvDataDir   = "ICEFLOW_DATA_DIR"
)

// DefaultVersion is used when no landscape version is configured.
const DefaultVersion = "latest"

// DefaultDataDir is where markup and image files are written when no
// directory is configured.
const DefaultDataDir = "data"

// Config holds everything a run needs. It is built once by Load and
// never mutated afterwards.
type Config struct {
	APIKey      string // bearer credential for the IcePanel API
	LandscapeID string // target landscape
	Version     string // landscape version tag, "latest" if unset
	MmdcCmd     string // path to the mermaid-cli binary; rendering is skipped if empty
	DataDir     string // output directory for markup and images
}

// fileConfig mirrors the optional TOML config file. All fields are
// optional; environment variables override them.
type fileConfig struct {
	APIKey      string `toml:"api_key"`
	LandscapeID string `toml:"landscape_id"`
	Version     string `toml:"landscape_version"`
	MmdcCmd     string `toml:"mmdc_cmd"`
	DataDir     string `toml:"data_dir"`
}

// Load builds a Config from the config file, .env file, and process
// environment. It fails with CONFIG_ERROR if API_KEY or LANDSCAPE_ID
// are missing after all sources are merged.
func Load() (*Config, error) {
	return load(defaultFilePath())
}

// load is the testable core of Load with an explicit config file path.
func load(filePath string) (*Config, error) {
	// Missing .env is fine; a malformed one is a config error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "load .env")
	}

	var fc fileConfig
	if filePath != "" {
		if _, err := toml.DecodeFile(filePath, &fc); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "parse config file %s", filePath)
		}
	}

	cfg := &Config{
		APIKey:      firstOf(os.Getenv(EnvAPIKey), fc.APIKey),
		LandscapeID: firstOf(os.Getenv(EnvLandscape), fc.LandscapeID),
		Version:     firstOf(os.Getenv(EnvVersion), fc.Version, DefaultVersion),
		MmdcCmd:     firstOf(os.Getenv(EnvMmdcCmd), fc.MmdcCmd),
		DataDir:     firstOf(os.Getenv(EnvDataDir), fc.DataDir, DefaultDataDir),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return errors.New(errors.ErrCodeConfig, "%s is not set", EnvAPIKey)
	}
	if c.LandscapeID == "" {
		return errors.New(errors.ErrCodeConfig, "%s is not set", EnvLandscape)
	}
	return nil
}

// RenderEnabled reports whether an external renderer is configured.
func (c *Config) RenderEnabled() bool { return c.MmdcCmd != "" }

// defaultFilePath returns ~/.config/iceflow/config.toml, or empty if
// the home directory cannot be determined.
func defaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "iceflow", "config.toml")
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
