// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the permit CLI.
type Config struct {
	// ChainID is the chain permits are signed for and grouped under.
	ChainID uint64 `yaml:"chain_id"`

	// Domain is the EIP-712 domain permits are signed under.
	Domain DomainConfig `yaml:"domain"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Storage configures encryption of stored permits.
	Storage StorageConfig `yaml:"storage"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log"`
}

// DomainConfig identifies the access-control contract to signers.
type DomainConfig struct {
	// Name defaults to "ACL".
	Name string `yaml:"name"`

	// Version defaults to "1".
	Version string `yaml:"version"`

	// VerifyingContract is optional. When set it must be a 0x hex
	// account and is included in the domain.
	VerifyingContract string `yaml:"verifying_contract"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for permit data.
	Root string `yaml:"root"`

	// State is where encrypted permit files are kept.
	State string `yaml:"state"`
}

// StorageConfig configures at-rest encryption of permit snapshots.
type StorageConfig struct {
	// Recipients are age public keys (age1...) that permit files are
	// encrypted to. When empty, the identity file's keys are used.
	Recipients []string `yaml:"recipients"`

	// IdentityFile is an age identity file used to decrypt permit
	// files. Must never be world-readable.
	IdentityFile string `yaml:"identity_file"`
}

// LogConfig configures the slog handler the CLI installs.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: warn.
	Level string `yaml:"level"`

	// Format is text or json. Default: text.
	Format string `yaml:"format"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "permit")

	return &Config{
		ChainID: 420105,
		Domain: DomainConfig{
			Name:    "ACL",
			Version: "1",
		},
		Paths: PathsConfig{
			Root:  defaultRoot,
			State: filepath.Join(defaultRoot, "permits"),
		},
		Storage: StorageConfig{
			IdentityFile: filepath.Join(defaultRoot, "identity.txt"),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load loads configuration from the PERMIT_CONFIG environment
// variable. There are no fallbacks - if PERMIT_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("PERMIT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PERMIT_CONFIG environment variable not set; " +
			"set it to the path of your permit.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Values in
// the file replace the defaults; path fields are then expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"PERMIT_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["PERMIT_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Storage.IdentityFile = expandVars(c.Storage.IdentityFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.ChainID == 0 {
		errs = append(errs, fmt.Errorf("chain_id is required"))
	}

	if c.Domain.Name == "" {
		errs = append(errs, fmt.Errorf("domain.name is required"))
	}
	if c.Domain.Version == "" {
		errs = append(errs, fmt.Errorf("domain.version is required"))
	}
	if c.Domain.VerifyingContract != "" && !common.IsHexAddress(c.Domain.VerifyingContract) {
		errs = append(errs, fmt.Errorf("domain.verifying_contract %q is not a hex account", c.Domain.VerifyingContract))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}

	if len(c.Storage.Recipients) == 0 && c.Storage.IdentityFile == "" {
		errs = append(errs, fmt.Errorf("storage needs recipients or an identity_file"))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	formats := []string{"text", "json"}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
// Directories are private to the user since they hold key material.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.Paths.State} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
