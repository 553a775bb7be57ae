// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/pkg/ingestion"
	"github.com/kraklabs/enrich/pkg/llm"
)

const (
	configDirName  = ".enrich"
	configFileName = "project.yaml"
	configVersion  = "1"
)

// Config is the project configuration stored in .enrich/project.yaml.
type Config struct {
	Version   string `yaml:"version"`
	Solution  string `yaml:"solution"`
	Component string `yaml:"component"`

	Provider ProviderSection `yaml:"provider"`

	Concurrency   int           `yaml:"concurrency,omitempty"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace,omitempty"`

	Ingestion ingestion.RulesConfig `yaml:"ingestion,omitempty"`
	Storage   StorageSection        `yaml:"storage,omitempty"`
	Audit     AuditSection          `yaml:"audit,omitempty"`

	// root is the repository directory that holds .enrich/.
	root string
}

// ProviderSection selects and tunes the LLM backend.
type ProviderSection struct {
	llm.ProviderConfig `yaml:",inline"`

	// APIKeyEnv names the variable holding the key. Defaults to
	// <TYPE>_API_KEY.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// StorageSection locates the SQLite ledger.
type StorageSection struct {
	DataDir string `yaml:"data_dir,omitempty"`
}

// AuditSection configures LLM request dumps.
type AuditSection struct {
	DebugDir string `yaml:"debug_dir,omitempty"`
}

// DefaultConfig returns a configuration for the repository at root.
func DefaultConfig(root string) *Config {
	name := filepath.Base(root)
	return &Config{
		Version:     configVersion,
		Solution:    name,
		Component:   name,
		Provider:    ProviderSection{ProviderConfig: llm.ProviderConfig{Type: llm.DetectProviderType()}},
		Concurrency: ingestion.DefaultConcurrency,
		root:        root,
	}
}

// ConfigDir returns the .enrich directory of a repository.
func ConfigDir(root string) string {
	return filepath.Join(root, configDirName)
}

// ConfigPath returns the project config file of a repository.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), configFileName)
}

// RunsDir returns where run reports are written.
func RunsDir(root string) string {
	return filepath.Join(ConfigDir(root), "runs")
}

// LoadConfig reads the project configuration. An empty path selects
// ./.enrich/project.yaml. ENRICH_PROVIDER overrides provider.type.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.NewInternalError("Cannot determine working directory", "", "", err)
		}
		path = ConfigPath(cwd)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewConfigError("Invalid config path", path, "", err)
	}

	data, err := os.ReadFile(abs) //nolint:gosec // G304: user-selected config file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError(
				"Project is not initialized",
				fmt.Sprintf("%s does not exist", abs),
				"Run 'enrich init' in the repository root",
				err,
			)
		}
		return nil, errors.NewConfigError("Cannot read configuration", abs, "Check file permissions", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigError(
			"Invalid configuration",
			fmt.Sprintf("%s: %v", abs, err),
			"Fix the YAML syntax or recreate it with 'enrich init --force'",
			err,
		)
	}
	cfg.root = filepath.Dir(filepath.Dir(abs))

	if v := strings.TrimSpace(os.Getenv("ENRICH_PROVIDER")); v != "" {
		cfg.Provider.Type = v
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case strings.TrimSpace(c.Solution) == "":
		return errors.NewConfigError("Missing solution name", "solution is empty", "Set 'solution' in .enrich/project.yaml", nil)
	case strings.TrimSpace(c.Component) == "":
		return errors.NewConfigError("Missing component name", "component is empty", "Set 'component' in .enrich/project.yaml", nil)
	case c.Concurrency < 0:
		return errors.NewConfigError("Invalid concurrency", fmt.Sprintf("concurrency is %d", c.Concurrency), "Use a positive number", nil)
	}
	if c.Provider.Type == "" {
		c.Provider.Type = "mock"
	}
	return nil
}

// Root returns the repository directory.
func (c *Config) Root() string { return c.root }

// SaveConfig writes cfg to path, creating the directory if needed.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# enrich project configuration\n# API keys are read from the environment (see provider.api_key_env).\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ProviderConfig resolves the API key and returns the provider settings.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	pc := c.Provider.ProviderConfig
	llm.ResolveAPIKey(&pc, c.Provider.APIKeyEnv)
	return pc
}

// RulesConfig merges the project ingestion rules with an optional
// standalone rules file.
func (c *Config) RulesConfig(rulesPath string) (*ingestion.RulesConfig, error) {
	base := c.Ingestion
	if rulesPath == "" {
		return &base, nil
	}
	extra, err := ingestion.LoadRulesConfig(rulesPath)
	if err != nil {
		return nil, errors.NewConfigError("Cannot load rules file", err.Error(), "Use a .yaml, .yml or .toml rules file", err)
	}
	return base.Merge(extra), nil
}
