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
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/enrich/internal/errors"
)

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ue *errors.UserError
	require.True(t, stderrors.As(err, &ue), "expected *UserError, got %T: %v", err, err)
	return ue.ExitCode
}

func writeConfigFile(t *testing.T, root, content string) string {
	t.Helper()
	path := ConfigPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	root := filepath.Join(t.TempDir(), "billing-service")
	cfg := DefaultConfig(root)

	assert.Equal(t, "billing-service", cfg.Solution)
	assert.Equal(t, "billing-service", cfg.Component)
	assert.Equal(t, "mock", cfg.Provider.Type)
	assert.Equal(t, configVersion, cfg.Version)
	assert.Equal(t, root, cfg.Root())
}

func TestDefaultConfig_DetectsProvider(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("ANTHROPIC_API_KEY", "")

	assert.Equal(t, "gemini", DefaultConfig(t.TempDir()).Provider.Type)
}

func TestSaveAndLoadConfig(t *testing.T) {
	t.Setenv("ENRICH_PROVIDER", "")
	root := t.TempDir()

	cfg := DefaultConfig(root)
	cfg.Solution = "shop"
	cfg.Component = "web"
	cfg.Provider.Type = "gemini"
	cfg.Provider.DefaultModel = "gemini-2.5-pro"
	cfg.Provider.ReadTimeout = 45 * time.Second
	cfg.Provider.APIKey = "never-written"
	cfg.Concurrency = 6
	cfg.ShutdownGrace = 10 * time.Second
	cfg.Ingestion.SkipDirs = []string{"vendor"}

	path := ConfigPath(root)
	require.NoError(t, SaveConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")
	assert.Contains(t, string(data), "shutdown_grace: 10s")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "shop", loaded.Solution)
	assert.Equal(t, "web", loaded.Component)
	assert.Equal(t, "gemini", loaded.Provider.Type)
	assert.Equal(t, "gemini-2.5-pro", loaded.Provider.DefaultModel)
	assert.Equal(t, 45*time.Second, loaded.Provider.ReadTimeout)
	assert.Empty(t, loaded.Provider.APIKey)
	assert.Equal(t, 6, loaded.Concurrency)
	assert.Equal(t, 10*time.Second, loaded.ShutdownGrace)
	assert.Equal(t, []string{"vendor"}, loaded.Ingestion.SkipDirs)
	assert.Equal(t, root, loaded.Root())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), ".enrich", "project.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.ExitConfig, exitCode(t, err))
	assert.Contains(t, err.Error(), "not initialized")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "solution: [unterminated\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Equal(t, errors.ExitConfig, exitCode(t, err))
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing solution", "component: web\n", "Missing solution"},
		{"missing component", "solution: shop\n", "Missing component"},
		{"negative concurrency", "solution: shop\ncomponent: web\nconcurrency: -1\n", "Invalid concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, t.TempDir(), tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, errors.ExitConfig, exitCode(t, err))
		})
	}
}

func TestLoadConfig_ProviderDefaultsAndOverride(t *testing.T) {
	root := t.TempDir()
	path := writeConfigFile(t, root, "solution: shop\ncomponent: web\n")

	t.Setenv("ENRICH_PROVIDER", "")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Provider.Type)

	t.Setenv("ENRICH_PROVIDER", "anthropic")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider.Type)
}

func TestConfig_ProviderConfigResolvesKey(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.Provider.Type = "deepseek"

	t.Setenv("DEEPSEEK_API_KEY", "ds-default")
	t.Setenv("TEAM_DEEPSEEK_KEY", "ds-team")
	assert.Equal(t, "ds-default", cfg.ProviderConfig().APIKey)

	cfg.Provider.APIKeyEnv = "TEAM_DEEPSEEK_KEY"
	assert.Equal(t, "ds-team", cfg.ProviderConfig().APIKey)
	assert.Empty(t, cfg.Provider.APIKey, "resolution must not mutate the stored config")
}

func TestConfig_RulesConfig(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig(root)
	cfg.Ingestion.SkipDirs = []string{"vendor"}
	cfg.Ingestion.CodeExtensions = []string{".java"}

	base, err := cfg.RulesConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor"}, base.SkipDirs)

	rulesPath := filepath.Join(root, "rules.toml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("skip_dirs = [\"generated\"]\n"), 0o600))
	merged, err := cfg.RulesConfig(rulesPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"generated"}, merged.SkipDirs)
	assert.Equal(t, []string{".java"}, merged.CodeExtensions)

	_, err = cfg.RulesConfig(filepath.Join(root, "rules.ini"))
	require.Error(t, err)
	assert.Equal(t, errors.ExitConfig, exitCode(t, err))
}
