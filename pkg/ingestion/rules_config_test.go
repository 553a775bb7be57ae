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

package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	p := writeTestFile(t, dir, "rules.yaml", `
code_extensions: [go, .rs]
skip_dirs: [generated]
skip_minified: false
max_file_size: 2048
exclude_globs:
  - "**/*_test.go"
`)
	cfg, err := LoadRulesConfig(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", ".rs"}, cfg.CodeExtensions)
	require.NotNil(t, cfg.SkipMinified)
	assert.False(t, *cfg.SkipMinified)
	require.NotNil(t, cfg.MaxFileSize)
	assert.Equal(t, int64(2048), *cfg.MaxFileSize)

	r := NewRules(cfg)
	assert.Equal(t, CategoryCode, r.Classify("main.go").Category())
	assert.Equal(t, CategoryCode, r.Classify("lib.RS").Category())
	assert.Equal(t, CategoryNone, r.Classify("A.java").Category(), "code extensions replace the defaults")
	assert.Equal(t, CategoryTemplate, r.Classify("a.html").Category(), "other fields keep their defaults")
	assert.True(t, r.ShouldSkip("generated", true))
	assert.False(t, r.ShouldSkip("node_modules", true))
	assert.False(t, r.ShouldSkip("app.min.js", false))
	assert.True(t, r.ShouldSkip("pkg/x_test.go", false))
	assert.Equal(t, int64(2048), r.MaxFileSize())
}

func TestLoadRulesConfig_TOML(t *testing.T) {
	dir := t.TempDir()
	p := writeTestFile(t, dir, "rules.toml", `
template_extensions = [".vue"]
skip_hidden = false
`)
	cfg, err := LoadRulesConfig(p)
	require.NoError(t, err)
	assert.Equal(t, []string{".vue"}, cfg.TemplateExtensions)
	require.NotNil(t, cfg.SkipHidden)
	assert.False(t, *cfg.SkipHidden)
}

func TestLoadRulesConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRulesConfig(dir + "/missing.yaml")
	assert.Error(t, err)

	_, err = LoadRulesConfig(writeTestFile(t, dir, "rules.json", "{}"))
	assert.ErrorContains(t, err, "unsupported rules file format")

	_, err = LoadRulesConfig(writeTestFile(t, dir, "bad.yaml", "code_extensions: {"))
	assert.Error(t, err)
}

func TestRulesConfig_Merge(t *testing.T) {
	on, off := true, false
	size := int64(10)
	base := &RulesConfig{CodeExtensions: []string{".java"}, SkipHidden: &on}
	overlay := &RulesConfig{SkipDirs: []string{"gen"}, SkipHidden: &off, MaxFileSize: &size}

	merged := base.Merge(overlay)
	assert.Equal(t, []string{".java"}, merged.CodeExtensions)
	assert.Equal(t, []string{"gen"}, merged.SkipDirs)
	assert.False(t, *merged.SkipHidden)
	assert.Equal(t, int64(10), *merged.MaxFileSize)
	assert.True(t, *base.SkipHidden, "merge does not mutate the receiver")

	var nilCfg *RulesConfig
	assert.Equal(t, overlay.SkipDirs, nilCfg.Merge(overlay).SkipDirs)
	assert.Equal(t, base.CodeExtensions, base.Merge(nil).CodeExtensions)
}
