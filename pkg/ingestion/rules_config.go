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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadRulesConfig reads a standalone rules file. The format is chosen by
// extension: .yaml/.yml or .toml.
func LoadRulesConfig(path string) (*RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var cfg RulesConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse rules yaml %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse rules toml %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported rules file format: %s (use .yaml, .yml or .toml)", path)
	}
	return &cfg, nil
}

// Merge overlays the non-empty fields of other onto a copy of c.
func (c *RulesConfig) Merge(other *RulesConfig) *RulesConfig {
	out := &RulesConfig{}
	if c != nil {
		*out = *c
	}
	if other == nil {
		return out
	}
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	pick(&out.CodeExtensions, other.CodeExtensions)
	pick(&out.TemplateExtensions, other.TemplateExtensions)
	pick(&out.StaticAssetExts, other.StaticAssetExts)
	pick(&out.ConfigExtensions, other.ConfigExtensions)
	pick(&out.DocumentExtensions, other.DocumentExtensions)
	pick(&out.ConfigFileNames, other.ConfigFileNames)
	pick(&out.SkipDirs, other.SkipDirs)
	pick(&out.SkipFileNames, other.SkipFileNames)
	pick(&out.SkipExtensions, other.SkipExtensions)
	pick(&out.AllowHiddenDirs, other.AllowHiddenDirs)
	pick(&out.ExcludeGlobs, other.ExcludeGlobs)
	if other.SkipHidden != nil {
		out.SkipHidden = other.SkipHidden
	}
	if other.SkipMinified != nil {
		out.SkipMinified = other.SkipMinified
	}
	if other.MaxFileSize != nil {
		out.MaxFileSize = other.MaxFileSize
	}
	return out
}
