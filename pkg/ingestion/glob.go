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
	"path"
	"path/filepath"
	"strings"
)

// matchesGlob reports whether the slash-separated relative path matches an
// exclude pattern.
//
// A "**" segment spans any number of path segments; every other segment uses
// path.Match syntax, with "[!...]" accepted as a negated class. Patterns not
// starting with "**/" may match at any depth, so "bin/**" excludes
// "apps/api/bin" as well as "bin". A trailing "/**" also matches the
// directory itself.
func matchesGlob(relPath, pattern string) bool {
	pattern = strings.Trim(filepath.ToSlash(pattern), "/")
	if pattern == "" || relPath == "" {
		return false
	}
	patSegs := strings.Split(strings.ReplaceAll(pattern, "[!", "[^"), "/")
	if patSegs[0] != "**" {
		patSegs = append([]string{"**"}, patSegs...)
	}
	return matchSegments(strings.Split(relPath, "/"), patSegs)
}

func matchSegments(segs, pat []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(segs[i:], rest) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(pat[0], segs[0]); err != nil || !ok {
			return false
		}
		segs, pat = segs[1:], pat[1:]
	}
	return len(segs) == 0
}
