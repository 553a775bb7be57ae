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
)

func TestMatchesGlob(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		want    bool
	}{
		{"exact match", "foo.go", "foo.go", true},
		{"exact no match", "foo.go", "bar.go", false},
		{"star ext", "foo.go", "*.go", true},
		{"star ext nested", "a/b/foo.go", "*.go", true},
		{"star no match ext", "foo.txt", "*.go", false},
		{"star does not cross segments", "test/foo", "test*foo", false},
		{"doublestar any depth", "a/b/c/foo.go", "**/*.go", true},
		{"doublestar root", "foo.go", "**/*.go", true},
		{"dir and contents", "node_modules/a/b/c.js", "node_modules/**", true},
		{"dir itself", "node_modules", "node_modules/**", true},
		{"nested dir", "apps/catalog/bin", "bin/**", true},
		{"nested dir contents", "apps/catalog/bin/run", "bin/**", true},
		{"implicit prefix", "src/test.go", "test.go", true},
		{"question single", "foo.go", "fo?.go", true},
		{"question no match", "fooo.go", "fo?.go", false},
		{"char range", "file1.go", "file[0-9].go", true},
		{"char range no match", "filea.go", "file[0-9].go", false},
		{"negated class bang", "foo.go", "foo.[!ab]o", true},
		{"negated class bang no match", "foo.ao", "foo.[!ab]o", false},
		{"middle doublestar", "src/gen/deep/x.pb.go", "src/**/*.pb.go", true},
		{"middle doublestar zero segments", "src/x.pb.go", "src/**/*.pb.go", true},
		{"malformed pattern", "a[b", "a[", false},
		{"empty pattern", "foo.go", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesGlob(tt.path, tt.pattern))
		})
	}
}

func TestRules_ExcludeGlobs(t *testing.T) {
	rules := NewRules(&RulesConfig{ExcludeGlobs: []string{"generated/**", "*.pb.go", "docs/drafts/*.md"}})

	assert.True(t, rules.ShouldSkip("generated", true))
	assert.True(t, rules.ShouldSkip("api/v1/service.pb.go", false))
	assert.True(t, rules.ShouldSkip("docs/drafts/idea.md", false))
	assert.False(t, rules.ShouldSkip("docs/guide.md", false))
	assert.False(t, rules.ShouldSkip("api/v1/service.go", false))
}
