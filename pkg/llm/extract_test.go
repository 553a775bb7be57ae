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

package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		markers   []string
		wantOK    bool
		wantScore int
		wantKey   string
	}{
		{
			name:      "noisy fenced output",
			text:      "Sure! Here you go:\n```json\n{\"module\":\"app\",\"functions\":[]}\n```\nLet me know.",
			markers:   []string{"functions", "module"},
			wantOK:    true,
			wantScore: 4,
			wantKey:   "module",
		},
		{
			name:    "no object",
			text:    "I could not analyze this file.",
			markers: []string{"functions"},
		},
		{
			name:    "unbalanced braces",
			text:    `{"module": "x"`,
			markers: []string{"module"},
		},
		{
			name:      "braces inside strings",
			text:      `prefix {"summary":"uses {{name}} and \"}\" chars","file":{"path":"a.html"}} suffix`,
			markers:   []string{"file", "summary"},
			wantOK:    true,
			wantScore: 4,
			wantKey:   "summary",
		},
		{
			name:      "best candidate beats earlier one",
			text:      `{"note":"draft"} then {"file":{},"summary":"final"}`,
			markers:   []string{"file", "summary"},
			wantOK:    true,
			wantScore: 4,
			wantKey:   "summary",
		},
		{
			name:      "tie keeps first",
			text:      `{"summary":"one"} {"summary":"two"}`,
			markers:   []string{"summary"},
			wantOK:    true,
			wantScore: 2,
			wantKey:   "summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, score, ok := ExtractJSON(tt.text, tt.markers...)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Nil(t, raw)
				return
			}
			assert.Equal(t, tt.wantScore, score)
			var obj map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(raw, &obj))
			assert.Contains(t, obj, tt.wantKey)
		})
	}
}

func TestExtractJSON_TieKeepsFirst(t *testing.T) {
	raw, _, ok := ExtractJSON(`{"summary":"one"} {"summary":"two"}`, "summary")
	require.True(t, ok)
	assert.JSONEq(t, `{"summary":"one"}`, string(raw))
}

func TestExtractJSON_NestedPrefersOuterWithMarkers(t *testing.T) {
	text := `{"module":"m","functions":[{"fqn":"a.b","relationships":[{"type":"DB_ACCESSES"}]}]}`
	raw, score, ok := ExtractJSON(text, "functions", "module")
	require.True(t, ok)
	assert.Equal(t, 4, score)
	assert.JSONEq(t, text, string(raw))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "a: 1", StripFences("```\na: 1\n```"))
	assert.Equal(t, `{"x":1}`, StripFences("```json\n{\"x\":1}\n```"))
	assert.Equal(t, "plain", StripFences("  plain \n"))
	assert.Equal(t, "", StripFences("```\n```"))
}
