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
	"strings"
)

// ExtractJSON recovers the most plausible JSON object from noisy model
// output. Fence markers are removed, then every '{' is tried as the start of
// a balanced object (string and escape aware). Candidates that parse as a
// JSON object score 2 per marker key present at their top level; the best
// score wins and ties keep the earliest candidate.
//
// This is a heuristic. It can pick the wrong object when several candidates
// carry the same markers, which is accepted.
func ExtractJSON(text string, markers ...string) (json.RawMessage, int, bool) {
	cleaned := StripFences(text)

	var (
		best      json.RawMessage
		bestScore = -1
	)
	for start := 0; start < len(cleaned); start++ {
		if cleaned[start] != '{' {
			continue
		}
		end := matchBrace(cleaned, start)
		if end < 0 {
			continue
		}
		candidate := cleaned[start : end+1]

		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			continue
		}
		score := 0
		for _, m := range markers {
			if _, ok := obj[m]; ok {
				score += 2
			}
		}
		if score > bestScore {
			best = json.RawMessage(candidate)
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestScore, true
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// StripFences removes markdown code fence markers, keeping their content.
func StripFences(text string) string {
	if !strings.Contains(text, "```") {
		return strings.TrimSpace(text)
	}
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
