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
	"strconv"
	"strings"
)

// rtfSkippedGroups are destinations whose content is never body text.
var rtfSkippedGroups = map[string]struct{}{
	"fonttbl": {}, "colortbl": {}, "stylesheet": {}, "info": {}, "pict": {},
	"object": {}, "header": {}, "headerl": {}, "headerr": {}, "footer": {},
	"footerl": {}, "footerr": {}, "listtable": {}, "listoverridetable": {},
	"rsidtbl": {}, "generator": {}, "latentstyles": {}, "themedata": {},
	"colorschememapping": {}, "datastore": {}, "filetbl": {}, "revtbl": {},
}

// rtfText strips RTF control words and metadata groups, keeping body text.
// Hex escapes are decoded as Latin-1.
func rtfText(src string) string {
	var (
		b     strings.Builder
		stack []bool
		skip  bool
	)
	emit := func(s string) {
		if !skip {
			b.WriteString(s)
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch c {
		case '{':
			stack = append(stack, skip)
			i++
		case '}':
			if n := len(stack); n > 0 {
				skip = stack[n-1]
				stack = stack[:n-1]
			}
			i++
		case '\r', '\n':
			i++
		case '\\':
			i = rtfControl(src, i+1, &skip, emit)
		default:
			emit(src[i : i+1])
			i++
		}
	}
	return strings.TrimSpace(b.String())
}

// rtfControl consumes the control sequence starting at src[i] (just past
// the backslash) and returns the index after it.
func rtfControl(src string, i int, skip *bool, emit func(string)) int {
	if i >= len(src) {
		return i
	}
	switch c := src[i]; {
	case c == '\\' || c == '{' || c == '}':
		emit(src[i : i+1])
		return i + 1
	case c == '*':
		*skip = true
		return i + 1
	case c == '~':
		emit(" ")
		return i + 1
	case c == '\n' || c == '\r':
		emit("\n")
		return i + 1
	case c == '\'':
		if i+3 <= len(src) {
			if v, err := strconv.ParseUint(src[i+1:i+3], 16, 8); err == nil {
				emit(string(rune(v)))
			}
		}
		return min(i+3, len(src))
	case !isASCIILetter(c):
		return i + 1
	}

	start := i
	for i < len(src) && isASCIILetter(src[i]) {
		i++
	}
	word := src[start:i]
	paramStart := i
	if i < len(src) && src[i] == '-' {
		i++
	}
	for i < len(src) && src[i] >= '0' && src[i] <= '9' {
		i++
	}
	param := src[paramStart:i]
	if i < len(src) && src[i] == ' ' {
		i++
	}

	if _, ok := rtfSkippedGroups[word]; ok {
		*skip = true
		return i
	}
	switch word {
	case "par", "line", "row":
		emit("\n")
	case "tab", "cell":
		emit("\t")
	case "u":
		if n, err := strconv.Atoi(param); err == nil {
			if n < 0 {
				n += 65536
			}
			emit(string(rune(n)))
		}
		// Skip the ANSI fallback that follows a unicode escape.
		switch {
		case strings.HasPrefix(src[i:], `\'`):
			i = min(i+4, len(src))
		case i < len(src) && src[i] != '\\' && src[i] != '{' && src[i] != '}':
			i++
		}
	}
	return i
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
