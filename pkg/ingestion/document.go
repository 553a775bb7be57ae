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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrUnsupportedDocument is returned for document types without a text
// extractor. The dispatcher counts such files as unsupported, not failed.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// MaxDocumentChars caps the text handed to the summarizer.
const MaxDocumentChars = 200_000

// TextExtractor reads text-like documents directly from disk.
type TextExtractor struct {
	maxChars int
	exts     map[string]struct{}
}

// NewTextExtractor handles .txt, .md, .rtf and .rtx files. RTF control
// words are stripped before the text is returned.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{
		maxChars: MaxDocumentChars,
		exts: map[string]struct{}{
			".txt": {}, ".md": {}, ".rtf": {}, ".rtx": {},
		},
	}
}

// Extract returns the document text (truncated to MaxDocumentChars) with its
// type, title and modification time.
func (e *TextExtractor) Extract(path string) (*DocumentExtraction, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := e.exts[ext]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	// Worst case 4 bytes per rune; trim to maxChars runes below.
	data, err := io.ReadAll(io.LimitReader(f, int64(e.maxChars)*utf8.UTFMax))
	if err != nil {
		return nil, err
	}
	raw := string(data)
	if ext == ".rtf" {
		raw = rtfText(raw)
	}
	text := truncateRunes(raw, e.maxChars)

	return &DocumentExtraction{
		DocType:  strings.TrimPrefix(ext, "."),
		Title:    documentTitle(text, filepath.Base(path)),
		Datetime: info.ModTime().UTC().Format(time.RFC3339),
		Text:     text,
	}, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// documentTitle picks the first markdown heading, else the first non-blank
// line, else fallback.
func documentTitle(text, fallback string) string {
	firstLine := ""
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if heading := strings.TrimSpace(strings.TrimLeft(line, "#")); heading != "" {
				return heading
			}
			continue
		}
		if firstLine == "" {
			firstLine = line
		}
	}
	if firstLine != "" {
		return firstLine
	}
	return fallback
}
