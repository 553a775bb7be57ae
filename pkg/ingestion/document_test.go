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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextExtractor_Markdown(t *testing.T) {
	dir := t.TempDir()
	p := writeTestFile(t, dir, "guide.MD", "Intro line\n\n## Install Guide\n\nSteps.")
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(p, mtime, mtime))

	doc, err := NewTextExtractor().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, "md", doc.DocType)
	assert.Equal(t, "Install Guide", doc.Title)
	assert.Equal(t, "2024-03-01T12:00:00Z", doc.Datetime)
	assert.Contains(t, doc.Text, "Steps.")
}

func TestTextExtractor_TitleFallbacks(t *testing.T) {
	dir := t.TempDir()

	doc, err := NewTextExtractor().Extract(writeTestFile(t, dir, "notes.txt", "\n\n  First real line  \nsecond"))
	require.NoError(t, err)
	assert.Equal(t, "First real line", doc.Title)

	doc, err = NewTextExtractor().Extract(writeTestFile(t, dir, "blank.txt", "\n   \n"))
	require.NoError(t, err)
	assert.Equal(t, "blank.txt", doc.Title)
}

func TestTextExtractor_Truncates(t *testing.T) {
	dir := t.TempDir()
	p := writeTestFile(t, dir, "big.txt", strings.Repeat("é", MaxDocumentChars+10))

	doc, err := NewTextExtractor().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, MaxDocumentChars, len([]rune(doc.Text)))
}

func TestTextExtractor_RTF(t *testing.T) {
	dir := t.TempDir()
	p := writeTestFile(t, dir, "notes.rtf", `{\rtf1\ansi{\fonttbl{\f0 Arial;}}\f0 Deploy Guide\par Run the installer.}`)

	doc, err := NewTextExtractor().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, "rtf", doc.DocType)
	assert.Equal(t, "Deploy Guide\nRun the installer.", doc.Text)
	assert.Equal(t, "Deploy Guide", doc.Title)
	assert.NotContains(t, doc.Text, "fonttbl")
}

func TestTextExtractor_Unsupported(t *testing.T) {
	_, err := NewTextExtractor().Extract(filepath.Join(t.TempDir(), "report.pdf"))
	assert.True(t, errors.Is(err, ErrUnsupportedDocument))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
