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

package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// captureOutput disables colors and redirects Out for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	origOut, origNoColor := Out, color.NoColor
	t.Cleanup(func() {
		Out = origOut
		color.NoColor = origNoColor
	})
	color.NoColor = true
	buf := &bytes.Buffer{}
	Out = buf
	return buf
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want string
	}{
		{"success", func() { Success("Enriched 3 files") }, "✓ Enriched 3 files\n"},
		{"successf", func() { Successf("Enriched %d files", 3) }, "✓ Enriched 3 files\n"},
		{"warning", func() { Warning("1 file too large") }, "⚠ 1 file too large\n"},
		{"warningf", func() { Warningf("%d files too large", 2) }, "⚠ 2 files too large\n"},
		{"error", func() { Error("provider down") }, "✗ provider down\n"},
		{"errorf", func() { Errorf("%s down", "provider") }, "✗ provider down\n"},
		{"info", func() { Info("walking") }, "ℹ walking\n"},
		{"infof", func() { Infof("walking %s", "src") }, "ℹ walking src\n"},
		{"subheader", func() { SubHeader("Billing:") }, "Billing:\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureOutput(t)
			tt.fn()
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestHeader(t *testing.T) {
	buf := captureOutput(t)
	Header("Run Summary")
	assert.Equal(t, "Run Summary\n===========\n", buf.String())
}

func TestInlineHelpers(t *testing.T) {
	captureOutput(t)

	assert.Equal(t, "Solution:", Label("Solution:"))
	assert.Equal(t, "/tmp/x", DimText("/tmp/x"))
	assert.Equal(t, "42", CountText(42))
	assert.Equal(t, "7", CountText(int64(7)))

	assert.Equal(t, "code", CategoryText("code"))
	assert.Equal(t, "template", CategoryText("template"))
	assert.Equal(t, "-", CategoryText(""))
	assert.Equal(t, "other", CategoryText("other"))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "3/4 (75%)", Ratio(3, 4))
	assert.Equal(t, "0/0", Ratio(0, 0))
	assert.Equal(t, "1/3 (33%)", Ratio(1, 3))
}

func TestInitColors(t *testing.T) {
	orig := color.NoColor
	t.Cleanup(func() { color.NoColor = orig })

	color.NoColor = false
	InitColors(true)
	assert.True(t, color.NoColor)
}
