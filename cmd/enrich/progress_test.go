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

package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enrichtest "github.com/kraklabs/enrich/internal/testing"
)

// Tests never run with a terminal on stderr, so Enabled is always false
// from NewProgressConfig here.
func TestNewProgressConfig_NoTTY(t *testing.T) {
	for _, globals := range []GlobalFlags{
		{},
		{Quiet: true},
		{JSON: true, Quiet: true},
		{Verbose: 2},
	} {
		cfg := NewProgressConfig(globals)
		assert.False(t, cfg.Enabled, "globals %+v", globals)
		assert.Equal(t, os.Stderr, cfg.Writer)
	}
	assert.True(t, NewProgressConfig(GlobalFlags{NoColor: true}).NoColor)
}

func TestNewSpinner_Disabled(t *testing.T) {
	assert.Nil(t, NewSpinner(ProgressConfig{}, "Enriching"))

	// A nil spinner is accepted by the listener wrapper.
	rec := enrichtest.NewRecordingListener()
	l := &progressListener{next: rec}
	l.OnEnrichment("shop", "web", "a.java", nil)
	assert.Len(t, rec.Payloads(), 1)
}

func TestProgressListener_AdvancesSpinner(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(ProgressConfig{Enabled: true, Writer: &buf, NoColor: true}, "Enriching")
	require.NotNil(t, spinner)

	l := &progressListener{next: enrichtest.NewRecordingListener(), bar: spinner}
	l.OnEnrichment("shop", "web", "src/App.java", nil)
	l.OnEnrichment("shop", "web", "web/index.html", nil)
	l.OnError("AI summarization failed for Bad.java", nil)

	assert.Equal(t, int64(3), spinner.State().CurrentNum)
	require.NoError(t, spinner.Finish())
}
