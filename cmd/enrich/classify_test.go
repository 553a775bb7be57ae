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
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enrichtest "github.com/kraklabs/enrich/internal/testing"
	"github.com/kraklabs/enrich/pkg/ingestion"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()
	fn()
	_ = w.Close()
	return string(<-done)
}

func TestEntryDetail(t *testing.T) {
	tests := []struct {
		entry ingestion.Entry
		want  string
	}{
		{ingestion.Entry{RelPath: "src/App.java", Category: ingestion.CategoryCode}, "java"},
		{ingestion.Entry{RelPath: "web/index.html", Category: ingestion.CategoryTemplate}, "html"},
		{ingestion.Entry{RelPath: "config/app.yaml", Category: ingestion.CategoryConfig}, "yaml"},
		{ingestion.Entry{RelPath: "docs/guide.md", Category: ingestion.CategoryDocument}, ""},
		{ingestion.Entry{RelPath: "README", Category: ingestion.CategoryNone}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.entry.RelPath, func(t *testing.T) {
			assert.Equal(t, tt.want, entryDetail(tt.entry))
		})
	}
}

func TestClassifyAndPrint_JSON(t *testing.T) {
	root := enrichtest.WriteTree(t, map[string]string{
		"src/App.java":            "class App {}",
		"config/app.yaml":         "port: 8080",
		"node_modules/x/index.js": "module.exports = 1",
		"README":                  "readme",
	})

	run := func(all bool) []classifiedEntry {
		out := captureStdout(t, func() {
			err := classifyAndPrint(context.Background(), root, ingestion.DefaultRules(), all, GlobalFlags{JSON: true, Quiet: true})
			require.NoError(t, err)
		})
		var entries []classifiedEntry
		dec := json.NewDecoder(bytes.NewBufferString(out))
		for dec.More() {
			var e classifiedEntry
			require.NoError(t, dec.Decode(&e))
			entries = append(entries, e)
		}
		return entries
	}

	entries := run(false)
	require.Len(t, entries, 2)
	assert.Equal(t, "config/app.yaml", entries[0].RelPath)
	assert.Equal(t, ingestion.CategoryConfig, entries[0].Category)
	assert.Equal(t, "yaml", entries[0].Detail)
	assert.Equal(t, "src/App.java", entries[1].RelPath)
	assert.Equal(t, ingestion.EntryEligible, entries[1].Status)
	assert.Equal(t, "java", entries[1].Detail)

	all := run(true)
	statuses := map[string]ingestion.EntryStatus{}
	for _, e := range all {
		statuses[e.RelPath] = e.Status
	}
	assert.Equal(t, ingestion.EntrySkipped, statuses["node_modules"])
	assert.Equal(t, ingestion.EntryUnclassified, statuses["README"])
	assert.Equal(t, ingestion.EntryEligible, statuses["src/App.java"])
}

func TestClassifyAndPrint_Cancelled(t *testing.T) {
	root := enrichtest.WriteTree(t, map[string]string{"src/App.java": "class App {}"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var err error
	captureStdout(t, func() {
		err = classifyAndPrint(ctx, root, ingestion.DefaultRules(), false, GlobalFlags{JSON: true, Quiet: true})
	})
	require.Error(t, err)
}
