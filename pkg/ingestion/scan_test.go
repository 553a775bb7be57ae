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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enrichtest "github.com/kraklabs/enrich/internal/testing"
)

func scanAll(t *testing.T, root string, rules *Rules) map[string]Entry {
	t.Helper()
	got := make(map[string]Entry)
	err := Scan(context.Background(), root, rules, nil, func(e Entry) error {
		got[e.RelPath] = e
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestScan_Statuses(t *testing.T) {
	limit := int64(32)
	root := enrichtest.WriteTree(t, map[string]string{
		"src/App.java":        "class App {}",
		"src/Huge.java":       "class Huge { /* much longer than the limit */ }",
		"web/app.min.js":      "x",
		"README":              "plain",
		"node_modules/a/b.js": "ignored",
		".github/ci.yml":      "on: push",
	})

	got := scanAll(t, root, NewRules(&RulesConfig{MaxFileSize: &limit}))

	assert.Equal(t, EntryEligible, got["src/App.java"].Status)
	assert.Equal(t, CategoryCode, got["src/App.java"].Category)
	assert.Equal(t, filepath.Join(root, "src", "App.java"), got["src/App.java"].AbsPath)
	assert.Equal(t, EntryTooLarge, got["src/Huge.java"].Status)
	assert.Equal(t, EntrySkipped, got["web/app.min.js"].Status)
	assert.Equal(t, EntryUnclassified, got["README"].Status)
	assert.Equal(t, EntryEligible, got[".github/ci.yml"].Status)
	assert.Equal(t, CategoryConfig, got[".github/ci.yml"].Category)

	dir, ok := got["node_modules"]
	require.True(t, ok)
	assert.True(t, dir.IsDir)
	assert.Equal(t, EntrySkipped, dir.Status)
	_, descended := got["node_modules/a/b.js"]
	assert.False(t, descended, "skipped directories are pruned")
}

func TestScan_SkipsSymlinks(t *testing.T) {
	root := enrichtest.WriteTree(t, map[string]string{"real/A.java": "class A {}"})
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got := scanAll(t, root, nil)
	assert.Contains(t, got, "real/A.java")
	assert.NotContains(t, got, "link")
	assert.NotContains(t, got, "link/A.java")
}

func TestScan_VisitErrorAborts(t *testing.T) {
	root := enrichtest.WriteTree(t, map[string]string{"a.py": "", "b.py": ""})
	stop := errors.New("stop")

	calls := 0
	err := Scan(context.Background(), root, nil, nil, func(Entry) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestScan_Cancelled(t *testing.T) {
	root := enrichtest.WriteTree(t, map[string]string{"a.py": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Scan(ctx, root, nil, nil, func(Entry) error { return nil })
	assert.ErrorIs(t, err, errWalkInterrupted)
}
