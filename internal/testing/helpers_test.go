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

package testing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

// TestWriteTree verifies nested files are created.
func TestWriteTree(t *testing.T) {
	root := WriteTree(t, map[string]string{
		"a/b/c.txt": "hello",
		"top.md":    "# Top",
	})

	data, err := os.ReadFile(filepath.Join(root, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.FileExists(t, filepath.Join(root, "top.md"))
}

// TestSetupTestStore verifies the store is migrated and usable.
func TestSetupTestStore(t *testing.T) {
	store := SetupTestStore(t)

	v, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Positive(t, v)
}

// TestRecordingListener verifies concurrent callbacks are all kept.
func TestRecordingListener(t *testing.T) {
	l := NewRecordingListener()

	var wg sync.WaitGroup
	for _, p := range []string{"c.go", "a.go", "b.go"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			l.OnEnrichment("sol", "comp", p, &enrichment.Payload{Module: p})
		}(p)
	}
	wg.Wait()
	l.OnError("failed", errors.New("boom"))

	payloads := l.Payloads()
	require.Len(t, payloads, 3)
	assert.Equal(t, "a.go", payloads[0].Path)
	assert.Equal(t, "c.go", payloads[2].Path)
	assert.Equal(t, "b.go", l.Payload("b.go").Module)
	assert.Nil(t, l.Payload("missing.go"))

	errs := l.Errors()
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0].Cause, "boom")
}

// TestMemoryValidator verifies eligibility toggles and completion tracking.
func TestMemoryValidator(t *testing.T) {
	v := NewMemoryValidator("skip.go")

	assert.False(t, v.IsEligible("s", "c", "skip.go", ""))
	assert.True(t, v.IsEligible("s", "c", "new.go", ""))

	v.SetEligible("skip.go", true)
	assert.True(t, v.IsEligible("s", "c", "skip.go", ""))

	v.MarkCompleted("s", "c", "z.go", "")
	v.MarkCompleted("s", "c", "a.go", "")
	assert.Equal(t, []string{"a.go", "z.go"}, v.Completed())
}
