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
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/kraklabs/enrich/pkg/enrichment"
	"github.com/kraklabs/enrich/pkg/storage"
)

// WriteTree creates the given files (slash-separated relative paths) under
// a temporary directory and returns its path.
//
// Example:
//
//	root := testing.WriteTree(t, map[string]string{
//	    "web/index.html": `<script src="app.js"></script>`,
//	    "web/app.js":     "console.log(1)",
//	})
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}

// SetupTestStore opens a store in a temporary directory. The store is
// closed automatically when the test finishes.
func SetupTestStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// RecordedError is one OnError call.
type RecordedError struct {
	Message string
	Cause   error
}

// RecordedPayload is one OnEnrichment call.
type RecordedPayload struct {
	Solution  string
	Component string
	Path      string
	Payload   *enrichment.Payload
}

// RecordingListener keeps every callback in memory.
type RecordingListener struct {
	mu       sync.Mutex
	errors   []RecordedError
	payloads []RecordedPayload
}

// NewRecordingListener returns an empty listener.
func NewRecordingListener() *RecordingListener {
	return &RecordingListener{}
}

// OnError records an error.
func (l *RecordingListener) OnError(message string, cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, RecordedError{Message: message, Cause: cause})
}

// OnEnrichment records a payload.
func (l *RecordingListener) OnEnrichment(solution, component, relPath string, payload *enrichment.Payload) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payloads = append(l.payloads, RecordedPayload{
		Solution:  solution,
		Component: component,
		Path:      relPath,
		Payload:   payload,
	})
}

// Errors returns a copy of the recorded errors in call order.
func (l *RecordingListener) Errors() []RecordedError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RecordedError(nil), l.errors...)
}

// Payloads returns the recorded payloads sorted by path.
func (l *RecordingListener) Payloads() []RecordedPayload {
	l.mu.Lock()
	out := append([]RecordedPayload(nil), l.payloads...)
	l.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Payload returns the first payload recorded for relPath, or nil.
func (l *RecordingListener) Payload(relPath string) *enrichment.Payload {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.payloads {
		if p.Path == relPath {
			return p.Payload
		}
	}
	return nil
}

// MemoryValidator treats every file as eligible unless marked otherwise and
// remembers which files were completed.
type MemoryValidator struct {
	mu         sync.Mutex
	ineligible map[string]bool
	completed  []string
}

// NewMemoryValidator returns a validator with the given paths ineligible.
func NewMemoryValidator(ineligible ...string) *MemoryValidator {
	v := &MemoryValidator{ineligible: make(map[string]bool)}
	for _, p := range ineligible {
		v.ineligible[p] = true
	}
	return v
}

// SetEligible toggles eligibility of relPath.
func (v *MemoryValidator) SetEligible(relPath string, eligible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ineligible[relPath] = !eligible
}

// IsEligible implements the dispatcher's Validator.
func (v *MemoryValidator) IsEligible(_, _, relPath, _ string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.ineligible[relPath]
}

// MarkCompleted implements the dispatcher's Validator.
func (v *MemoryValidator) MarkCompleted(_, _, relPath, _ string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.completed = append(v.completed, relPath)
}

// Completed returns the completed paths sorted.
func (v *MemoryValidator) Completed() []string {
	v.mu.Lock()
	out := append([]string(nil), v.completed...)
	v.mu.Unlock()
	sort.Strings(out)
	return out
}
