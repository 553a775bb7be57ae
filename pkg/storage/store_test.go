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

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.FileExists(t, s.Path())
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(Config{DataDir: dir})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestLedger_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	f := writeFile(t, dir, "main.go", "package main\n")

	assert.True(t, s.IsEligible("sol", "comp", "main.go", f), "unknown file is eligible")

	s.MarkCompleted("sol", "comp", "main.go", f)
	assert.False(t, s.IsEligible("sol", "comp", "main.go", f), "unchanged file is not eligible")
	assert.True(t, s.IsEligible("sol", "other", "main.go", f), "ledger is scoped per component")

	// Same size, different content.
	writeFile(t, dir, "main.go", "package mian\n")
	assert.True(t, s.IsEligible("sol", "comp", "main.go", f))

	s.MarkCompleted("sol", "comp", "main.go", f)
	assert.False(t, s.IsEligible("sol", "comp", "main.go", f))

	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	assert.True(t, s.IsEligible("sol", "comp", "main.go", f))
}

func TestLedger_FailsOpen(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	f := writeFile(t, dir, "a.txt", "hello")
	s.MarkCompleted("sol", "comp", "a.txt", f)

	require.NoError(t, os.Remove(f))
	assert.True(t, s.IsEligible("sol", "comp", "a.txt", f), "missing file is eligible")

	require.NoError(t, s.Close())
	assert.True(t, s.IsEligible("sol", "comp", "a.txt", f), "closed store is eligible")
	assert.NoError(t, s.Close(), "close is idempotent")
}

func TestSink_Payloads(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.OnEnrichment("sol", "comp", "b.go", &enrichment.Payload{
		Solution:  "sol",
		Component: "comp",
		Module:    "b",
		Model:     "m1",
	})
	s.OnEnrichment("sol", "comp", "a.go", &enrichment.Payload{Solution: "sol", Component: "comp", Module: "a", Model: "m1"})
	s.OnEnrichment("sol", "comp", "b.go", &enrichment.Payload{Solution: "sol", Component: "comp", Module: "b2", Model: "m2"})

	got, err := s.Payloads(ctx, "sol", "comp")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.go", got[0].Path)
	assert.Equal(t, "b.go", got[1].Path)
	assert.Equal(t, "b2", got[1].Payload.Module, "latest payload wins")
	assert.Equal(t, "m2", got[1].Payload.Model)

	err = s.SavePayload(ctx, "sol", "comp", "c.go", nil)
	assert.Error(t, err)
}

func TestSink_FailedSaveKeepsFileEligible(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	f := writeFile(t, dir, "a.go", "package a\n")

	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER reject_enrichments BEFORE INSERT ON enrichments
		BEGIN SELECT RAISE(ABORT, 'disk full'); END
	`)
	require.NoError(t, err)

	s.OnEnrichment("sol", "comp", "a.go", &enrichment.Payload{Module: "a"})
	s.MarkCompleted("sol", "comp", "a.go", f)

	got, err := s.Payloads(ctx, "sol", "comp")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, s.IsEligible("sol", "comp", "a.go", f), "file without a stored payload is retried")

	_, err = s.db.ExecContext(ctx, `DROP TRIGGER reject_enrichments`)
	require.NoError(t, err)

	s.OnEnrichment("sol", "comp", "a.go", &enrichment.Payload{Module: "a"})
	s.MarkCompleted("sol", "comp", "a.go", f)

	got, err = s.Payloads(ctx, "sol", "comp")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, s.IsEligible("sol", "comp", "a.go", f))
}

func TestSink_Errors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.OnError("AI summarization failed for a.go", errors.New("boom"))
	s.OnError("no cause", nil)

	got, err := s.Errors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "no cause", got[0].Message)
	assert.Empty(t, got[0].Cause)
	assert.Equal(t, "boom", got[1].Cause)
}

func TestStatsAndReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	f := writeFile(t, dir, "x.go", "package x\n")

	s.MarkCompleted("sol", "comp", "x.go", f)
	s.OnEnrichment("sol", "comp", "x.go", &enrichment.Payload{Solution: "sol", Component: "comp"})
	s.OnError("oops", nil)

	st, err := s.Stats(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ProcessedFiles)
	assert.Equal(t, 1, st.Enrichments)
	assert.Equal(t, 1, st.Errors)
	assert.Equal(t, 1, st.SchemaVersion)

	st, err = s.Stats(ctx, "sol", "missing")
	require.NoError(t, err)
	assert.Zero(t, st.ProcessedFiles)
	assert.Zero(t, st.Enrichments)
	assert.Equal(t, 1, st.Errors, "errors are counted store-wide")

	g := writeFile(t, dir, "y.go", "package y\n")
	s.MarkCompleted("other", "svc", "y.go", g)

	require.NoError(t, s.Reset(ctx))
	st, err = s.Stats(ctx, "", "")
	require.NoError(t, err)
	assert.Zero(t, st.ProcessedFiles)
	assert.Zero(t, st.Enrichments)
	assert.Zero(t, st.Errors)
	assert.True(t, s.IsEligible("sol", "comp", "x.go", f))
	assert.True(t, s.IsEligible("other", "svc", "y.go", g), "reset clears every component")
}
