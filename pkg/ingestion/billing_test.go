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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

func TestBillingAggregator_Record(t *testing.T) {
	b := NewBillingAggregator()

	b.Record(&enrichment.BillableUsage{Model: "deepseek-coder", FilePath: "a.java", InputTokens: 10, OutputTokens: 5, TotalTokens: 15})
	b.Record(&enrichment.BillableUsage{Model: "deepseek-coder", FilePath: "b.java", InputTokens: 7, OutputTokens: 3, CachedTokens: 2, TotalTokens: 10})
	b.Record(nil)

	got, ok := b.Totals("deepseek-coder")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Files)
	assert.Equal(t, int64(17), got.InputTokens)
	assert.Equal(t, int64(8), got.OutputTokens)
	assert.Equal(t, int64(2), got.CachedTokens)
	assert.Equal(t, int64(25), got.TotalTokens)
}

func TestBillingAggregator_UnknownModel(t *testing.T) {
	b := NewBillingAggregator()
	b.Record(&enrichment.BillableUsage{Model: "  ", InputTokens: 3, OutputTokens: -4, TotalTokens: 3})

	snap := b.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "unknown", snap[0].Model)
	assert.Equal(t, int64(0), snap[0].OutputTokens, "negative counts are clamped")

	_, ok := b.Totals("missing")
	assert.False(t, ok)
}

func TestBillingAggregator_Concurrent(t *testing.T) {
	b := NewBillingAggregator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			model := "a"
			if i%2 == 1 {
				model = "b"
			}
			b.Record(&enrichment.BillableUsage{Model: model, InputTokens: 2, OutputTokens: 1, TotalTokens: 3})
		}(i)
	}
	wg.Wait()

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Model)
	assert.Equal(t, int64(25), snap[0].Files)
	assert.Equal(t, int64(75), snap[1].TotalTokens)
}

func TestBackfill(t *testing.T) {
	u := &enrichment.BillableUsage{}
	Backfill(u, "src/A.java")
	assert.Equal(t, "src/A.java", u.FilePath)

	u.FilePath = "kept.java"
	Backfill(u, "other.java")
	assert.Equal(t, "kept.java", u.FilePath)

	Backfill(nil, "x")
}
