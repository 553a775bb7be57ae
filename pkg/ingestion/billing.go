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
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

// ModelTotals is the aggregate billing for one model.
type ModelTotals struct {
	Model        string `json:"model"`
	Files        int64  `json:"files"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	CachedTokens int64  `json:"cached_tokens"`
	TotalTokens  int64  `json:"total_tokens"`
}

type modelCounters struct {
	files  atomic.Int64
	input  atomic.Int64
	output atomic.Int64
	cached atomic.Int64
	total  atomic.Int64
}

// BillingAggregator accumulates token usage per model. Record may be called
// from any number of goroutines; counters are additive and never reset.
type BillingAggregator struct {
	models sync.Map // model -> *modelCounters
}

// NewBillingAggregator returns an empty aggregator.
func NewBillingAggregator() *BillingAggregator {
	return &BillingAggregator{}
}

// Backfill sets the usage file path to relPath when it is blank.
func Backfill(usage *enrichment.BillableUsage, relPath string) {
	if usage == nil {
		return
	}
	if strings.TrimSpace(usage.FilePath) == "" {
		usage.FilePath = relPath
	}
}

// Record adds one file's usage to the totals of its model. A blank model is
// recorded as "unknown". Nil usage is ignored.
func (b *BillingAggregator) Record(usage *enrichment.BillableUsage) {
	if usage == nil {
		return
	}
	model := strings.TrimSpace(usage.Model)
	if model == "" {
		model = "unknown"
	}

	v, ok := b.models.Load(model)
	if !ok {
		v, _ = b.models.LoadOrStore(model, &modelCounters{})
	}
	c := v.(*modelCounters)
	c.files.Add(1)
	c.input.Add(nonNegative(usage.InputTokens))
	c.output.Add(nonNegative(usage.OutputTokens))
	c.cached.Add(nonNegative(usage.CachedTokens))
	c.total.Add(nonNegative(usage.TotalTokens))

	recordTokens(model, usage)
}

// Snapshot returns the current totals sorted by model name.
func (b *BillingAggregator) Snapshot() []ModelTotals {
	var out []ModelTotals
	b.models.Range(func(k, v any) bool {
		c := v.(*modelCounters)
		out = append(out, ModelTotals{
			Model:        k.(string),
			Files:        c.files.Load(),
			InputTokens:  c.input.Load(),
			OutputTokens: c.output.Load(),
			CachedTokens: c.cached.Load(),
			TotalTokens:  c.total.Load(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// Totals returns the totals of a single model and whether it was recorded.
func (b *BillingAggregator) Totals(model string) (ModelTotals, bool) {
	for _, t := range b.Snapshot() {
		if t.Model == model {
			return t, true
		}
	}
	return ModelTotals{}, false
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
