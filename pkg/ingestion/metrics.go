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
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

// metricsEnrichment holds Prometheus metrics for enrichment runs.
type metricsEnrichment struct {
	once sync.Once

	// Walk
	filesSeen     prometheus.Counter
	filesTooLarge prometheus.Counter

	// Tasks
	tasksSubmitted  prometheus.Counter
	tasksSummarized *prometheus.CounterVec
	tasksEmpty      *prometheus.CounterVec
	tasksFailed     *prometheus.CounterVec
	tasksIneligible prometheus.Counter
	docsUnsupported prometheus.Counter

	// Billing
	tokens *prometheus.CounterVec

	// Durations
	taskDuration *prometheus.HistogramVec
	runDuration  prometheus.Histogram
}

var enrMetrics metricsEnrichment

func (m *metricsEnrichment) init() {
	m.once.Do(func() {
		m.filesSeen = prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_files_seen_total", Help: "Regular files visited during the walk"})
		m.filesTooLarge = prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_files_too_large_total", Help: "Files recorded as skipped due to the size limit"})

		m.tasksSubmitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_tasks_submitted_total", Help: "Per-file tasks submitted to the worker pool"})
		m.tasksSummarized = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_tasks_summarized_total", Help: "Tasks that produced an enrichment"}, []string{"category"})
		m.tasksEmpty = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_tasks_empty_total", Help: "Tasks whose provider returned no usable data"}, []string{"category"})
		m.tasksFailed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_tasks_failed_total", Help: "Tasks that failed with an error"}, []string{"category"})
		m.tasksIneligible = prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_tasks_ineligible_total", Help: "Tasks rejected by the validator"})
		m.docsUnsupported = prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_documents_unsupported_total", Help: "Documents skipped for lack of a text extractor"})

		m.tokens = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_llm_tokens_total", Help: "Billed LLM tokens"}, []string{"model", "kind"})

		buckets := []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
		m.taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "enrich_task_seconds", Help: "Duration of a per-file task", Buckets: buckets}, []string{"category"})
		m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "enrich_run_seconds", Help: "Duration of a full enrichment run", Buckets: buckets})

		prometheus.MustRegister(
			m.filesSeen, m.filesTooLarge,
			m.tasksSubmitted, m.tasksSummarized, m.tasksEmpty, m.tasksFailed, m.tasksIneligible, m.docsUnsupported,
			m.tokens,
			m.taskDuration, m.runDuration,
		)
	})
}

// record helpers - used by the dispatcher and billing aggregator
func recordFileSeen()  { enrMetrics.init(); enrMetrics.filesSeen.Inc() }
func recordTooLarge()  { enrMetrics.init(); enrMetrics.filesTooLarge.Inc() }
func recordSubmitted() { enrMetrics.init(); enrMetrics.tasksSubmitted.Inc() }

func recordOutcome(category Category, outcome Outcome, elapsed time.Duration) {
	enrMetrics.init()
	label := string(category)
	switch outcome {
	case OutcomeSummarized:
		enrMetrics.tasksSummarized.WithLabelValues(label).Inc()
	case OutcomeEmpty:
		enrMetrics.tasksEmpty.WithLabelValues(label).Inc()
	case OutcomeFailed:
		enrMetrics.tasksFailed.WithLabelValues(label).Inc()
	case OutcomeIneligible:
		enrMetrics.tasksIneligible.Inc()
		return
	case OutcomeUnsupported:
		enrMetrics.docsUnsupported.Inc()
		return
	}
	enrMetrics.taskDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func recordTokens(model string, usage *enrichment.BillableUsage) {
	enrMetrics.init()
	enrMetrics.tokens.WithLabelValues(model, "input").Add(float64(nonNegative(usage.InputTokens)))
	enrMetrics.tokens.WithLabelValues(model, "output").Add(float64(nonNegative(usage.OutputTokens)))
	enrMetrics.tokens.WithLabelValues(model, "cached").Add(float64(nonNegative(usage.CachedTokens)))
	enrMetrics.tokens.WithLabelValues(model, "total").Add(float64(nonNegative(usage.TotalTokens)))
}

func recordRunDuration(d time.Duration) { enrMetrics.init(); enrMetrics.runDuration.Observe(d.Seconds()) }
