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

// Package ingestion walks a repository and enriches its files through an
// LLM summarizer.
//
// # Pipeline Overview
//
// A Process call runs these stages:
//
//  1. Validate: the request must name a solution, a component and an
//     existing directory, and carry a Listener and a Validator.
//  2. Walk: the tree is visited once. Rules prune directories, skip
//     hidden, minified and binary files, and classify the rest as code,
//     template, config or document. Oversized files are reported with a
//     size-limit note and never reach the LLM.
//  3. Dispatch: every classified file becomes one task on a bounded pool.
//     Each task asks the Validator first, then reads the file, calls the
//     matching Summarizer pipeline and reports to the Listener.
//  4. Drain: exactly one result is collected per submitted task. Billing is
//     aggregated per model and logged when the run finishes.
//
// # Templates
//
// Template files are bundled with the local scripts and stylesheets they
// reference before summarization. References are resolved against the
// repository root and anything escaping it is dropped. Each reference is
// recorded as an edge on the template's payload.
//
// # Cancellation
//
// Cancelling the context stops the walk and the drain. Tasks already
// running finish against a detached context and are bounded by the
// provider timeouts and DispatcherConfig.ShutdownGrace.
//
// # Metrics
//
// Prometheus counters and histograms for files, tasks, tokens and
// durations are registered on first use in the default registry.
package ingestion
