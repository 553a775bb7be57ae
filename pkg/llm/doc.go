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

// Package llm summarizes source files through Large Language Model providers.
//
// The package has two layers. A [Provider] is a thin transport to one vendor
// API that sends chat messages and returns text plus normalized token
// usage. A [Summarizer] sits on top of a provider: it renders the prompt for
// a file category, sends it, recovers the structured answer from noisy model
// output and attaches billable usage to the resulting payload.
//
// # Supported Providers
//
//   - deepseek: OpenAI-compatible chat completions (deepseek-coder)
//   - gemini: the Gemini API through google.golang.org/genai
//   - anthropic (also "haiku" or "claude"): the Messages API
//   - mock: deterministic in-process provider for tests and dry runs
//
// # Quick Start
//
//	cfg := llm.ProviderConfig{Type: "deepseek"}
//	llm.ResolveAPIKey(&cfg, "")
//	s, err := llm.NewSummarizer(cfg)
//	if err != nil {
//	    return err // ErrUnknownProvider or ErrMissingAPIKey
//	}
//	payload, err := s.SummarizeCode(ctx, "src/app.py", "python", content)
//
// A nil payload with a nil error means the model answered with nothing
// usable; callers treat it as an empty result, not a failure.
//
// # Environment Variables
//
//   - DEEPSEEK_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY: API keys read by
//     [ResolveAPIKey] when no explicit variable is configured.
//
// # Response Extraction
//
// Models often wrap JSON in prose or markdown fences. [ExtractJSON] scans
// every balanced object in the text and keeps the one with the most expected
// top-level keys. It is a heuristic, not a parser guarantee.
//
// # Error Handling
//
// Transport failures, non-2xx statuses and undecodable envelopes are
// returned as errors naming the provider:
//
//	deepseek chat error (status 401): invalid api key
//
// There is no retry. An optional [RateLimiter] spaces calls when
// RequestsPerSecond is set.
package llm
