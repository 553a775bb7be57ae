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

package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// AuditSink records every provider exchange. Each request gets a UUID that
// ties the request, response and usage events together. When a debug
// directory is set, raw request and response bodies are also written there.
type AuditSink struct {
	logger   *slog.Logger
	debugDir string
}

// AuditEvent identifies one provider call.
type AuditEvent struct {
	ID       string
	Provider string
	Model    string
	Pipeline string
	FilePath string
}

// NewAuditSink returns a sink writing to logger, or slog.Default() if nil.
func NewAuditSink(logger *slog.Logger, debugDir string) *AuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditSink{logger: logger, debugDir: debugDir}
}

// Request logs an outgoing call and returns its event handle.
func (a *AuditSink) Request(provider, model, pipeline, filePath string, req ChatRequest) AuditEvent {
	ev := AuditEvent{
		ID:       uuid.NewString(),
		Provider: provider,
		Model:    model,
		Pipeline: pipeline,
		FilePath: filePath,
	}
	if a == nil {
		return ev
	}
	promptChars := 0
	for _, m := range req.Messages {
		promptChars += len(m.Content)
	}
	a.logger.Info("llm.request",
		"id", ev.ID,
		"provider", provider,
		"model", model,
		"pipeline", pipeline,
		"file", filePath,
		"prompt_chars", promptChars,
	)
	a.dump(ev, "request", req)
	return ev
}

// Response logs the text a call produced.
func (a *AuditSink) Response(ev AuditEvent, resp *ChatResponse) {
	if a == nil || resp == nil {
		return
	}
	a.logger.Info("llm.response",
		"id", ev.ID,
		"provider", ev.Provider,
		"model", ev.Model,
		"pipeline", ev.Pipeline,
		"file", ev.FilePath,
		"chars", len(resp.Message.Content),
		"duration_ms", resp.Duration.Milliseconds(),
	)
	a.dump(ev, "response", resp)
}

// Usage logs the normalized token counts of a call.
func (a *AuditSink) Usage(ev AuditEvent, u Usage) {
	if a == nil {
		return
	}
	a.logger.Info("llm.usage",
		"id", ev.ID,
		"provider", ev.Provider,
		"model", ev.Model,
		"pipeline", ev.Pipeline,
		"file", ev.FilePath,
		"input_tokens", u.InputTokens,
		"output_tokens", u.OutputTokens,
		"cached_tokens", u.CachedTokens,
		"total_tokens", u.TotalTokens,
	)
}

// Failure logs a call that returned an error.
func (a *AuditSink) Failure(ev AuditEvent, err error) {
	if a == nil || err == nil {
		return
	}
	a.logger.Warn("llm.error",
		"id", ev.ID,
		"provider", ev.Provider,
		"model", ev.Model,
		"pipeline", ev.Pipeline,
		"file", ev.FilePath,
		"err", err,
	)
}

// dump writes v as indented JSON under the debug directory. Failures are
// logged and otherwise ignored.
func (a *AuditSink) dump(ev AuditEvent, kind string, v any) {
	if a.debugDir == "" {
		return
	}
	if err := os.MkdirAll(a.debugDir, 0o750); err != nil {
		a.logger.Warn("llm.debug.mkdir.error", "dir", a.debugDir, "err", err)
		return
	}
	data, err := json.MarshalIndent(map[string]any{
		"id":        ev.ID,
		"provider":  ev.Provider,
		"model":     ev.Model,
		"pipeline":  ev.Pipeline,
		"file":      ev.FilePath,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		kind:        v,
	}, "", "  ")
	if err != nil {
		a.logger.Warn("llm.debug.marshal.error", "id", ev.ID, "err", err)
		return
	}
	name := fmt.Sprintf("%s-%s.json", ev.ID, kind)
	if err := os.WriteFile(filepath.Join(a.debugDir, name), data, 0o600); err != nil {
		a.logger.Warn("llm.debug.write.error", "id", ev.ID, "err", err)
	}
}
