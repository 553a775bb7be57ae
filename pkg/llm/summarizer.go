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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

// Summarizer turns one file into an enrichment payload. A nil payload with a
// nil error means the model produced nothing usable.
type Summarizer interface {
	Name() string
	Model() string
	MaxTokens() int
	ContextSize() int

	SummarizeCode(ctx context.Context, relPath, language, content string) (*enrichment.Payload, error)
	SummarizeTemplate(ctx context.Context, relPath, language, bundled string) (*enrichment.Payload, error)
	SummarizeConfig(ctx context.Context, relPath, detectedType, content string) (*enrichment.Payload, error)
	SummarizeDocument(ctx context.Context, relPath, docType, title, datetime, text string) (*enrichment.Payload, error)
}

// Markers scored by ExtractJSON for each structured pipeline.
var (
	codeMarkers     = []string{"functions", "module"}
	templateMarkers = []string{"file", "summary"}
)

// Client is the Summarizer over one Provider.
type Client struct {
	provider Provider
	backend  backend
	model    string
	maxTok   int
	limiter  *RateLimiter
	audit    *AuditSink
	logger   *slog.Logger
}

// NewSummarizer builds the Summarizer for cfg.Type. It never performs I/O.
func NewSummarizer(cfg ProviderConfig) (*Client, error) {
	b, err := lookupBackend(cfg.Type)
	if err != nil {
		return nil, err
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(provider, b, cfg), nil
}

// NewSummarizerWithProvider wraps an existing provider using the defaults of
// backend type cfg.Type, or the mock defaults when the type is empty.
func NewSummarizerWithProvider(provider Provider, cfg ProviderConfig) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("nil provider")
	}
	typ := cfg.Type
	if typ == "" {
		typ = "mock"
	}
	b, err := lookupBackend(typ)
	if err != nil {
		return nil, err
	}
	return newClient(provider, b, cfg), nil
}

func newClient(provider Provider, b backend, cfg ProviderConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTok := b.maxTokens
	if cfg.MaxTokens > 0 {
		maxTok = cfg.MaxTokens
	}
	return &Client{
		provider: provider,
		backend:  b,
		model:    firstNonEmpty(cfg.DefaultModel, b.model),
		maxTok:   maxTok,
		limiter:  NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		audit:    cfg.Audit,
		logger:   logger,
	}
}

func (c *Client) Name() string     { return c.backend.name }
func (c *Client) Model() string    { return c.model }
func (c *Client) MaxTokens() int   { return c.maxTok }
func (c *Client) ContextSize() int { return c.backend.contextSize }

// Provider returns the underlying transport.
func (c *Client) Provider() Provider { return c.provider }

func (c *Client) SummarizeCode(ctx context.Context, relPath, language, content string) (*enrichment.Payload, error) {
	resp, err := c.call(ctx, PipelineCode, relPath, FormatJSON, PromptData{
		Language:     language,
		RelativePath: relPath,
		Content:      content,
	})
	if err != nil {
		return nil, err
	}
	payload, err := ParseCodeEnrichment(resp.Message.Content)
	if err != nil {
		return nil, wrapParse(PipelineCode, relPath, err)
	}
	if payload == nil {
		// Keep the usage of a reply that yielded nothing.
		payload = &enrichment.Payload{}
	}
	if payload.Language == "" {
		payload.Language = language
	}
	c.attachUsage(payload, resp, relPath)
	return payload, nil
}

func (c *Client) SummarizeTemplate(ctx context.Context, relPath, language, bundled string) (*enrichment.Payload, error) {
	resp, err := c.call(ctx, PipelineTemplate, relPath, FormatJSON, PromptData{
		Language:     language,
		RelativePath: relPath,
		Content:      bundled,
	})
	if err != nil {
		return nil, err
	}
	tmpl, err := ParseTemplateEnrichment(resp.Message.Content)
	if err != nil || tmpl == nil {
		return nil, wrapParse(PipelineTemplate, relPath, err)
	}
	payload := &enrichment.Payload{
		Module:    relPath,
		Language:  language,
		Templates: []enrichment.TemplateEnrichment{*tmpl},
	}
	c.attachUsage(payload, resp, relPath)
	return payload, nil
}

func (c *Client) SummarizeConfig(ctx context.Context, relPath, detectedType, content string) (*enrichment.Payload, error) {
	resp, err := c.call(ctx, PipelineConfig, relPath, FormatText, PromptData{
		RelativePath: relPath,
		DetectedType: detectedType,
		Content:      content,
	})
	if err != nil {
		return nil, err
	}
	text := StripFences(resp.Message.Content)
	if text == "" {
		return nil, nil
	}
	payload := &enrichment.Payload{
		Module:   relPath,
		Language: detectedType,
		Configs: []enrichment.ConfigEnrichment{{
			Path:         relPath,
			DetectedType: detectedType,
			Summary:      text,
		}},
	}
	c.attachUsage(payload, resp, relPath)
	return payload, nil
}

func (c *Client) SummarizeDocument(ctx context.Context, relPath, docType, title, datetime, text string) (*enrichment.Payload, error) {
	resp, err := c.call(ctx, PipelineDocument, relPath, FormatText, PromptData{
		RelativePath: relPath,
		DocType:      docType,
		DocTitle:     title,
		DocDatetime:  datetime,
		Content:      text,
	})
	if err != nil {
		return nil, err
	}
	summary := StripFences(resp.Message.Content)
	if summary == "" {
		return nil, nil
	}
	payload := &enrichment.Payload{
		Module: relPath,
		Documents: []enrichment.DocumentEnrichment{{
			Path:     relPath,
			DocType:  docType,
			Title:    title,
			Datetime: datetime,
			Summary:  summary,
		}},
	}
	c.attachUsage(payload, resp, relPath)
	return payload, nil
}

// call renders the prompt, waits for the limiter and sends one request.
func (c *Client) call(ctx context.Context, pipeline, relPath, format string, data PromptData) (*ChatResponse, error) {
	prompt, err := RenderPrompt(pipeline, data)
	if err != nil {
		return nil, err
	}
	var messages []Message
	if c.backend.systemPrompts {
		messages = append(messages, Message{Role: "system", Content: systemPrompts[pipeline]})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	req := ChatRequest{
		Messages:       messages,
		Model:          c.model,
		MaxTokens:      c.maxTok,
		Temperature:    c.backend.temperature,
		TopP:           c.backend.topP,
		TopK:           c.backend.topK,
		ResponseFormat: format,
	}
	if pipeline == PipelineCode && c.backend.codeSchema {
		req.Schema = SchemaCodeEnrichment
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit wait: %w", c.backend.name, err)
	}

	ev := c.audit.Request(c.provider.Name(), c.model, pipeline, relPath, req)
	resp, err := c.provider.Chat(ctx, req)
	if err != nil {
		c.audit.Failure(ev, err)
		return nil, err
	}
	c.audit.Response(ev, resp)
	c.audit.Usage(ev, resp.Usage)
	c.logger.Debug("llm.call.done",
		"provider", c.provider.Name(),
		"pipeline", pipeline,
		"file", relPath,
		"duration_ms", resp.Duration.Milliseconds(),
	)
	return resp, nil
}

func (c *Client) attachUsage(payload *enrichment.Payload, resp *ChatResponse, relPath string) {
	model := firstNonEmpty(resp.Model, c.model)
	payload.Model = model
	payload.Usage = &enrichment.BillableUsage{
		Model:        model,
		FilePath:     relPath,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CachedTokens: resp.Usage.CachedTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
}

func wrapParse(pipeline, relPath string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("parse %s enrichment for %s: %w", pipeline, relPath, err)
}

// ParseCodeEnrichment recovers the function-level payload from model text.
// It returns nil when no candidate object is found. A payload whose
// functions all fail normalization comes back with no functions.
func ParseCodeEnrichment(text string) (*enrichment.Payload, error) {
	raw, _, ok := ExtractJSON(text, codeMarkers...)
	if !ok {
		return nil, nil
	}
	var doc struct {
		Module    string                          `json:"module"`
		Language  string                          `json:"language"`
		Functions []enrichment.FunctionEnrichment `json:"functions"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &enrichment.Payload{
		Module:    doc.Module,
		Language:  doc.Language,
		Functions: NormalizeFunctions(doc.Functions),
	}, nil
}

// NormalizeFunctions drops functions without an FQN, rewrites every edge
// source to its function and caps edges per function.
func NormalizeFunctions(in []enrichment.FunctionEnrichment) []enrichment.FunctionEnrichment {
	out := make([]enrichment.FunctionEnrichment, 0, len(in))
	for _, fn := range in {
		fn.FQN = strings.TrimSpace(fn.FQN)
		if fn.FQN == "" {
			continue
		}
		fn.Description = strings.TrimSpace(fn.Description)
		edges := make([]enrichment.Edge, 0, min(len(fn.Relationships), enrichment.MaxEdgesPerFunction))
		for _, e := range fn.Relationships {
			if len(edges) == enrichment.MaxEdgesPerFunction {
				break
			}
			e.Type = strings.ToUpper(strings.TrimSpace(e.Type))
			if e.Type == "" {
				continue
			}
			e.Source = fn.FQN
			e.Target = strings.TrimSpace(e.Target)
			edges = append(edges, e)
		}
		fn.Relationships = edges
		out = append(out, fn)
	}
	return out
}

// ParseTemplateEnrichment recovers the template summary object. It returns
// nil when no candidate is found or the summary is blank.
func ParseTemplateEnrichment(text string) (*enrichment.TemplateEnrichment, error) {
	raw, _, ok := ExtractJSON(text, templateMarkers...)
	if !ok {
		return nil, nil
	}
	var doc struct {
		File      *enrichment.TemplateFile `json:"file"`
		Endpoints []struct {
			Method         string     `json:"method"`
			URL            string     `json:"url"`
			Purpose        string     `json:"purpose"`
			RequestFields  fieldNames `json:"request_fields"`
			ResponseFields fieldNames `json:"response_fields"`
		} `json:"endpoints"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Summary) == "" {
		return nil, nil
	}
	out := &enrichment.TemplateEnrichment{
		File:    doc.File,
		Summary: strings.TrimSpace(doc.Summary),
	}
	for _, ep := range doc.Endpoints {
		if ep.Method == "" && ep.URL == "" && ep.Purpose == "" {
			continue
		}
		out.Endpoints = append(out.Endpoints, enrichment.Endpoint{
			Method:         ep.Method,
			URL:            ep.URL,
			Purpose:        ep.Purpose,
			RequestFields:  ep.RequestFields,
			ResponseFields: ep.ResponseFields,
		})
	}
	return out, nil
}

// fieldNames accepts a list of strings or of arbitrary JSON values; non-string
// entries are kept as compact JSON.
type fieldNames []string

func (f *fieldNames) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var single string
		if json.Unmarshal(data, &single) == nil {
			*f = fieldNames{single}
			return nil
		}
		return err
	}
	out := make(fieldNames, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err != nil {
			return err
		}
		out = append(out, buf.String())
	}
	*f = out
	return nil
}
