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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// geminiProvider wraps the official genai client for the Gemini API.
type geminiProvider struct {
	cli          *genai.Client
	defaultModel string
}

func newGeminiProvider(cfg ProviderConfig, b backend) (Provider, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(cfg, b),
	}
	if base := firstNonEmpty(cfg.BaseURL, b.baseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(base, "/") + "/"}
	}
	cli, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiProvider{cli: cli, defaultModel: firstNonEmpty(cfg.DefaultModel, b.model)}, nil
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Models(ctx context.Context) ([]string, error) {
	return []string{"gemini-2.5-flash-lite", "gemini-2.5-flash", "gemini-2.5-pro"}, nil
}

func (p *geminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := firstNonEmpty(req.Model, p.defaultModel)

	gc := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		gc.Temperature = float32Ptr(req.Temperature)
	}
	if req.TopP > 0 {
		gc.TopP = float32Ptr(req.TopP)
	}
	if req.TopK > 0 {
		gc.TopK = float32Ptr(req.TopK)
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	switch req.ResponseFormat {
	case FormatJSON:
		gc.ResponseMIMEType = "application/json"
		if req.Schema == SchemaCodeEnrichment {
			gc.ResponseSchema = codeEnrichmentSchema()
		}
	default:
		gc.ResponseMIMEType = "text/plain"
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == "system" {
			gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}

	start := time.Now()
	resp, err := p.cli.Models.GenerateContent(ctx, model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini chat: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini returned no candidates")
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return nil, errors.New("gemini returned no content parts")
	}
	var text strings.Builder
	for _, part := range parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	out := &ChatResponse{
		Message:  Message{Role: "assistant", Content: text.String()},
		Model:    firstNonEmpty(resp.ModelVersion, model),
		Duration: time.Since(start),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			InputTokens:  int64(u.PromptTokenCount),
			OutputTokens: int64(u.CandidatesTokenCount),
			CachedTokens: int64(u.CachedContentTokenCount),
			TotalTokens:  int64(u.TotalTokenCount),
		}
		if out.Usage.TotalTokens == 0 {
			out.Usage.TotalTokens = out.Usage.InputTokens + out.Usage.OutputTokens
		}
	}
	return out, nil
}

// codeEnrichmentSchema constrains the code path to the function-level shape.
func codeEnrichmentSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	relationship := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":        str("Relationship type"),
			"source":      str("Fully qualified name of the calling function"),
			"target":      str("Route, operation, service or table"),
			"description": str("One sentence explaining the relationship"),
		},
		Required: []string{"type", "source", "target"},
	}
	function := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"fqn":         str("Fully qualified function name"),
			"description": str("What the function does"),
			"relationships": {
				Type:  genai.TypeArray,
				Items: relationship,
			},
		},
		Required: []string{"fqn", "description"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"module":    str("Module or file level name"),
			"language":  str("Source language"),
			"functions": {Type: genai.TypeArray, Items: function},
		},
		Required: []string{"module", "functions"},
	}
}

func float32Ptr(v float64) *float32 {
	f := float32(v)
	return &f
}
