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
	"io"
	"net/http"
	"strings"
	"time"
)

// deepseekProvider talks to the OpenAI-compatible chat completions API.
type deepseekProvider struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client
}

func newDeepSeekProvider(cfg ProviderConfig, b backend) (Provider, error) {
	return &deepseekProvider{
		baseURL:      strings.TrimSuffix(firstNonEmpty(cfg.BaseURL, b.baseURL), "/"),
		apiKey:       cfg.APIKey,
		defaultModel: firstNonEmpty(cfg.DefaultModel, b.model),
		client:       newHTTPClient(cfg, b),
	}, nil
}

func (p *deepseekProvider) Name() string { return "deepseek" }

func (p *deepseekProvider) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepseek list models: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepseek list models (status %d)", resp.StatusCode)
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	models := make([]string, len(result.Data))
	for i, m := range result.Data {
		models[i] = m.ID
	}
	return models, nil
}

type deepseekUsage struct {
	PromptTokens         int64                 `json:"prompt_tokens"`
	CompletionTokens     int64                 `json:"completion_tokens"`
	TotalTokens          int64                 `json:"total_tokens"`
	PromptCacheHitTokens *int64                `json:"prompt_cache_hit_tokens"`
	PromptTokensDetails  *deepseekTokenDetails `json:"prompt_tokens_details"`
}

type deepseekTokenDetails struct {
	CachedTokens int64 `json:"cached_tokens"`
}

// normalize folds the two cache counters into one and derives a missing total.
func (u deepseekUsage) normalize() Usage {
	out := Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
	switch {
	case u.PromptCacheHitTokens != nil:
		out.CachedTokens = *u.PromptCacheHitTokens
	case u.PromptTokensDetails != nil:
		out.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	if out.TotalTokens == 0 {
		out.TotalTokens = out.InputTokens + out.OutputTokens
	}
	return out
}

func (p *deepseekProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := firstNonEmpty(req.Model, p.defaultModel)

	messages := make([]map[string]string, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = map[string]string{
			"role":    m.Role,
			"content": m.Content,
		}
	}

	payload := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		payload["top_p"] = req.TopP
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepseek chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepseek chat error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string         `json:"model"`
		Usage *deepseekUsage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("deepseek chat: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("deepseek returned no choices")
	}

	out := &ChatResponse{
		Message: Message{
			Role:    "assistant",
			Content: result.Choices[0].Message.Content,
		},
		Model:    firstNonEmpty(result.Model, model),
		Duration: time.Since(start),
	}
	if result.Usage != nil {
		out.Usage = result.Usage.normalize()
	}
	return out, nil
}
