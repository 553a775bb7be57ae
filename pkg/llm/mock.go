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
	"fmt"
	"sync/atomic"
	"time"
)

// MockProvider is a test provider that returns predictable responses.
type MockProvider struct {
	model    string
	calls    atomic.Int64
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider returns a mock reporting the given model name.
func NewMockProvider(model string, chat func(ctx context.Context, req ChatRequest) (*ChatResponse, error)) *MockProvider {
	if model == "" {
		model = "mock-model"
	}
	return &MockProvider{model: model, ChatFunc: chat}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Models(ctx context.Context) ([]string, error) {
	return []string{p.modelName()}, nil
}

// Calls returns how many chat requests reached the mock.
func (p *MockProvider) Calls() int64 { return p.calls.Load() }

func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.calls.Add(1)
	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, req)
	}
	lastMsg := ""
	if len(req.Messages) > 0 {
		lastMsg = req.Messages[len(req.Messages)-1].Content
	}
	content := fmt.Sprintf("[mock] Response to: %.50s...", lastMsg)
	if req.ResponseFormat == FormatJSON {
		content = `{"module":"mock","language":"","functions":[],"file":{"path":"","type":"template","language":""},"summary":"[mock] summary"}`
	}
	return &ChatResponse{
		Message:  Message{Role: "assistant", Content: content},
		Model:    p.modelName(),
		Usage:    Usage{InputTokens: 50, OutputTokens: 20, TotalTokens: 70},
		Duration: 10 * time.Millisecond,
	}, nil
}

func (p *MockProvider) modelName() string {
	if p.model == "" {
		return "mock-model"
	}
	return p.model
}
