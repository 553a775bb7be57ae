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
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Errors returned by the provider and summarizer factories.
var (
	ErrUnknownProvider = errors.New("unknown LLM provider type")
	ErrMissingAPIKey   = errors.New("missing LLM provider API key")
)

// Provider is the transport to one LLM backend.
type Provider interface {
	// Chat sends the messages and returns the assistant text and usage.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string

	// Models returns models known to work with this provider.
	Models(ctx context.Context) ([]string, error)
}

// Response formats a backend may be asked for.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Response schemas understood by backends that support constrained output.
const (
	SchemaNone           = ""
	SchemaCodeEnrichment = "code_enrichment"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Messages       []Message `json:"messages"`
	Model          string    `json:"model,omitempty"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	Temperature    float64   `json:"temperature,omitempty"`
	TopP           float64   `json:"top_p,omitempty"`
	TopK           float64   `json:"top_k,omitempty"`
	ResponseFormat string    `json:"response_format,omitempty"`
	Schema         string    `json:"schema,omitempty"`
}

// Usage is token accounting normalized across backends.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	CachedTokens int64 `json:"cached_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ChatResponse contains the chat completion response.
type ChatResponse struct {
	Message  Message       `json:"message"`
	Model    string        `json:"model"`
	Usage    Usage         `json:"usage"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ProviderConfig holds configuration for creating providers and summarizers.
type ProviderConfig struct {
	// Type selects the backend: "deepseek", "gemini", "anthropic" (or
	// "haiku", "claude") and "mock".
	Type string `json:"type" yaml:"type"`

	// BaseURL overrides the API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is required by every real backend.
	APIKey string `json:"-" yaml:"-"`

	// DefaultModel overrides the backend's model.
	DefaultModel string `json:"default_model,omitempty" yaml:"model,omitempty"`

	// MaxTokens overrides the backend's output token budget.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// ConnectTimeout and ReadTimeout bound each HTTP call. Zero selects the
	// backend default.
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	ReadTimeout    time.Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`

	// RequestsPerSecond and Burst configure the optional rate limiter.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty"`

	// HTTPClient replaces the transport built from the timeouts.
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// Audit receives request, response and usage events. Optional.
	Audit *AuditSink `json:"-" yaml:"-"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// NewProvider creates the transport for cfg.Type.
// Supported types: "deepseek", "gemini", "anthropic" ("haiku", "claude"), "mock".
func NewProvider(cfg ProviderConfig) (Provider, error) {
	b, err := lookupBackend(cfg.Type)
	if err != nil {
		return nil, err
	}
	if b.needsKey && strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: %s (set %s)", ErrMissingAPIKey, b.name, DefaultAPIKeyEnv(b.name))
	}
	return b.newProvider(cfg, b)
}

// backend describes the defaults and quirks of one LLM vendor.
type backend struct {
	name        string
	needsKey    bool
	baseURL     string
	model       string
	maxTokens   int
	contextSize int
	temperature float64
	topP        float64
	topK        float64

	// systemPrompts sends a role-specific system message with each call.
	systemPrompts bool
	// codeSchema asks the backend for schema-constrained JSON on the code path.
	codeSchema bool

	connectTimeout time.Duration
	readTimeout    time.Duration

	newProvider func(cfg ProviderConfig, b backend) (Provider, error)
}

var backends = map[string]backend{
	"deepseek": {
		name:           "deepseek",
		needsKey:       true,
		baseURL:        "https://api.deepseek.com",
		model:          "deepseek-coder",
		maxTokens:      8192,
		contextSize:    65536,
		systemPrompts:  true,
		connectTimeout: 60 * time.Second,
		readTimeout:    90 * time.Second,
		newProvider:    newDeepSeekProvider,
	},
	"gemini": {
		name:           "gemini",
		needsKey:       true,
		baseURL:        "",
		model:          "gemini-2.5-flash-lite",
		maxTokens:      8192,
		contextSize:    1048576,
		temperature:    1,
		topP:           0.95,
		topK:           40,
		codeSchema:     true,
		connectTimeout: 30 * time.Second,
		readTimeout:    30 * time.Second,
		newProvider:    newGeminiProvider,
	},
	"anthropic": {
		name:           "anthropic",
		needsKey:       true,
		baseURL:        "https://api.anthropic.com/v1",
		model:          "claude-haiku-4-5-20251001",
		maxTokens:      20000,
		contextSize:    200000,
		temperature:    1,
		connectTimeout: 90 * time.Second,
		readTimeout:    180 * time.Second,
		newProvider:    newAnthropicProvider,
	},
	"mock": {
		name:        "mock",
		model:       "mock-model",
		maxTokens:   8192,
		contextSize: 65536,
		newProvider: func(cfg ProviderConfig, b backend) (Provider, error) {
			return &MockProvider{model: firstNonEmpty(cfg.DefaultModel, b.model)}, nil
		},
	},
}

func lookupBackend(providerType string) (backend, error) {
	name := strings.ToLower(strings.TrimSpace(providerType))
	switch name {
	case "haiku", "claude":
		name = "anthropic"
	case "test":
		name = "mock"
	}
	b, ok := backends[name]
	if !ok {
		return backend{}, fmt.Errorf("%w: %s (supported: deepseek, gemini, anthropic, mock)", ErrUnknownProvider, providerType)
	}
	return b, nil
}

// newHTTPClient builds a client whose connect, response and total deadlines
// follow the backend budget.
func newHTTPClient(cfg ProviderConfig, b backend) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	connect := b.connectTimeout
	if cfg.ConnectTimeout > 0 {
		connect = cfg.ConnectTimeout
	}
	read := b.readTimeout
	if cfg.ReadTimeout > 0 {
		read = cfg.ReadTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connect}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   8,
	}
	return &http.Client{Transport: transport, Timeout: 2*connect + read}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
