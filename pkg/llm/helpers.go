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
	"os"
	"strings"
)

// DefaultAPIKeyEnv returns the environment variable holding the API key for
// a provider type, or "" for providers without keys.
func DefaultAPIKeyEnv(providerType string) string {
	b, err := lookupBackend(providerType)
	if err != nil || !b.needsKey {
		return ""
	}
	return strings.ToUpper(b.name) + "_API_KEY"
}

// DetectProviderType picks a provider from the environment.
// Checks in order: DEEPSEEK_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY.
// Falls back to mock if nothing is configured.
func DetectProviderType() string {
	for _, name := range []string{"deepseek", "gemini", "anthropic"} {
		if os.Getenv(DefaultAPIKeyEnv(name)) != "" {
			return name
		}
	}
	return "mock"
}

// ResolveAPIKey fills cfg.APIKey from envVar, or from the provider's default
// variable when envVar is empty. An explicit key is never overwritten.
func ResolveAPIKey(cfg *ProviderConfig, envVar string) {
	if cfg == nil || cfg.APIKey != "" {
		return
	}
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(cfg.Type)
	}
	if envVar == "" {
		return
	}
	cfg.APIKey = strings.TrimSpace(os.Getenv(envVar))
}
