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

package main

import (
	"strings"
	"testing"
)

func TestCompletionScript(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "complete -F _enrich_completion enrich"},
		{"zsh", "#compdef enrich"},
		{"fish", "complete -c enrich"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			script, err := completionScript([]string{tt.shell})
			if err != nil {
				t.Fatalf("completionScript(%q) error = %v", tt.shell, err)
			}
			if !strings.Contains(script, tt.want) {
				t.Errorf("completionScript(%q) missing %q", tt.shell, tt.want)
			}
			for _, cmd := range []string{"init", "run", "classify", "status", "reset", "install-hook"} {
				if !strings.Contains(script, cmd) {
					t.Errorf("completionScript(%q) does not mention command %q", tt.shell, cmd)
				}
			}
		})
	}
}

func TestCompletionScript_Errors(t *testing.T) {
	for _, args := range [][]string{nil, {"bash", "zsh"}, {"powershell"}} {
		if _, err := completionScript(args); err == nil {
			t.Errorf("completionScript(%v) expected error", args)
		}
	}
}
