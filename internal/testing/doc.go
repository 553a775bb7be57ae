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

// Package testing provides test helpers for enrich packages.
//
// # Quick Start
//
// Build a throwaway repository and record what the dispatcher reports:
//
//	func TestMyFeature(t *testing.T) {
//	    root := testing.WriteTree(t, map[string]string{
//	        "src/main.go":  "package main",
//	        "README.md":    "# Demo",
//	    })
//
//	    listener := testing.NewRecordingListener()
//	    validator := testing.NewMemoryValidator()
//
//	    // run the dispatcher against root, then inspect
//	    require.Len(t, listener.Payloads(), 2)
//	    require.ElementsMatch(t, []string{"src/main.go", "README.md"}, validator.Completed())
//	}
//
// # Fakes
//
// RecordingListener and MemoryValidator satisfy the dispatcher's Listener
// and Validator interfaces without touching disk. Both are safe for
// concurrent use since the dispatcher calls them from worker goroutines.
//
// # Persistent Store
//
// SetupTestStore opens a SQLite store in a temporary directory and closes
// it when the test finishes.
package testing
