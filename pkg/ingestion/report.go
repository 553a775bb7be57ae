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

package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LastRunFile is the report name written after every run.
const LastRunFile = "last-run.json"

// ReportStore persists run reports so the status command can show the last
// run without touching the ledger.
type ReportStore struct {
	dir string
}

// NewReportStore creates a store writing into dir.
func NewReportStore(dir string) *ReportStore {
	return &ReportStore{dir: dir}
}

// Path returns the location of the last run report.
func (s *ReportStore) Path() string {
	return filepath.Join(s.dir, LastRunFile)
}

// Save writes result as the last run report.
func (s *ReportStore) Save(result *RunResult) error {
	if result == nil {
		return fmt.Errorf("save run report: nil result")
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	// Write atomically (temp file + rename)
	path := s.Path()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write run report temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename run report: %w", err)
	}
	return nil
}

// Load reads the last run report. It returns nil, nil when none exists.
func (s *ReportStore) Load() (*RunResult, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run report: %w", err)
	}
	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse run report: %w", err)
	}
	return &result, nil
}

// Clear removes the last run report.
func (s *ReportStore) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove run report: %w", err)
	}
	return nil
}
