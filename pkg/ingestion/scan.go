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
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
)

// EntryStatus is how the walker treats a visited path.
type EntryStatus string

const (
	EntryEligible     EntryStatus = "eligible"
	EntryTooLarge     EntryStatus = "too_large"
	EntrySkipped      EntryStatus = "skipped"
	EntryUnclassified EntryStatus = "unclassified"
)

// Entry is one path visited by Scan.
type Entry struct {
	RelPath  string      `json:"path"`
	AbsPath  string      `json:"-"`
	IsDir    bool        `json:"dir,omitempty"`
	Category Category    `json:"category,omitempty"`
	Status   EntryStatus `json:"status"`
}

// Scan walks root once in lexical order and reports every skipped
// directory and every regular file to visit. Skipped directories are not
// descended into and symlinks are never followed. Cancelling ctx stops the
// walk with errWalkInterrupted. An error from visit aborts the walk.
func Scan(ctx context.Context, root string, rules *Rules, logger *slog.Logger, visit func(Entry) error) error {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return errWalkInterrupted
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			logger.Debug("repo.walk.skip_symlink", "path", rel)
			return nil
		}
		if d.IsDir() {
			if !rules.ShouldSkip(rel, true) {
				return nil
			}
			logger.Debug("repo.walk.skip_dir", "path", rel)
			if err := visit(Entry{RelPath: rel, AbsPath: path, IsDir: true, Status: EntrySkipped}); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}

		e := Entry{RelPath: rel, AbsPath: path}
		switch {
		case rules.ShouldSkip(rel, false):
			e.Status = EntrySkipped
		default:
			e.Category = rules.Classify(rel).Category()
			switch {
			case e.Category == CategoryNone:
				e.Status = EntryUnclassified
			case rules.IsTooLarge(path):
				e.Status = EntryTooLarge
			default:
				e.Status = EntryEligible
			}
		}
		return visit(e)
	})
}
