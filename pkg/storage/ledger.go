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

package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// IsEligible reports whether a file must be (re)processed: it is unknown to
// the ledger or its content changed since it was completed. Any error makes
// the file eligible so a broken ledger never hides work.
func (s *Store) IsEligible(solution, component, relPath, absPath string) bool {
	db, err := s.conn()
	if err != nil {
		return true
	}

	var (
		hash string
		size int64
	)
	err = db.QueryRowContext(context.Background(),
		`SELECT sha256, size FROM processed_files WHERE solution = ? AND component = ? AND path = ?`,
		solution, component, relPath,
	).Scan(&hash, &size)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		s.logger.Warn("ledger.lookup.error", "path", relPath, "err", err)
		return true
	}

	info, err := os.Stat(absPath)
	if err != nil || info.Size() != size {
		return true
	}
	current, _, err := fileDigest(absPath)
	if err != nil {
		s.logger.Warn("ledger.hash.error", "path", relPath, "err", err)
		return true
	}
	return current != hash
}

// MarkCompleted records the current content of a file as processed. Files
// whose payload could not be saved stay eligible.
func (s *Store) MarkCompleted(solution, component, relPath, absPath string) {
	if s.takeUnsaved(solution, component, relPath) {
		s.logger.Warn("ledger.mark.skip_unsaved", "path", relPath)
		return
	}
	if err := s.markCompleted(context.Background(), solution, component, relPath, absPath); err != nil {
		s.logger.Warn("ledger.mark.error", "path", relPath, "err", err)
	}
}

func (s *Store) markCompleted(ctx context.Context, solution, component, relPath, absPath string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	hash, size, err := fileDigest(absPath)
	if err != nil {
		return fmt.Errorf("hash file: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO processed_files (solution, component, path, sha256, size, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(solution, component, path) DO UPDATE SET
			sha256 = excluded.sha256,
			size = excluded.size,
			completed_at = excluded.completed_at
	`, solution, component, relPath, hash, size, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert processed file: %w", err)
	}
	return nil
}

// Stats summarizes the ledger and sink contents.
type Stats struct {
	ProcessedFiles int `json:"processed_files"`
	Enrichments    int `json:"enrichments"`
	Errors         int `json:"errors"`
	SchemaVersion  int `json:"schema_version"`
}

// Stats counts rows, optionally restricted to one solution and component.
// Errors carry no scope and are always counted store-wide.
func (s *Store) Stats(ctx context.Context, solution, component string) (*Stats, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	st := &Stats{}
	scope := ""
	args := []any{}
	if solution != "" || component != "" {
		scope = " WHERE solution = ? AND component = ?"
		args = append(args, solution, component)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM processed_files"+scope, args...).Scan(&st.ProcessedFiles); err != nil {
		return nil, fmt.Errorf("count processed files: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrichments"+scope, args...).Scan(&st.Enrichments); err != nil {
		return nil, fmt.Errorf("count enrichments: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_errors").Scan(&st.Errors); err != nil {
		return nil, fmt.Errorf("count errors: %w", err)
	}
	if st.SchemaVersion, err = s.SchemaVersion(ctx); err != nil {
		return nil, fmt.Errorf("schema version: %w", err)
	}
	return st, nil
}

// Reset forgets every processed file, payload and error so the next run
// enriches everything again. It clears the whole store, every solution and
// component included.
func (s *Store) Reset(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, table := range []string{"processed_files", "enrichments", "run_errors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// fileDigest returns the hex sha256 and byte size of a file.
func fileDigest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
