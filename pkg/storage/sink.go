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
	"encoding/json"
	"fmt"
	"time"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

// OnEnrichment stores the payload as the latest enrichment of the file.
// A failed write is logged and keeps the file out of the ledger until a
// later save succeeds.
func (s *Store) OnEnrichment(solution, component, relPath string, payload *enrichment.Payload) {
	key := fileKey{solution, component, relPath}
	err := s.SavePayload(context.Background(), solution, component, relPath, payload)

	s.unsavedMu.Lock()
	if err != nil {
		s.unsaved[key] = struct{}{}
	} else {
		delete(s.unsaved, key)
	}
	s.unsavedMu.Unlock()

	if err != nil {
		s.logger.Warn("sink.save.error", "path", relPath, "err", err)
	}
}

// takeUnsaved reports whether the last payload write of a file failed and
// clears the mark.
func (s *Store) takeUnsaved(solution, component, relPath string) bool {
	key := fileKey{solution, component, relPath}
	s.unsavedMu.Lock()
	defer s.unsavedMu.Unlock()
	_, ok := s.unsaved[key]
	delete(s.unsaved, key)
	return ok
}

// OnError records a dispatcher error.
func (s *Store) OnError(message string, cause error) {
	db, err := s.conn()
	if err != nil {
		return
	}
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}
	if _, err := db.ExecContext(context.Background(),
		`INSERT INTO run_errors (message, cause, occurred_at) VALUES (?, ?, ?)`,
		message, causeText, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		s.logger.Warn("sink.error.save", "err", err)
	}
}

// SavePayload upserts the payload of one file.
func (s *Store) SavePayload(ctx context.Context, solution, component, relPath string, payload *enrichment.Payload) error {
	if payload == nil {
		return fmt.Errorf("save payload %s: nil payload", relPath)
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO enrichments (solution, component, path, model, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(solution, component, path) DO UPDATE SET
			model = excluded.model,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, solution, component, relPath, payload.Model, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert enrichment: %w", err)
	}
	return nil
}

// StoredPayload is an enrichment read back from the sink.
type StoredPayload struct {
	Path      string
	UpdatedAt string
	Payload   *enrichment.Payload
}

// Payloads returns the stored enrichments of a component ordered by path.
func (s *Store) Payloads(ctx context.Context, solution, component string) ([]StoredPayload, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT path, payload, updated_at FROM enrichments
		WHERE solution = ? AND component = ?
		ORDER BY path
	`, solution, component)
	if err != nil {
		return nil, fmt.Errorf("query enrichments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredPayload
	for rows.Next() {
		var (
			sp   StoredPayload
			data string
		)
		if err := rows.Scan(&sp.Path, &data, &sp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan enrichment: %w", err)
		}
		sp.Payload = &enrichment.Payload{}
		if err := json.Unmarshal([]byte(data), sp.Payload); err != nil {
			return nil, fmt.Errorf("decode enrichment %s: %w", sp.Path, err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// RunError is an error recorded through OnError.
type RunError struct {
	ID         int64  `json:"id"`
	Message    string `json:"message"`
	Cause      string `json:"cause,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Errors returns the most recent recorded errors, newest first.
func (s *Store) Errors(ctx context.Context, limit int) ([]RunError, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, message, cause, occurred_at FROM run_errors ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query errors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunError
	for rows.Next() {
		var e RunError
		if err := rows.Scan(&e.ID, &e.Message, &e.Cause, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
