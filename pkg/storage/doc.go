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

// Package storage persists enrichment state in a local SQLite database.
//
// A single Store plays two roles for the dispatcher:
//
//   - Validator: a processed-file ledger keyed by (solution, component,
//     path) that remembers the sha256 and size of every completed file, so
//     unchanged files are not sent to a provider again.
//   - Listener: a sink that keeps the latest enrichment payload per file and
//     an append-only log of run errors.
//
// # Quick Start
//
//	store, err := storage.Open(storage.Config{ProjectID: "shop"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	res, err := dispatcher.Process(ctx, req, store, store)
//
// Schema changes live in the migrations subpackage as numbered
// NNN_name.up.sql files and are applied on Open.
//
// The database runs in WAL mode with a single open connection; all methods
// are safe for concurrent use. The ledger fails open: when a lookup errors
// the file is treated as eligible.
package storage
