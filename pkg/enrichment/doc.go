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

// Package enrichment defines the records produced for each processed file:
// function, template, config and document enrichments, the relationship
// edges discovered along the way, and the token usage billed for the call.
//
// A Payload is created by an LLM summarizer, completed by the dispatcher
// (solution, component and billing back-fill) and then handed to a
// listener. Nothing in this package is safe for concurrent mutation; each
// payload belongs to exactly one task until it is delivered.
package enrichment
