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

package enrichment

// MaxEdgesPerFunction bounds the relationship edges kept per function.
const MaxEdgesPerFunction = 6

// Edge types reported by summarizers for function-level relationships.
const (
	EdgeRouteHandles   = "ROUTE_HANDLES"
	EdgeRouteCalls     = "ROUTE_CALLS"
	EdgeSOAPHandles    = "SOAP_HANDLES"
	EdgeSOAPCalls      = "SOAP_CALLS"
	EdgeRESTCalls      = "REST_CALLS"
	EdgeGraphQLHandles = "GRAPHQL_HANDLES"
	EdgeGraphQLCalls   = "GRAPHQL_CALLS"
	EdgeDBAccesses     = "DB_ACCESSES"
)

// Edge types recorded by the template bundler.
const (
	EdgeTemplateReferencesAsset = "TEMPLATE_REFERENCES_ASSET"
	EdgeTemplateAssetSkipped    = "TEMPLATE_ASSET_SKIPPED"
	EdgeTemplateMissingAsset    = "TEMPLATE_MISSING_ASSET"
	EdgeTemplateAssetReadError  = "TEMPLATE_ASSET_READ_ERROR"
)

// NoteSkippedSizeLimit is attached to files that exceed the size limit.
const NoteSkippedSizeLimit = "Skipped due to size limit"

// Payload is the enrichment record for a single file.
type Payload struct {
	Solution  string `json:"solution"`
	Component string `json:"component"`
	Module    string `json:"module,omitempty"`
	Language  string `json:"language,omitempty"`

	Functions []FunctionEnrichment `json:"functions,omitempty"`
	Templates []TemplateEnrichment `json:"templates,omitempty"`
	Configs   []ConfigEnrichment   `json:"configs,omitempty"`
	Documents []DocumentEnrichment `json:"documents,omitempty"`
	Notes     []FileNote           `json:"notes,omitempty"`

	// Relationships holds cross-file edges (template assets today).
	Relationships []Edge `json:"relationships,omitempty"`

	Model string         `json:"model,omitempty"`
	Usage *BillableUsage `json:"usage,omitempty"`
}

// FunctionEnrichment describes one function or method defined in a file.
type FunctionEnrichment struct {
	FQN           string `json:"fqn"`
	Description   string `json:"description"`
	Relationships []Edge `json:"relationships,omitempty"`
}

// Edge is a typed, directed relationship between two named entities.
type Edge struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
}

// TemplateEnrichment summarizes a GUI template and the assets bundled with it.
type TemplateEnrichment struct {
	File      *TemplateFile `json:"file,omitempty"`
	Endpoints []Endpoint    `json:"endpoints,omitempty"`
	Summary   string        `json:"summary"`
}

// TemplateFile classifies the analysed template.
type TemplateFile struct {
	Path     string `json:"path,omitempty"`
	Type     string `json:"type,omitempty"`
	Language string `json:"language,omitempty"`
}

// Endpoint is a network call or form target found in a template.
type Endpoint struct {
	Method         string   `json:"method,omitempty"`
	URL            string   `json:"url,omitempty"`
	Purpose        string   `json:"purpose,omitempty"`
	RequestFields  []string `json:"request_fields,omitempty"`
	ResponseFields []string `json:"response_fields,omitempty"`
}

// ConfigEnrichment is the narrative summary of a configuration file.
type ConfigEnrichment struct {
	Path         string `json:"path"`
	DetectedType string `json:"detected_type"`
	Summary      string `json:"summary"`
}

// DocumentEnrichment is the knowledge summary of a long-form document.
type DocumentEnrichment struct {
	Path     string `json:"path"`
	DocType  string `json:"doc_type"`
	Title    string `json:"title,omitempty"`
	Datetime string `json:"datetime,omitempty"`
	Summary  string `json:"summary"`
}

// FileNote records why a file was handled without an LLM call.
type FileNote struct {
	Path string `json:"path"`
	Note string `json:"note"`
}

// BillableUsage is the token accounting of one LLM invocation.
type BillableUsage struct {
	Model        string `json:"model"`
	FilePath     string `json:"file_path"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	CachedTokens int64  `json:"cached_tokens"`
	TotalTokens  int64  `json:"total_tokens"`
}

// NewSkippedPayload builds the synthetic record for an oversized file.
func NewSkippedPayload(relPath string) *Payload {
	return &Payload{
		Notes: []FileNote{{Path: relPath, Note: NoteSkippedSizeLimit}},
	}
}

// IsEmpty reports whether the payload carries no enrichment at all.
func (p *Payload) IsEmpty() bool {
	if p == nil {
		return true
	}
	return len(p.Functions) == 0 && len(p.Templates) == 0 && len(p.Configs) == 0 &&
		len(p.Documents) == 0 && len(p.Notes) == 0
}
