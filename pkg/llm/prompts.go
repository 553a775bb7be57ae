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
	"fmt"
	"strings"
	"text/template"
)

// Pipelines name the four enrichment flows in prompts, audit events and metrics.
const (
	PipelineCode     = "code"
	PipelineTemplate = "template"
	PipelineConfig   = "config"
	PipelineDocument = "document"
)

// System prompts for backends that take a role-specific system message.
var systemPrompts = map[string]string{
	PipelineCode:     "You are an experienced software engineer reviewing code.",
	PipelineTemplate: "You are an experienced software engineer reviewing GUI templates.",
	PipelineConfig:   "You are an experienced software engineer reviewing configuration files.",
	PipelineDocument: "You are an experienced software engineer reviewing technical documents.",
}

// PromptData carries the variables substituted into prompt templates.
type PromptData struct {
	Language     string
	RelativePath string
	Content      string
	DetectedType string
	DocType      string
	DocTitle     string
	DocDatetime  string
}

const fence = "------------------------------------------------------------------------"

const codePromptText = `You are an expert software analyst. Below is ONE complete {{.Language}} source file.
Describe ONLY the functions and methods defined in this file. Ignore imports and external symbols.

Return one JSON object with a "functions" array. For every function or method give:
- "fqn": the fully qualified name using the naming rules of the language.
- "description": 4 to 7 sentences in plain business English on what it does and how it works.
  Say whether it handles or calls a web route, SOAP, REST or GraphQL endpoint, whether it
  reads or writes a database (name the table, collection or key when visible) and whether it
  touches sensitive data such as emails or identifiers.
- "relationships": at most 6 edges about those interactions, using only these types:
    ROUTE_HANDLES   source="GET /path/:param", target=function fqn
    ROUTE_CALLS     source=function fqn, target="POST /path"
    SOAP_HANDLES    source="Service#Operation", target=function fqn
    SOAP_CALLS      source=function fqn, target="Service#Operation"
    REST_CALLS      source=function fqn, target="METHOD https://host/path"
    GRAPHQL_HANDLES source="query OperationName", target=function fqn
    GRAPHQL_CALLS   source=function fqn, target="mutation OperationName"
    DB_ACCESSES     source=function fqn, target="READ table:users" or "WRITE collection:videos"
  Each edge may carry a one sentence "description".

Rules:
- Do not repeat facts a parser already knows (names, lines, visibility, raw call lists).
- Prefer precise templated targets over vague text.
- No prose outside the JSON. No markdown.

Output shape:
{
  "module": "module, namespace or class name of the file",
  "language": "programming language",
  "functions": [
    {"fqn": "", "description": "", "relationships": [{"type": "", "source": "", "target": "", "description": ""}]}
  ]
}

Relative path of the file: {{.RelativePath}}
` + fence + `
{{.Content}}
` + fence + `
`

const templatePromptText = `You are an expert analyst of web GUI artifacts. Below is ONE {{.Language}} template,
followed by any local scripts and stylesheets it links.

Explain everything an engineer needs to change this page safely: what it renders and where,
the template engine and placeholder syntax, expected inputs, includes and layouts, assets,
contractual ids, classes and data attributes, forms and their fields, client side events and
handlers, every network endpoint used, and how data flows from placeholders to the DOM,
to requests and back. When something is absent say "Unknown / not present in provided input".
Quote short evidence where it helps.

Output format:
1) A section titled "VERBOSE SUMMARY" with the full narrative.
2) Then only this JSON object and nothing after it:
{
  "file": {"path": "", "type": "template|script|style", "language": "html|handlebars|jinja|jsp|jrxml|js|ts|css|unknown"},
  "endpoints": [{"method": "", "url": "", "purpose": "", "request_fields": [], "response_fields": []}],
  "summary": "one detailed string covering rendering flow, events, actions and the key ids, includes and assets"
}

Relative path of the file: {{.RelativePath}}
` + fence + `
{{.Content}}
` + fence + `
`

const configPromptText = `You are a meticulous analyst of configuration files. Turn the file below into a dense,
retrieval friendly plain text description.

Keep every identifier exactly as written: keys, sections, environment variables, properties,
tags, dependency names, versions, URLs, hosts, ports and paths. Describe what depends on what
and which values override others. Never invent missing values. Never print secrets: keep the
key and write [REDACTED_SECRET_VALUE] for passwords, tokens, API keys, private keys and
connection strings with credentials.

Detected type: {{.DetectedType}}

Write plain text (no JSON, no YAML, no markdown tables) under these headings:
1) File identity and detected format
2) High-level purpose
3) Structural map
4) Key entities and attributes
5) Relationships and data flow
6) Constraints, defaults and precedence
7) Security and sensitive fields
8) Operational implications
9) Retrospective completeness check

Relative path of the file: {{.RelativePath}}
` + fence + `
{{.Content}}
` + fence + `
`

const documentPromptText = `You are a senior IT architecture analyst curating knowledge for retrieval.

Document type: {{.DocType}}
Document title: {{.DocTitle}}
Document datetime: {{.DocDatetime}}
Relative path: {{.RelativePath}}

Turn the extracted text below into structured plain text (no JSON, no YAML) using exactly
these headings: DOC_METADATA, PURPOSE, EXECUTIVE_SUMMARY, SYSTEMS_AND_SCOPE,
KEY_TECHNICAL_TOPICS, REQUIREMENTS_AND_CONSTRAINTS, DECISIONS_AND_RATIONALE,
RISKS_AND_ISSUES, ENTITIES, RELATIONSHIPS, SECURITY_AND_COMPLIANCE_POSTURE,
SENTIMENT_AND_SIGNAL, ACTIONS_AND_NEXT_STEPS, OPEN_QUESTIONS_AND_ASSUMPTIONS,
RAG_INDEX_HINTS.

Write relationships as (Entity A) -[RELATION]-> (Entity B) with a confidence level. Support
facts with short evidence snippets of at most 25 words. Mark missing information as
"unknown" and never invent systems, teams or controls. Stay under 8192 tokens.

Extracted text:
` + fence + `
{{.Content}}
` + fence + `
`

var promptTemplates = map[string]*template.Template{
	PipelineCode:     template.Must(template.New(PipelineCode).Parse(codePromptText)),
	PipelineTemplate: template.Must(template.New(PipelineTemplate).Parse(templatePromptText)),
	PipelineConfig:   template.Must(template.New(PipelineConfig).Parse(configPromptText)),
	PipelineDocument: template.Must(template.New(PipelineDocument).Parse(documentPromptText)),
}

// RenderPrompt fills the prompt template of a pipeline.
func RenderPrompt(pipeline string, data PromptData) (string, error) {
	tmpl, ok := promptTemplates[pipeline]
	if !ok {
		return "", fmt.Errorf("no prompt for pipeline %q", pipeline)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", pipeline, err)
	}
	return sb.String(), nil
}
