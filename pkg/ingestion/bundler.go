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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kraklabs/enrich/pkg/enrichment"
)

// DefaultAssetCacheSize is the number of asset bodies kept in memory.
const DefaultAssetCacheSize = 512

var (
	scriptSrcPattern = regexp.MustCompile(`(?i)<script[^>]*\ssrc\s*=\s*["']([^"']+)["']`)
	linkTagPattern   = regexp.MustCompile(`(?i)<link[^>]*>`)
	stylesheetRel    = regexp.MustCompile(`(?i)\srel\s*=\s*["']stylesheet["']`)
	hrefPattern      = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
)

var dynamicMarkers = []string{"{{", "}}", "${", "<%", "%>"}

// TemplateBundle is a template plus the static assets it references. It is
// created per template task and never shared.
type TemplateBundle struct {
	Content string
	Edges   []enrichment.Edge
	Assets  []string // repo-relative paths of bundled assets
}

// Bundler concatenates templates with their local scripts and stylesheets.
// The asset cache is shared by all template tasks of a run.
type Bundler struct {
	root  string
	rules *Rules
	cache *lru.Cache[string, string]
}

// NewBundler creates a bundler rooted at the repository root.
func NewBundler(root string, rules *Rules, cacheSize int) (*Bundler, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultAssetCacheSize
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve bundle root: %w", err)
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}
	return &Bundler{root: filepath.Clean(abs), rules: rules, cache: cache}, nil
}

// Bundle builds the LLM input for a template. templateRel is the
// repo-relative, slash-separated path of the template.
func (b *Bundler) Bundle(component, templateRel, content string) *TemplateBundle {
	var sb strings.Builder
	sb.WriteString("=== TEMPLATE: " + templateRel + " ===\n")
	sb.WriteString(content)
	sb.WriteString("\n")

	bundle := &TemplateBundle{}
	source := component + "@template:" + templateRel

	for _, raw := range assetReferences(content) {
		ref, ok := sanitizeReference(raw)
		if !ok {
			continue
		}
		absPath, rel, ok := b.resolve(templateRel, ref)
		if !ok {
			continue
		}
		if b.rules.ShouldSkip(rel, false) {
			continue
		}

		edge := enrichment.Edge{Source: source, Target: "asset:" + rel}
		info, err := os.Stat(absPath)
		switch {
		case err == nil && b.rules.MaxFileSize() > 0 && info.Size() > b.rules.MaxFileSize():
			edge.Type = enrichment.EdgeTemplateAssetSkipped
			edge.Description = "Referenced asset skipped due to size limit"
			bundle.Edges = append(bundle.Edges, edge)
			continue
		case errors.Is(err, fs.ErrNotExist):
			edge.Type = enrichment.EdgeTemplateMissingAsset
			edge.Description = "Referenced asset not found: " + raw
			bundle.Edges = append(bundle.Edges, edge)
			continue
		case err == nil && info.IsDir():
			edge.Type = enrichment.EdgeTemplateMissingAsset
			edge.Description = "Referenced asset not found: " + raw
			bundle.Edges = append(bundle.Edges, edge)
			continue
		}

		if !b.rules.IsStaticAsset(rel) {
			edge.Type = enrichment.EdgeTemplateReferencesAsset
			edge.Description = "Referenced asset: " + raw
			bundle.Edges = append(bundle.Edges, edge)
			continue
		}

		body, err := b.readAsset(absPath)
		if err != nil {
			edge.Type = enrichment.EdgeTemplateAssetReadError
			edge.Description = "Referenced asset could not be read: " + raw
			bundle.Edges = append(bundle.Edges, edge)
			continue
		}

		sb.WriteString("\n=== ASSET: " + rel + " ===\n")
		sb.WriteString(body)
		sb.WriteString("\n")
		bundle.Assets = append(bundle.Assets, rel)

		edge.Type = enrichment.EdgeTemplateReferencesAsset
		edge.Description = "Referenced asset: " + raw
		bundle.Edges = append(bundle.Edges, edge)
	}

	bundle.Content = sb.String()
	return bundle
}

// readAsset returns the asset body, filling the cache on a miss. Two tasks
// racing on the same key read the same file and store the same value.
func (b *Bundler) readAsset(absPath string) (string, error) {
	if body, ok := b.cache.Get(absPath); ok {
		return body, nil
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	body := string(data)
	b.cache.Add(absPath, body)
	return body, nil
}

// resolve maps a sanitized reference to an absolute path and its
// repo-relative form. References escaping the root are rejected.
func (b *Bundler) resolve(templateRel, ref string) (string, string, bool) {
	var joined string
	if strings.HasPrefix(ref, "/") {
		joined = path.Clean(strings.TrimLeft(ref, "/"))
	} else {
		joined = path.Clean(path.Join(path.Dir(templateRel), ref))
	}
	if joined == "." || joined == ".." || strings.HasPrefix(joined, "../") || path.IsAbs(joined) {
		return "", "", false
	}

	absPath := filepath.Join(b.root, filepath.FromSlash(joined))
	relCheck, err := filepath.Rel(b.root, absPath)
	if err != nil || relCheck == ".." || strings.HasPrefix(relCheck, ".."+string(filepath.Separator)) {
		return "", "", false
	}
	return absPath, joined, true
}

// assetReferences returns script src and stylesheet href values in
// document order: scripts first, then stylesheets.
func assetReferences(content string) []string {
	var refs []string
	for _, m := range scriptSrcPattern.FindAllStringSubmatch(content, -1) {
		refs = append(refs, m[1])
	}
	for _, tag := range linkTagPattern.FindAllString(content, -1) {
		if !stylesheetRel.MatchString(tag) {
			continue
		}
		if m := hrefPattern.FindStringSubmatch(tag); m != nil {
			refs = append(refs, m[1])
		}
	}
	return refs
}

// sanitizeReference strips query and fragment suffixes and drops remote or
// templated references.
func sanitizeReference(raw string) (string, bool) {
	ref := strings.TrimSpace(raw)
	if ref == "" {
		return "", false
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(ref, "//") {
		return "", false
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return "", false
	}
	for _, marker := range dynamicMarkers {
		if strings.Contains(ref, marker) {
			return "", false
		}
	}
	return ref, true
}
