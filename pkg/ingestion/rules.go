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
	"os"
	"path/filepath"
	"strings"
)

// Category is the pipeline a file is routed to.
type Category string

const (
	CategoryNone     Category = ""
	CategoryCode     Category = "code"
	CategoryTemplate Category = "template"
	CategoryConfig   Category = "config"
	CategoryDocument Category = "document"
)

// DefaultMaxFileSize is the size limit applied when none is configured.
const DefaultMaxFileSize int64 = 1_000_000

// RulesConfig is the optional classification configuration. Every field
// falls back to its default independently when absent.
type RulesConfig struct {
	CodeExtensions     []string `yaml:"code_extensions,omitempty" toml:"code_extensions,omitempty"`
	TemplateExtensions []string `yaml:"template_extensions,omitempty" toml:"template_extensions,omitempty"`
	StaticAssetExts    []string `yaml:"static_asset_extensions,omitempty" toml:"static_asset_extensions,omitempty"`
	ConfigExtensions   []string `yaml:"config_extensions,omitempty" toml:"config_extensions,omitempty"`
	DocumentExtensions []string `yaml:"document_extensions,omitempty" toml:"document_extensions,omitempty"`
	ConfigFileNames    []string `yaml:"config_file_names,omitempty" toml:"config_file_names,omitempty"`

	SkipDirs        []string `yaml:"skip_dirs,omitempty" toml:"skip_dirs,omitempty"`
	SkipFileNames   []string `yaml:"skip_file_names,omitempty" toml:"skip_file_names,omitempty"`
	SkipExtensions  []string `yaml:"skip_extensions,omitempty" toml:"skip_extensions,omitempty"`
	AllowHiddenDirs []string `yaml:"allow_hidden_dirs,omitempty" toml:"allow_hidden_dirs,omitempty"`
	ExcludeGlobs    []string `yaml:"exclude_globs,omitempty" toml:"exclude_globs,omitempty"`

	SkipHidden   *bool  `yaml:"skip_hidden,omitempty" toml:"skip_hidden,omitempty"`
	SkipMinified *bool  `yaml:"skip_minified,omitempty" toml:"skip_minified,omitempty"`
	MaxFileSize  *int64 `yaml:"max_file_size,omitempty" toml:"max_file_size,omitempty"`
}

// Rules is an immutable snapshot of the classification configuration.
// It is shared read-only by the walker and every task of a run.
type Rules struct {
	codeExts     map[string]struct{}
	templateExts map[string]struct{}
	staticExts   map[string]struct{}
	configExts   map[string]struct{}
	documentExts map[string]struct{}
	configNames  map[string]struct{}

	skipDirs      map[string]struct{}
	skipFileNames map[string]struct{}
	skipExts      map[string]struct{}
	allowHidden   map[string]struct{}
	excludeGlobs  []string

	skipHidden   bool
	skipMinified bool
	maxFileSize  int64
}

var (
	defaultCodeExtensions = []string{".java", ".py", ".clj"}

	defaultTemplateExtensions = []string{
		".html", ".htm", ".jinja", ".j2", ".jinja2", ".twig", ".hbs", ".handlebars",
		".mustache", ".ejs", ".erb", ".jsp", ".jspx", ".ftl", ".vm", ".thymeleaf",
		".liquid", ".jrxml", ".rdl", ".rpt",
	}

	defaultStaticAssetExtensions = []string{".js", ".mjs", ".cjs", ".ts", ".tsx", ".css"}

	defaultConfigExtensions = []string{
		".env", ".properties", ".conf", ".cfg", ".ini", ".toml", ".yaml", ".yml", ".json", ".xml",
	}

	defaultDocumentExtensions = []string{
		".doc", ".docx", ".rtf", ".rtx", ".txt", ".md", ".pdf", ".ppt", ".pptx", ".xls", ".xlsx",
	}

	defaultConfigFileNames = []string{
		"application.properties", "application.yml", "application.yaml",
		"bootstrap.yml", "bootstrap.yaml",
		"log4j.properties", "log4j2.xml", "logback.xml",
		"pom.xml", "settings.xml", "gradle.properties",
		"build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts",
		"hibernate.cfg.xml", "persistence.xml",
		"liquibase.properties", "liquibase.yaml", "flyway.conf",
		"package.json", "package-lock.json", "pnpm-lock.yaml", "yarn.lock",
		".npmrc", ".yarnrc", ".yarnrc.yml",
		"tsconfig.json", "jsconfig.json", "babel.config.json", ".babelrc",
		"webpack.config.js", "vite.config.js", "eslint.config.js", ".eslintrc",
		".prettierrc", ".prettierrc.json",
		"requirements.txt", "requirements-dev.txt", "constraints.txt",
		"pyproject.toml", "setup.cfg", "setup.py", "pip.conf", "tox.ini", "pytest.ini",
		".flake8", "poetry.lock",
		"go.mod", "go.sum", ".golangci.yml", "Cargo.toml",
	}

	defaultSkipDirs = []string{
		"node_modules", "bower_components", "vendor", "dist", "build", "out", "target",
		"bin", "obj", ".gradle", ".idea", ".vscode", ".settings", ".metadata",
		".terraform", ".serverless", ".next", ".nuxt", "coverage", ".cache",
		".parcel-cache", ".pytest_cache", "__pycache__", ".mypy_cache", ".ruff_cache",
		".tox", ".venv", "venv", "env", "CMakeFiles", "cmake-build-debug",
		"cmake-build-release", ".vs", ".svn",
	}

	defaultSkipFileNames = []string{".classpath", ".project", ".env", ".DS_Store"}

	defaultSkipExtensions = []string{
		".class", ".jar", ".war", ".ear", ".kotlin_module", ".map", ".pyc", ".pyo",
		".o", ".obj", ".a", ".so", ".dll", ".dylib", ".exe",
	}

	defaultAllowHiddenDirs = []string{".github"}
)

// DefaultRules returns the built-in classification rules.
func DefaultRules() *Rules {
	return NewRules(nil)
}

// NewRules builds a Rules snapshot from cfg. A nil cfg, or any empty field,
// selects the corresponding default.
func NewRules(cfg *RulesConfig) *Rules {
	if cfg == nil {
		cfg = &RulesConfig{}
	}
	r := &Rules{
		codeExts:      extensionSet(cfg.CodeExtensions, defaultCodeExtensions),
		templateExts:  extensionSet(cfg.TemplateExtensions, defaultTemplateExtensions),
		staticExts:    extensionSet(cfg.StaticAssetExts, defaultStaticAssetExtensions),
		configExts:    extensionSet(cfg.ConfigExtensions, defaultConfigExtensions),
		documentExts:  extensionSet(cfg.DocumentExtensions, defaultDocumentExtensions),
		configNames:   nameSet(cfg.ConfigFileNames, defaultConfigFileNames),
		skipDirs:      nameSet(cfg.SkipDirs, defaultSkipDirs),
		skipFileNames: nameSet(cfg.SkipFileNames, defaultSkipFileNames),
		skipExts:      extensionSet(cfg.SkipExtensions, defaultSkipExtensions),
		allowHidden:   nameSet(cfg.AllowHiddenDirs, defaultAllowHiddenDirs),
		excludeGlobs:  append([]string(nil), cfg.ExcludeGlobs...),
		skipHidden:    true,
		skipMinified:  true,
		maxFileSize:   DefaultMaxFileSize,
	}
	if cfg.SkipHidden != nil {
		r.skipHidden = *cfg.SkipHidden
	}
	if cfg.SkipMinified != nil {
		r.skipMinified = *cfg.SkipMinified
	}
	if cfg.MaxFileSize != nil {
		r.maxFileSize = *cfg.MaxFileSize
	}
	return r
}

func extensionSet(values, defaults []string) map[string]struct{} {
	if len(values) == 0 {
		values = defaults
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, ".") {
			v = "." + v
		}
		set[v] = struct{}{}
	}
	return set
}

func nameSet(values, defaults []string) map[string]struct{} {
	if len(values) == 0 {
		values = defaults
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// MaxFileSize returns the configured byte threshold (0 or less disables it).
func (r *Rules) MaxFileSize() int64 { return r.maxFileSize }

// Classification holds the independent category predicates for a file.
type Classification struct {
	IsCode     bool
	IsTemplate bool
	IsConfig   bool
	IsDocument bool
}

// Category resolves the predicates into a single dispatch target. Priority
// is fixed: code, then template, then config, then document.
func (c Classification) Category() Category {
	switch {
	case c.IsCode:
		return CategoryCode
	case c.IsTemplate:
		return CategoryTemplate
	case c.IsConfig:
		return CategoryConfig
	case c.IsDocument:
		return CategoryDocument
	default:
		return CategoryNone
	}
}

// Classify evaluates every category predicate for path.
func (r *Rules) Classify(path string) Classification {
	return Classification{
		IsCode:     r.IsCodeFile(path),
		IsTemplate: r.IsTemplateFile(path),
		IsConfig:   r.IsConfigFile(path),
		IsDocument: r.IsDocumentFile(path),
	}
}

// IsCodeFile reports whether path has a recognised source-code extension.
func (r *Rules) IsCodeFile(path string) bool {
	return hasExt(r.codeExts, path)
}

// IsTemplateFile reports whether path is a GUI template.
func (r *Rules) IsTemplateFile(path string) bool {
	return hasExt(r.templateExts, path)
}

// IsStaticAsset reports whether path is a script or stylesheet that may be
// bundled with a template.
func (r *Rules) IsStaticAsset(path string) bool {
	return hasExt(r.staticExts, path)
}

// IsConfigFile reports whether path is a configuration file of interest:
// a well-known file name, a .env.* variant or a config extension.
func (r *Rules) IsConfigFile(path string) bool {
	name := filepath.Base(path)
	if _, ok := r.configNames[name]; ok {
		return true
	}
	if strings.HasPrefix(name, ".env.") {
		return true
	}
	return hasExt(r.configExts, path)
}

// IsDocumentFile reports whether path is a long-form document.
func (r *Rules) IsDocumentFile(path string) bool {
	return hasExt(r.documentExts, path)
}

// ShouldSkip reports whether a file or directory must be ignored.
//
// Hidden entries are skipped when hidden skipping is enabled, except
// directories on the allow-list. Directories are otherwise skipped only by
// name. Files are skipped by name, by minified suffix or by extension.
// Exclude globs apply to both.
func (r *Rules) ShouldSkip(path string, isDir bool) bool {
	name := filepath.Base(path)

	if r.skipHidden && strings.HasPrefix(name, ".") && name != "." && name != ".." {
		if !isDir {
			return true
		}
		if _, ok := r.allowHidden[name]; !ok {
			return true
		}
	}

	if len(r.excludeGlobs) > 0 && r.shouldExclude(path) {
		return true
	}

	if isDir {
		_, ok := r.skipDirs[name]
		return ok
	}

	if _, ok := r.skipFileNames[name]; ok {
		return true
	}
	if r.skipMinified {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".min.js") || strings.HasSuffix(lower, ".min.css") {
			return true
		}
	}
	return hasExt(r.skipExts, path)
}

// IsTooLarge reports whether the file at path exceeds the size limit.
// A stat failure is treated as "not too large".
func (r *Rules) IsTooLarge(path string) bool {
	if r.maxFileSize <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > r.maxFileSize
}

// shouldExclude checks path against the user exclude globs.
func (r *Rules) shouldExclude(path string) bool {
	normalized := filepath.ToSlash(path)
	for _, pattern := range r.excludeGlobs {
		if matchesGlob(normalized, pattern) {
			return true
		}
	}
	return false
}

func hasExt(set map[string]struct{}, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := set[ext]
	return ok
}

// DetectConfigType infers the config dialect of path. File-name heuristics
// take precedence over the extension.
func DetectConfigType(path string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	if lower == "requirements.txt" || strings.HasSuffix(lower, "-requirements.txt") {
		return "requirements"
	}
	if strings.HasSuffix(lower, ".env") || strings.HasPrefix(lower, ".env.") {
		return "env"
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".env":
		return "env"
	case ".properties":
		return "properties"
	case ".conf", ".cfg", ".ini":
		return "conf"
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".xml":
		return "xml"
	case ".txt":
		return "requirements"
	default:
		return "unknown"
	}
}

// CodeLanguage maps a source file to the language named in prompts.
func CodeLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".java":
		return "java"
	case ".py":
		return "python"
	case ".clj":
		return "clojure"
	default:
		return "unknown"
	}
}

var templateLanguages = map[string]string{
	".html":       "html",
	".htm":        "html",
	".jinja":      "jinja",
	".j2":         "jinja",
	".jinja2":     "jinja",
	".twig":       "twig",
	".hbs":        "handlebars",
	".handlebars": "handlebars",
	".mustache":   "mustache",
	".ejs":        "ejs",
	".erb":        "erb",
	".jsp":        "jsp",
	".jspx":       "jsp",
	".ftl":        "freemarker",
	".vm":         "velocity",
	".thymeleaf":  "thymeleaf",
	".liquid":     "liquid",
	".jrxml":      "jrxml",
	".rdl":        "rdl",
	".rpt":        "rpt",
}

// TemplateLanguage maps a template file to its engine name.
func TemplateLanguage(path string) string {
	if lang, ok := templateLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "unknown"
}
