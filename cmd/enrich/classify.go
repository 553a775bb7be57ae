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

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/internal/output"
	"github.com/kraklabs/enrich/internal/ui"
	"github.com/kraklabs/enrich/pkg/ingestion"
)

// classifiedEntry is one line of 'enrich classify --json'.
type classifiedEntry struct {
	ingestion.Entry
	Detail string `json:"detail,omitempty"`
}

// classifySummary tallies a classification pass.
type classifySummary struct {
	Total      int
	ByCategory map[ingestion.Category]int
	ByStatus   map[ingestion.EntryStatus]int
}

// runClassify executes the 'classify' command. It walks the repository
// with the configured rules and prints the pipeline each file would take,
// without calling any provider.
func runClassify(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	all := fs.Bool("all", false, "Also list skipped and unclassified paths")
	rulesPath := fs.String("rules", "", "Extra ingestion rules file (.yaml or .toml)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: enrich classify [options] [path]

Shows how every file under the repository would be routed: code, template,
config or document. Files over the size limit are reported as too_large.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'enrich classify --help'")
	}

	var (
		root     string
		rulesCfg *ingestion.RulesConfig
	)
	if fs.NArg() > 0 {
		// An explicit path works without a project config.
		root = fs.Arg(0)
		rulesCfg = &ingestion.RulesConfig{}
		if *rulesPath != "" {
			extra, err := ingestion.LoadRulesConfig(*rulesPath)
			if err != nil {
				return errors.NewConfigError("Cannot load rules file", err.Error(), "Use a .yaml, .yml or .toml rules file", err)
			}
			rulesCfg = extra
		}
	} else {
		cfg, err := LoadConfig(globals.ConfigPath)
		if err != nil {
			return err
		}
		root = cfg.Root()
		if rulesCfg, err = cfg.RulesConfig(*rulesPath); err != nil {
			return err
		}
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return errors.NewNotFoundError("Repository not found", fmt.Sprintf("%s is not a directory", root), "Pass an existing directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return classifyAndPrint(ctx, root, ingestion.NewRules(rulesCfg), *all, globals)
}

// classifyAndPrint scans root and writes one line per entry, as text or as
// NDJSON, followed by a summary in text mode.
func classifyAndPrint(ctx context.Context, root string, rules *ingestion.Rules, all bool, globals GlobalFlags) error {
	logger := newLogger(globals, false)
	summary := classifySummary{
		ByCategory: map[ingestion.Category]int{},
		ByStatus:   map[ingestion.EntryStatus]int{},
	}
	lines := output.NewLineWriter(os.Stdout)

	err := ingestion.Scan(ctx, root, rules, logger, func(e ingestion.Entry) error {
		if !all && (e.Status == ingestion.EntrySkipped || e.Status == ingestion.EntryUnclassified) {
			return nil
		}
		summary.Total++
		summary.ByStatus[e.Status]++
		if e.Category != ingestion.CategoryNone {
			summary.ByCategory[e.Category]++
		}

		entry := classifiedEntry{Entry: e, Detail: entryDetail(e)}
		if globals.JSON {
			return lines.Write(entry)
		}
		printEntry(entry)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return errors.NewPartialError("Classification interrupted", "", "Run the command again")
		}
		return errors.NewInternalError("Cannot scan repository", err.Error(), "Check read permissions under "+root, err)
	}

	if !globals.JSON {
		printClassifySummary(summary)
	}
	return nil
}

// entryDetail names the language or config type of a routed file.
func entryDetail(e ingestion.Entry) string {
	switch e.Category {
	case ingestion.CategoryCode:
		return ingestion.CodeLanguage(e.RelPath)
	case ingestion.CategoryTemplate:
		return ingestion.TemplateLanguage(e.RelPath)
	case ingestion.CategoryConfig:
		return ingestion.DetectConfigType(e.RelPath)
	}
	return ""
}

func printEntry(e classifiedEntry) {
	path := e.RelPath
	if e.IsDir {
		path += "/"
	}
	status := ""
	if e.Status != ingestion.EntryEligible {
		status = ui.DimText(string(e.Status))
	}
	fmt.Printf("%-10s %-12s %s %s\n", ui.CategoryText(string(e.Category)), e.Detail, path, status)
}

func printClassifySummary(s classifySummary) {
	fmt.Println()
	ui.SubHeader("Summary:")
	for _, c := range []ingestion.Category{
		ingestion.CategoryCode,
		ingestion.CategoryTemplate,
		ingestion.CategoryConfig,
		ingestion.CategoryDocument,
	} {
		fmt.Printf("  %-10s %s\n", string(c)+":", ui.CountText(s.ByCategory[c]))
	}
	fmt.Printf("  %-10s %s\n", "too large:", ui.CountText(s.ByStatus[ingestion.EntryTooLarge]))
	if n := s.ByStatus[ingestion.EntrySkipped] + s.ByStatus[ingestion.EntryUnclassified]; n > 0 {
		fmt.Printf("  %-10s %s\n", "ignored:", ui.CountText(n))
	}
	fmt.Printf("  %-10s %s\n", "total:", ui.CountText(s.Total))
}
