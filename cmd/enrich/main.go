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

// Package main implements the enrich CLI, which walks a repository and
// enriches its source, template, config and document files with LLM
// summaries.
//
// Usage:
//
//	enrich init                   Create .enrich/project.yaml
//	enrich run                    Enrich the current repository
//	enrich classify               Show how every file would be routed
//	enrich status [--json]        Show ledger statistics and the last run
//	enrich reset --yes            Forget processed files and payloads
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags accepted before the command name.
type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Quiet      bool
	NoColor    bool
	Verbose    int
}

func main() {
	var (
		globals     GlobalFlags
		showVersion bool
	)
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	fs.SetInterspersed(false)
	fs.StringVarP(&globals.ConfigPath, "config", "c", "", "Path to .enrich/project.yaml (default: ./.enrich/project.yaml)")
	fs.BoolVar(&globals.JSON, "json", false, "Machine-readable output (implies --quiet)")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	fs.BoolVar(&showVersion, "version", false, "Show version and exit")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `enrich - LLM repository enrichment

enrich walks a repository, classifies every file as code, GUI template,
configuration or document, and asks an LLM provider (DeepSeek, Gemini or
Claude) for a structured summary of each one. Results and a processed-file
ledger are stored locally so unchanged files are skipped on the next run.

Usage:
  enrich [global options] <command> [options]

Commands:
  init          Create .enrich/project.yaml configuration
  run           Enrich the current repository
  classify      Show how every file would be routed (no LLM calls)
  status        Show ledger statistics and the last run report
  reset         Forget processed files and stored payloads (destructive!)
  install-hook  Install git post-commit hook that runs 'enrich run'
  completion    Generate shell completion script (bash|zsh|fish)

Global Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment Variables:
  DEEPSEEK_API_KEY    API key for --provider deepseek
  GEMINI_API_KEY      API key for --provider gemini
  ANTHROPIC_API_KEY   API key for --provider anthropic
  ENRICH_PROVIDER     Overrides provider.type from the config

Variables are also read from a .env file in the working directory.

For detailed command help: enrich <command> --help
`)
	}
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Printf("enrich version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}
	if globals.JSON {
		globals.Quiet = true
	}
	ui.InitColors(globals.NoColor)

	// Missing .env is fine; keys may come from the real environment.
	_ = godotenv.Load()

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(errors.ExitInput)
	}
	command, cmdArgs := args[0], args[1:]

	var err error
	switch command {
	case "init":
		err = runInit(cmdArgs, globals)
	case "run":
		err = runEnrich(cmdArgs, globals)
	case "classify":
		err = runClassify(cmdArgs, globals)
	case "status":
		err = runStatus(cmdArgs, globals)
	case "reset":
		err = runReset(cmdArgs, globals)
	case "install-hook":
		err = runInstallHook(cmdArgs, globals)
	case "completion":
		err = runCompletion(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fs.Usage()
		os.Exit(errors.ExitInput)
	}
	if err != nil {
		os.Exit(errors.Write(os.Stderr, err, globals.JSON, globals.NoColor))
	}
}

// newLogger builds the CLI logger. Logs go to stderr so --json output on
// stdout stays parseable.
func newLogger(globals GlobalFlags, debug bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case debug || globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose == 1:
		level = slog.LevelInfo
	}
	if globals.Quiet && !debug && globals.Verbose == 0 {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
