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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/internal/output"
	"github.com/kraklabs/enrich/internal/ui"
	"github.com/kraklabs/enrich/pkg/ingestion"
	"github.com/kraklabs/enrich/pkg/storage"
)

// StatusResult is the JSON form of 'enrich status'.
type StatusResult struct {
	Solution      string               `json:"solution"`
	Component     string               `json:"component"`
	Provider      string               `json:"provider"`
	Database      string               `json:"database"`
	HookInstalled bool                 `json:"hook_installed"`
	Running       *LockInfo            `json:"running,omitempty"`
	Ledger        *storage.Stats       `json:"ledger"`
	LastRun       *ingestion.RunResult `json:"last_run,omitempty"`
	RecentErrors  []storage.RunError   `json:"recent_errors,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// runStatus executes the 'status' command: ledger counts for the project,
// the last run report and the most recent recorded errors.
//
// Examples:
//
//	enrich status              Formatted status
//	enrich status --errors 20  Show more recorded errors
//	enrich --json status       Machine-readable output
func runStatus(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	errorLimit := fs.Int("errors", 5, "Number of recent errors to show")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: enrich status [options]

Shows the local enrichment ledger and the last run.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'enrich status --help'")
	}

	cfg, err := LoadConfig(globals.ConfigPath)
	if err != nil {
		return err
	}
	logger := newLogger(globals, false)

	store, err := storage.Open(storage.Config{DataDir: cfg.Storage.DataDir, ProjectID: cfg.Solution, Logger: logger})
	if err != nil {
		return errors.NewStorageError("Cannot open the enrichment ledger", err.Error(), "Run 'enrich reset --yes' to start over", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	result := StatusResult{
		Solution:      cfg.Solution,
		Component:     cfg.Component,
		Provider:      cfg.Provider.Type,
		Database:      store.Path(),
		HookInstalled: isHookInstalled(cfg.Root()),
		Running:       NewRunLock(cfg.Root()).Running(),
		Timestamp:     time.Now().UTC(),
	}
	if result.Ledger, err = store.Stats(ctx, cfg.Solution, cfg.Component); err != nil {
		return errors.NewStorageError("Cannot read the enrichment ledger", err.Error(), "", err)
	}
	if *errorLimit > 0 {
		if result.RecentErrors, err = store.Errors(ctx, *errorLimit); err != nil {
			return errors.NewStorageError("Cannot read recorded errors", err.Error(), "", err)
		}
	}
	if result.LastRun, err = ingestion.NewReportStore(RunsDir(cfg.Root())).Load(); err != nil {
		logger.Warn("status.report.load_error", "err", err)
	}

	if globals.JSON {
		return output.JSON(result)
	}
	printStatus(result)
	return nil
}

func printStatus(r StatusResult) {
	ui.Header("Enrichment Status")
	fmt.Printf("%s %s / %s\n", ui.Label("Project:  "), r.Solution, r.Component)
	fmt.Printf("%s %s\n", ui.Label("Provider: "), r.Provider)
	fmt.Printf("%s %s\n", ui.Label("Database: "), ui.DimText(r.Database))
	hook := "not installed"
	if r.HookInstalled {
		hook = "installed"
	}
	fmt.Printf("%s %s\n", ui.Label("Git hook: "), hook)
	if r.Running != nil {
		ui.Infof("A run is in progress (pid %d, started %s)", r.Running.PID, r.Running.StartedAt.Local().Format(time.Kitchen))
	}
	fmt.Println()

	ui.SubHeader("Ledger:")
	fmt.Printf("  Processed files: %s\n", ui.CountText(r.Ledger.ProcessedFiles))
	fmt.Printf("  Enrichments:     %s\n", ui.CountText(r.Ledger.Enrichments))
	fmt.Printf("  Errors:          %s\n", ui.CountText(r.Ledger.Errors))
	fmt.Printf("  Schema version:  %d\n", r.Ledger.SchemaVersion)

	fmt.Println()
	if r.LastRun == nil {
		ui.Info("No run recorded yet. Run 'enrich run'.")
	} else {
		run := r.LastRun
		ui.SubHeader("Last run:")
		fmt.Printf("  ID:         %s\n", ui.DimText(run.RunID))
		fmt.Printf("  Started:    %s\n", run.StartedAt.Local().Format(time.RFC1123))
		fmt.Printf("  Duration:   %s\n", run.Duration.Round(time.Millisecond))
		fmt.Printf("  State:      %s\n", run.State)
		fmt.Printf("  Summarized: %s\n", ui.Ratio(run.Summarized, run.Submitted))
		fmt.Printf("  Failed:     %s\n", ui.CountText(run.Failed))
		if run.Interrupted {
			ui.Warning("The last run was interrupted")
		}
	}

	if len(r.RecentErrors) > 0 {
		fmt.Println()
		ui.SubHeader("Recent errors:")
		for _, e := range r.RecentErrors {
			fmt.Printf("  %s %s\n", ui.DimText(e.OccurredAt), e.Message)
			if e.Cause != "" {
				fmt.Printf("    %s\n", ui.DimText(e.Cause))
			}
		}
	}
}
