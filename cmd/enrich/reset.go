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

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/internal/ui"
	"github.com/kraklabs/enrich/pkg/ingestion"
	"github.com/kraklabs/enrich/pkg/storage"
)

// runReset executes the 'reset' command. It clears the ledger so the next
// run enriches every file again, and removes the last run report.
func runReset(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: enrich reset --yes

Deletes every processed-file record, stored enrichment and recorded error
of the project. The next 'enrich run' sends every file again.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'enrich reset --help'")
	}
	if !*confirm {
		return errors.NewInputError(
			"Reset not confirmed",
			"this deletes all enrichment data for the project",
			"Pass --yes to confirm",
		)
	}

	cfg, err := LoadConfig(globals.ConfigPath)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{
		DataDir:   cfg.Storage.DataDir,
		ProjectID: cfg.Solution,
		Logger:    newLogger(globals, false),
	})
	if err != nil {
		return errors.NewStorageError("Cannot open the enrichment ledger", err.Error(), "Close other enrich processes and retry", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Reset(context.Background()); err != nil {
		return errors.NewStorageError("Reset failed", err.Error(), "", err)
	}
	if err := ingestion.NewReportStore(RunsDir(cfg.Root())).Clear(); err != nil {
		return errors.NewPermissionError("Cannot remove the last run report", err.Error(), "", err)
	}

	if !globals.Quiet {
		ui.Successf("Reset complete (%s)", store.Path())
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  enrich run    Enrich every file again")
	}
	return nil
}
