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
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/internal/ui"
)

const hookMarker = "# enrich auto-run hook"

const postCommitHookContent = `#!/bin/sh
` + hookMarker + ` - enriches files changed since the last run
# Installed by: enrich install-hook
# Remove with: enrich install-hook --remove

enrich --quiet run --wait 30m >/dev/null 2>&1 &
`

// runInstallHook executes the 'install-hook' command. The post-commit hook
// starts a background 'enrich run' that queues behind a running one through
// the run lock. Unchanged files are skipped by the ledger, so each commit
// only pays for what it touched.
//
// Examples:
//
//	enrich install-hook           Install the post-commit hook
//	enrich install-hook --force   Overwrite an existing hook
//	enrich install-hook --remove  Remove the hook
func runInstallHook(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("install-hook", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite existing hook")
	remove := fs.Bool("remove", false, "Remove the hook instead of installing")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: enrich install-hook [options]

Installs a git post-commit hook that runs 'enrich run' in the background
after each commit.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'enrich install-hook --help'")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.NewInternalError("Cannot determine working directory", "", "", err)
	}
	gitDir, err := findGitDir(cwd)
	if err != nil {
		return errors.NewNotFoundError("Not a git repository", err.Error(), "Run this command inside a git checkout")
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")

	if *remove {
		if err := removeHook(hookPath); err != nil {
			return errors.NewInputError("Cannot remove hook", err.Error(), "")
		}
		if !globals.Quiet {
			ui.Success("Git hook removed")
		}
		return nil
	}

	existed, err := installHook(hookPath, *force)
	if err != nil {
		return errors.NewPermissionError("Cannot install hook", err.Error(), "Use --force to overwrite a foreign hook", err)
	}
	if globals.Quiet {
		return nil
	}
	if existed {
		ui.Info("enrich hook already installed. Use --force to reinstall.")
	} else {
		ui.Successf("Git hook installed: %s", hookPath)
	}
	return nil
}

// findGitDir walks up from dir to the nearest .git directory. A .git file
// (worktree or submodule) is followed through its "gitdir:" line.
func findGitDir(dir string) (string, error) {
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return gitPath, nil
			}
			content, err := os.ReadFile(gitPath) //nolint:gosec // G304: .git file of the current repo
			if err != nil {
				return "", fmt.Errorf("cannot read .git file: %w", err)
			}
			var gitdir string
			if _, err := fmt.Sscanf(string(content), "gitdir: %s", &gitdir); err == nil {
				if filepath.IsAbs(gitdir) {
					return gitdir, nil
				}
				return filepath.Join(dir, gitdir), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("not a git repository (or any of the parent directories)")
}

// installHook writes the post-commit hook. It reports true without writing
// when our hook is already there; a foreign hook is only replaced with force.
func installHook(hookPath string, force bool) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil { //nolint:gosec // G301: git hooks dir
		return false, fmt.Errorf("cannot create hooks directory: %w", err)
	}
	if content, err := os.ReadFile(hookPath); err == nil && !force { //nolint:gosec // G304: hook path
		if containsHookMarker(string(content)) {
			return true, nil
		}
		return false, fmt.Errorf("hook already exists at %s", hookPath)
	}
	if err := os.WriteFile(hookPath, []byte(postCommitHookContent), 0o755); err != nil { //nolint:gosec // G306: hooks must be executable
		return false, fmt.Errorf("cannot write hook: %w", err)
	}
	return false, nil
}

// removeHook deletes the post-commit hook if enrich installed it.
func removeHook(hookPath string) error {
	content, err := os.ReadFile(hookPath) //nolint:gosec // G304: hook path
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no hook found at %s", hookPath)
		}
		return fmt.Errorf("cannot read hook: %w", err)
	}
	if !containsHookMarker(string(content)) {
		return fmt.Errorf("hook at %s was not installed by enrich; remove it manually if needed", hookPath)
	}
	if err := os.Remove(hookPath); err != nil {
		return fmt.Errorf("cannot remove hook: %w", err)
	}
	return nil
}

func containsHookMarker(content string) bool {
	return strings.Contains(content, hookMarker)
}

// isHookInstalled reports whether the repository containing dir has our
// post-commit hook.
func isHookInstalled(dir string) bool {
	gitDir, err := findGitDir(dir)
	if err != nil {
		return false
	}
	content, err := os.ReadFile(filepath.Join(gitDir, "hooks", "post-commit")) //nolint:gosec // G304: hook path
	if err != nil {
		return false
	}
	return containsHookMarker(string(content))
}
