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
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/internal/ui"
	"github.com/kraklabs/enrich/pkg/llm"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive, noHook, withHook bool
	solution, component, provider, model    string
}

// runInit executes the 'init' command, creating .enrich/project.yaml in the
// current directory.
//
// Examples:
//
//	enrich init                          Interactive setup
//	enrich init -y                       Use all defaults
//	enrich init -y --provider gemini     Pick the provider up front
//	enrich init --hook                   Also install the git hook
func runInit(args []string, globals GlobalFlags) error {
	var f initFlags
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.solution, "solution", "", "Solution name (default: directory name)")
	fs.StringVar(&f.component, "component", "", "Component name (default: directory name)")
	fs.StringVar(&f.provider, "provider", "", "LLM provider: deepseek, gemini, anthropic, mock (default: detected from env)")
	fs.StringVar(&f.model, "model", "", "Model name (default: provider default)")
	fs.BoolVar(&f.noHook, "no-hook", false, "Skip git hook installation")
	fs.BoolVar(&f.withHook, "hook", false, "Install git hook without prompting")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: enrich init [options]

Creates .enrich/project.yaml in the current directory.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'enrich init --help'")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.NewInternalError("Cannot determine working directory", "", "", err)
	}
	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !f.force {
		return errors.NewConfigError(
			"Project already initialized",
			fmt.Sprintf("%s already exists", configPath),
			"Use --force to overwrite it",
			nil,
		)
	}

	cfg := newInitConfig(cwd, f)
	reader := bufio.NewReader(os.Stdin)
	if !f.nonInteractive && !globals.JSON {
		promptConfig(reader, os.Stdout, cfg)
	}

	if err := SaveConfig(cfg, configPath); err != nil {
		return errors.NewPermissionError("Cannot save configuration", err.Error(), "Check write permissions on "+cwd, err)
	}
	if !globals.Quiet {
		ui.Successf("Created %s", configPath)
	}
	if addToGitignore(cwd) && !globals.Quiet {
		ui.Info("Added .enrich/ to .gitignore")
	}

	handleHookInstallation(reader, f, globals)
	if !globals.Quiet {
		printNextSteps(f.noHook)
	}
	return nil
}

func newInitConfig(cwd string, f initFlags) *Config {
	cfg := DefaultConfig(cwd)
	if f.solution != "" {
		cfg.Solution = f.solution
	}
	if f.component != "" {
		cfg.Component = f.component
	}
	if f.provider != "" {
		cfg.Provider.Type = f.provider
	}
	if f.model != "" {
		cfg.Provider.DefaultModel = f.model
	}
	return cfg
}

func promptConfig(reader *bufio.Reader, w io.Writer, cfg *Config) {
	fmt.Fprintln(w, "enrich project configuration")
	fmt.Fprintln(w, "============================")
	fmt.Fprintln(w)

	cfg.Solution = prompt(reader, w, "Solution", cfg.Solution)
	cfg.Component = prompt(reader, w, "Component", cfg.Component)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Providers: deepseek, gemini, anthropic, mock")
	cfg.Provider.Type = prompt(reader, w, "Provider", cfg.Provider.Type)
	if env := llm.DefaultAPIKeyEnv(cfg.Provider.Type); env != "" && os.Getenv(env) == "" {
		fmt.Fprintf(w, "Note: export %s before running 'enrich run'\n", env)
	}
	cfg.Provider.DefaultModel = prompt(reader, w, "Model (empty for provider default)", cfg.Provider.DefaultModel)

	if n, err := strconv.Atoi(prompt(reader, w, "Concurrency", strconv.Itoa(cfg.Concurrency))); err == nil && n > 0 {
		cfg.Concurrency = n
	}
	fmt.Fprintln(w)
}

func handleHookInstallation(reader *bufio.Reader, f initFlags, globals GlobalFlags) {
	if f.noHook {
		return
	}
	shouldInstall := f.withHook
	if !f.withHook && !f.nonInteractive && !globals.JSON {
		answer := strings.ToLower(prompt(reader, os.Stdout, "Install git hook to enrich on each commit? (y/N)", "n"))
		shouldInstall = answer == "y" || answer == "yes"
	}
	if !shouldInstall {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		ui.Warningf("cannot install git hook: %v", err)
		return
	}
	gitDir, err := findGitDir(cwd)
	if err != nil {
		ui.Warningf("cannot find .git directory: %v", err)
		return
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")
	if _, err := installHook(hookPath, false); err != nil {
		ui.Warningf("cannot install git hook: %v", err)
		return
	}
	if !globals.Quiet {
		ui.Successf("Git hook installed: %s", hookPath)
	}
}

func printNextSteps(noHook bool) {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .enrich/project.yaml if needed")
	fmt.Println("  2. Run 'enrich classify' to preview which files will be sent")
	fmt.Println("  3. Run 'enrich run' to enrich the repository")
	if noHook {
		fmt.Println()
		fmt.Println("Tip: Run 'enrich install-hook' to enrich changed files on each commit")
	}
}

// prompt writes label to w and reads one line. An empty answer returns
// defaultValue.
func prompt(reader *bufio.Reader, w io.Writer, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, defaultValue)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore appends .enrich/ to dir/.gitignore when the file exists
// and does not list it yet. It reports whether the file was changed.
func addToGitignore(dir string) bool {
	gitignorePath := filepath.Join(dir, ".gitignore")
	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(content), "\n") {
		switch strings.TrimSpace(line) {
		case ".enrich/", ".enrich", "/.enrich/", "/.enrich":
			return false
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, err = f.WriteString("\n# enrich configuration and run reports\n.enrich/\n")
	return err == nil
}
