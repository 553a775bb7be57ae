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

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/enrich/internal/errors"
)

const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for enrich
# Installation:
#   source <(enrich completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(enrich completion bash)' >> ~/.bashrc

_enrich_completion() {
    local cur prev commands
    commands="init run classify status reset install-hook completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [ $COMP_CWORD -eq 1 ] || [[ ${COMP_WORDS[1]} == -* ]]; then
        if [[ ${cur} == -* ]] ; then
            COMPREPLY=( $(compgen -W "--config --json --quiet --no-color --verbose --version" -- ${cur}) )
        else
            COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        fi
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        init)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force --yes --solution --component --provider --model --hook --no-hook" -- ${cur}) )
            fi
            ;;
        run)
            if [[ ${prev} == "--provider" ]] ; then
                COMPREPLY=( $(compgen -W "deepseek gemini anthropic mock" -- ${cur}) )
            elif [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--provider --model --concurrency --debug --metrics-addr --rules --audit-dir --dry-run --shutdown-grace --wait" -- ${cur}) )
            fi
            ;;
        classify)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--all --rules" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -d -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--errors" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--yes" -- ${cur}) )
            fi
            ;;
        install-hook)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force --remove" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _enrich_completion enrich
`

const zshCompletionTemplate = `#compdef enrich

# Zsh completion script for enrich
# Installation:
#   enrich completion zsh > "${fpath[1]}/_enrich"
#   rm -f ~/.zcompdump; compinit

_enrich() {
    local -a commands providers
    commands=(
        'init:Create .enrich/project.yaml configuration'
        'run:Enrich the current repository'
        'classify:Show how every file would be routed'
        'status:Show ledger statistics and the last run'
        'reset:Forget processed files and stored payloads'
        'install-hook:Install git post-commit hook'
        'completion:Generate shell completion script'
    )
    providers=(deepseek gemini anthropic mock)

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '(-c --config)'{-c,--config}'[Path to .enrich/project.yaml]:config file:_files -g "*.yaml"' \
        '--json[Machine-readable output]' \
        '(-q --quiet)'{-q,--quiet}'[Suppress progress output]' \
        '--no-color[Disable colored output]' \
        '*'{-v,--verbose}'[Increase log verbosity]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                init)
                    _arguments \
                        '--force[Overwrite existing configuration]' \
                        '(-y --yes)'{-y,--yes}'[Use defaults]' \
                        '--solution[Solution name]:solution:' \
                        '--component[Component name]:component:' \
                        "--provider[LLM provider]:provider:($providers)" \
                        '--model[Model name]:model:' \
                        '--hook[Install git hook]' \
                        '--no-hook[Skip git hook]'
                    ;;
                run)
                    _arguments \
                        "--provider[LLM provider]:provider:($providers)" \
                        '--model[Model name]:model:' \
                        '(-n --concurrency)'{-n,--concurrency}'[Files enriched in parallel]:count:' \
                        '--debug[Enable debug logging]' \
                        '--metrics-addr[Prometheus metrics address]:address:' \
                        '--rules[Extra ingestion rules file]:rules file:_files' \
                        '--audit-dir[Dump LLM requests here]:directory:_files -/' \
                        '--dry-run[Classify only]' \
                        '--shutdown-grace[Wait for in-flight files]:duration:' \
                        '--wait[Wait for a concurrent run]:duration:'
                    ;;
                classify)
                    _arguments \
                        '--all[Also list skipped paths]' \
                        '--rules[Extra ingestion rules file]:rules file:_files' \
                        '1:path:_files -/'
                    ;;
                status)
                    _arguments \
                        '--errors[Number of recent errors]:count:'
                    ;;
                reset)
                    _arguments \
                        '--yes[Confirm the reset]'
                    ;;
                install-hook)
                    _arguments \
                        '--force[Overwrite existing hook]' \
                        '--remove[Remove the hook]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_enrich
`

const fishCompletionTemplate = `# Fish completion script for enrich
# Installation:
#   enrich completion fish > ~/.config/fish/completions/enrich.fish

# Commands
complete -c enrich -f -n "__fish_use_subcommand" -a "init" -d "Create .enrich/project.yaml configuration"
complete -c enrich -f -n "__fish_use_subcommand" -a "run" -d "Enrich the current repository"
complete -c enrich -f -n "__fish_use_subcommand" -a "classify" -d "Show how every file would be routed"
complete -c enrich -f -n "__fish_use_subcommand" -a "status" -d "Show ledger statistics and the last run"
complete -c enrich -f -n "__fish_use_subcommand" -a "reset" -d "Forget processed files (destructive!)"
complete -c enrich -f -n "__fish_use_subcommand" -a "install-hook" -d "Install git post-commit hook"
complete -c enrich -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c enrich -n "__fish_use_subcommand" -l version -d "Show version and exit"
complete -c enrich -n "__fish_use_subcommand" -s c -l config -d "Path to .enrich/project.yaml" -r
complete -c enrich -n "__fish_use_subcommand" -l json -d "Machine-readable output"
complete -c enrich -n "__fish_use_subcommand" -s q -l quiet -d "Suppress progress output"
complete -c enrich -n "__fish_use_subcommand" -l no-color -d "Disable colored output"
complete -c enrich -n "__fish_use_subcommand" -s v -l verbose -d "Increase log verbosity"

# init
complete -c enrich -n "__fish_seen_subcommand_from init" -l force -d "Overwrite existing configuration"
complete -c enrich -n "__fish_seen_subcommand_from init" -s y -l yes -d "Use defaults"
complete -c enrich -n "__fish_seen_subcommand_from init" -l solution -d "Solution name" -r
complete -c enrich -n "__fish_seen_subcommand_from init" -l component -d "Component name" -r
complete -c enrich -n "__fish_seen_subcommand_from init" -l provider -d "LLM provider" -x -a "deepseek gemini anthropic mock"
complete -c enrich -n "__fish_seen_subcommand_from init" -l model -d "Model name" -r
complete -c enrich -n "__fish_seen_subcommand_from init" -l hook -d "Install git hook"
complete -c enrich -n "__fish_seen_subcommand_from init" -l no-hook -d "Skip git hook"

# run
complete -c enrich -n "__fish_seen_subcommand_from run" -l provider -d "LLM provider" -x -a "deepseek gemini anthropic mock"
complete -c enrich -n "__fish_seen_subcommand_from run" -l model -d "Model name" -r
complete -c enrich -n "__fish_seen_subcommand_from run" -s n -l concurrency -d "Files enriched in parallel" -r
complete -c enrich -n "__fish_seen_subcommand_from run" -l debug -d "Enable debug logging"
complete -c enrich -n "__fish_seen_subcommand_from run" -l metrics-addr -d "Prometheus metrics address" -r
complete -c enrich -n "__fish_seen_subcommand_from run" -l rules -d "Extra ingestion rules file" -r
complete -c enrich -n "__fish_seen_subcommand_from run" -l audit-dir -d "Dump LLM requests here" -r
complete -c enrich -n "__fish_seen_subcommand_from run" -l dry-run -d "Classify only"
complete -c enrich -n "__fish_seen_subcommand_from run" -l shutdown-grace -d "Wait for in-flight files" -r
complete -c enrich -n "__fish_seen_subcommand_from run" -l wait -d "Wait for a concurrent run" -r

# classify
complete -c enrich -n "__fish_seen_subcommand_from classify" -l all -d "Also list skipped paths"
complete -c enrich -n "__fish_seen_subcommand_from classify" -l rules -d "Extra ingestion rules file" -r

# status, reset, install-hook
complete -c enrich -n "__fish_seen_subcommand_from status" -l errors -d "Number of recent errors" -r
complete -c enrich -n "__fish_seen_subcommand_from reset" -l yes -d "Confirm the reset"
complete -c enrich -n "__fish_seen_subcommand_from install-hook" -l force -d "Overwrite existing hook"
complete -c enrich -n "__fish_seen_subcommand_from install-hook" -l remove -d "Remove the hook"

# completion
complete -c enrich -n "__fish_seen_subcommand_from completion" -f -a "bash zsh fish"
`

// runCompletion executes the 'completion' command, printing the completion
// script for bash, zsh or fish.
//
// Examples:
//
//	source <(enrich completion bash)
//	enrich completion zsh > "${fpath[1]}/_enrich"
//	enrich completion fish | source
func runCompletion(args []string) error {
	fs := flag.NewFlagSet("completion", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: enrich completion <shell>

Generates a completion script for bash, zsh or fish.

Examples:
  source <(enrich completion bash)
  enrich completion zsh > "${fpath[1]}/_enrich"
  enrich completion fish > ~/.config/fish/completions/enrich.fish
`)
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'enrich completion --help'")
	}

	script, err := completionScript(fs.Args())
	if err != nil {
		return err
	}
	fmt.Print(script)
	return nil
}

func completionScript(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'enrich completion bash', 'enrich completion zsh', or 'enrich completion fish'",
		)
	}
	switch args[0] {
	case "bash":
		return bashCompletionTemplate, nil
	case "zsh":
		return zshCompletionTemplate, nil
	case "fish":
		return fishCompletionTemplate, nil
	}
	return "", errors.NewInputError(
		"Unsupported shell",
		fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", args[0]),
		"Run 'enrich completion bash', 'enrich completion zsh', or 'enrich completion fish'",
	)
}
