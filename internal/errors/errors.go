// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured, user-facing errors for the enrich CLI.
//
// A UserError answers three questions: what went wrong (Message), why
// (Cause) and what to do about it (Fix). It carries the exit code the CLI
// terminates with and wraps the underlying error for errors.Is/As.
//
//	err := errors.NewProviderError(
//	    "Cannot reach the LLM provider",
//	    "deepseek chat error (status 401): invalid key",
//	    "Check DEEPSEEK_API_KEY or run with --provider mock",
//	    cause,
//	)
//	errors.FatalError(err, jsonMode)
//
//	// Error: Cannot reach the LLM provider
//	// Cause: deepseek chat error (status 401): invalid key
//	// Fix:   Check DEEPSEEK_API_KEY or run with --provider mock
//
// With --json the same error is written to stderr as
// {"error": ..., "cause": ..., "fix": ..., "exit_code": 3}.
//
// # Exit Codes
//
//   - ExitConfig (1): missing or invalid .enrich/project.yaml or rules file
//   - ExitStorage (2): the SQLite store cannot be opened or written
//   - ExitProvider (3): provider construction or API failures
//   - ExitInput (4): bad arguments or an invalid enrichment request
//   - ExitPermission (5): file system permission problems
//   - ExitNotFound (6): missing repository, report or hook
//   - ExitPartial (7): the run finished but some files failed
//   - ExitInternal (10): bugs
package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitConfig     = 1
	ExitStorage    = 2
	ExitProvider   = 3
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6
	ExitPartial    = 7

	// ExitInternal signals a bug that should be reported.
	ExitInternal = 10
)

// UserError is an error with enough context for a human to act on it.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int

	// Err is the wrapped error, if any.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func newError(code int, msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: code, Err: err}
}

// NewConfigError reports a missing or invalid configuration.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newError(ExitConfig, msg, cause, fix, err)
}

// NewStorageError reports a failure of the local ledger database.
func NewStorageError(msg, cause, fix string, err error) *UserError {
	return newError(ExitStorage, msg, cause, fix, err)
}

// NewProviderError reports an LLM provider failure.
func NewProviderError(msg, cause, fix string, err error) *UserError {
	return newError(ExitProvider, msg, cause, fix, err)
}

// NewInputError reports invalid user input.
func NewInputError(msg, cause, fix string) *UserError {
	return newError(ExitInput, msg, cause, fix, nil)
}

// NewPermissionError reports a file system permission problem.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return newError(ExitPermission, msg, cause, fix, err)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return newError(ExitNotFound, msg, cause, fix, nil)
}

// NewPartialError reports a run that completed with failed files.
func NewPartialError(msg, cause, fix string) *UserError {
	return newError(ExitPartial, msg, cause, fix, nil)
}

// NewInternalError reports an unexpected condition.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newError(ExitInternal, msg, cause, fix, err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for a terminal. Colour is off when noColor is
// set or NO_COLOR is present; empty Cause and Fix lines are omitted.
func (e *UserError) Format(noColor bool) string {
	original := color.NoColor
	defer func() { color.NoColor = original }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: ") + e.Message + "\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: ") + e.Cause + "\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   ") + e.Fix + "\n")
	}
	return out.String()
}

// ErrorJSON is the --json form of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the error to its JSON form.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// Write prints err to w and returns the exit code to terminate with.
// Errors that are not UserErrors map to ExitInternal.
func Write(w io.Writer, err error, jsonOutput, noColor bool) int {
	if err == nil {
		return ExitSuccess
	}
	ue, ok := err.(*UserError)
	if !ok {
		ue = NewInternalError(err.Error(), "", "", err)
	}
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ue.ToJSON())
	} else if ok {
		fmt.Fprint(w, ue.Format(noColor))
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return ue.ExitCode
}

// FatalError prints err to stderr and exits. It does nothing for nil.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}
	os.Exit(Write(os.Stderr, err, jsonOutput, false))
}
