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

// Package ui provides colored terminal output for the enrich CLI.
//
// Colors respect --no-color (via InitColors) and the NO_COLOR environment
// variable, and are dropped automatically when stdout is not a TTY.
//
//   - Red: failures
//   - Yellow: warnings, oversized or skipped files
//   - Green: success
//   - Cyan: informational messages and counts
//   - Dim: paths and secondary details
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	Red     = color.New(color.FgRed)
	Yellow  = color.New(color.FgYellow)
	Green   = color.New(color.FgGreen)
	Cyan    = color.New(color.FgCyan)
	Magenta = color.New(color.FgMagenta)
	Bold    = color.New(color.Bold)
	Dim     = color.New(color.Faint)
)

// Out is where the message helpers write. Tests swap it for a buffer.
var Out io.Writer = color.Output

// InitColors forces colors off when noColor is set. Call it once after
// parsing flags.
func InitColors(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

func line(c *color.Color, prefix, msg string) {
	_, _ = c.Fprintln(Out, prefix+msg)
}

// Success prints "✓ msg" in green.
func Success(msg string) { line(Green, "✓ ", msg) }

// Successf is the formatted form of Success.
func Successf(format string, args ...any) { Success(fmt.Sprintf(format, args...)) }

// Warning prints "⚠ msg" in yellow.
func Warning(msg string) { line(Yellow, "⚠ ", msg) }

// Warningf is the formatted form of Warning.
func Warningf(format string, args ...any) { Warning(fmt.Sprintf(format, args...)) }

// Error prints "✗ msg" in red.
func Error(msg string) { line(Red, "✗ ", msg) }

// Errorf is the formatted form of Error.
func Errorf(format string, args ...any) { Error(fmt.Sprintf(format, args...)) }

// Info prints "ℹ msg" in cyan.
func Info(msg string) { line(Cyan, "ℹ ", msg) }

// Infof is the formatted form of Info.
func Infof(format string, args ...any) { Info(fmt.Sprintf(format, args...)) }

// Header prints a bold title underlined with '='.
func Header(text string) {
	_, _ = Bold.Fprintln(Out, text)
	_, _ = fmt.Fprintln(Out, strings.Repeat("=", len([]rune(text))))
}

// SubHeader prints a bold title.
func SubHeader(text string) {
	_, _ = Bold.Fprintln(Out, text)
}

// Label returns text in bold.
func Label(text string) string { return Bold.Sprint(text) }

// DimText returns text dimmed.
func DimText(text string) string { return Dim.Sprint(text) }

// CountText returns a count in cyan.
func CountText[T ~int | ~int64](count T) string { return Cyan.Sprint(count) }

// CategoryText colors a file category name.
func CategoryText(category string) string {
	switch category {
	case "code":
		return Cyan.Sprint(category)
	case "template":
		return Magenta.Sprint(category)
	case "config":
		return Yellow.Sprint(category)
	case "document":
		return Green.Sprint(category)
	case "":
		return Dim.Sprint("-")
	default:
		return Dim.Sprint(category)
	}
}

// Ratio formats part of a total as "n/total (p%)".
func Ratio(n, total int) string {
	if total <= 0 {
		return fmt.Sprintf("%d/%d", n, total)
	}
	return fmt.Sprintf("%d/%d (%.0f%%)", n, total, float64(n)*100/float64(total))
}
