// Package ui provides colored terminal output helpers for the treasury CLI.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgBlue)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	stepColor    = color.New(color.FgMagenta)
)

// Header prints a banner line for a CLI phase.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Fprintln(os.Stderr, line)
	headerColor.Fprintln(os.Stderr, center(text, headerWidth))
	headerColor.Fprintln(os.Stderr, line)
}

// Step prints a numbered progress step, e.g. "[2/4] Importing".
func Step(current, total int, text string) {
	stepColor.Fprintf(os.Stderr, "[%d/%d] %s\n", current, total, text)
}

// Success prints a confirmation line.
func Success(text string) {
	successColor.Fprintf(os.Stderr, "✓ %s\n", text)
}

// Info prints an informational line.
func Info(text string) {
	infoColor.Fprintf(os.Stderr, "ℹ %s\n", text)
}

// Warning prints a non-fatal problem.
func Warning(text string) {
	warningColor.Fprintf(os.Stderr, "⚠ %s\n", text)
}

// Error prints a failure line.
func Error(text string) {
	errorColor.Fprintf(os.Stderr, "✗ %s\n", text)
}

// BlueText prints plain blue text without a marker.
func BlueText(text string) {
	infoColor.Fprintln(os.Stderr, text)
}

// YellowText prints plain yellow text without a marker.
func YellowText(text string) {
	warningColor.Fprintln(os.Stderr, text)
}

// center left-pads text so it sits in the middle of width columns. Text
// wider than width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return fmt.Sprintf("%s%s", strings.Repeat(" ", padding), text)
}
